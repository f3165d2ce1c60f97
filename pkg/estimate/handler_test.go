package estimate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cleanco/backend/pkg/chatflow"
	"github.com/cleanco/backend/pkg/pricing"
)

type stubEstimator struct {
	got pricing.EstimateRequest
	err error
}

func (s *stubEstimator) Estimate(ctx context.Context, req pricing.EstimateRequest) (pricing.Estimate, error) {
	s.got = req
	if s.err != nil {
		return pricing.Estimate{}, s.err
	}
	return pricing.Estimate{TotalCents: 12345, Currency: "usd"}, nil
}

type stubFlow struct {
	lastSession chatflow.Session
	lastAnswer  string
	done        bool
}

func (s *stubFlow) Start(ctx context.Context) (chatflow.Turn, error) {
	return chatflow.Turn{StepID: "service_type", Prompt: "What kind of clean?"}, nil
}

func (s *stubFlow) Advance(ctx context.Context, sess chatflow.Session, answer string) (chatflow.Turn, bool, error) {
	s.lastSession = sess
	s.lastAnswer = answer
	if s.done {
		return chatflow.Turn{}, true, nil
	}
	return chatflow.Turn{StepID: "square_feet", Prompt: "How many square feet?"}, false, nil
}

func TestHandleEstimate_Success(t *testing.T) {
	est := &stubEstimator{}
	h := NewHandler(nil, est, &stubFlow{})

	r := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(
		`{"service_type":"standard","square_feet":1200,"bedrooms":2,"bathrooms":1}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.PublicRoutes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if est.got.ServiceType != "standard" || est.got.SquareFeet != 1200 {
		t.Errorf("estimator received %+v, want service_type=standard square_feet=1200", est.got)
	}
}

func TestHandleEstimate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing service_type", `{"square_feet":1000}`, http.StatusUnprocessableEntity},
		{"zero square_feet", `{"service_type":"standard","square_feet":0}`, http.StatusUnprocessableEntity},
		{"invalid JSON", `{bad}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	h := NewHandler(nil, &stubEstimator{}, &stubFlow{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			h.PublicRoutes().ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestHandleChatStart(t *testing.T) {
	h := NewHandler(nil, &stubEstimator{}, &stubFlow{})

	r := httptest.NewRequest(http.MethodPost, "/chat/start", nil)
	w := httptest.NewRecorder()

	h.PublicRoutes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "service_type") {
		t.Errorf("body = %s, want it to contain the first step id", w.Body.String())
	}
}

func TestHandleChatTurn_AdvancesFlow(t *testing.T) {
	flow := &stubFlow{}
	h := NewHandler(nil, &stubEstimator{}, flow)

	r := httptest.NewRequest(http.MethodPost, "/chat/turn", strings.NewReader(
		`{"current_step":"service_type","answer":"standard"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.PublicRoutes().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if flow.lastAnswer != "standard" {
		t.Errorf("flow received answer %q, want %q", flow.lastAnswer, "standard")
	}
	if flow.lastSession.CurrentStep != "service_type" {
		t.Errorf("flow received CurrentStep %q, want %q", flow.lastSession.CurrentStep, "service_type")
	}
	if !strings.Contains(w.Body.String(), `"done":false`) {
		t.Errorf("body = %s, want done=false", w.Body.String())
	}
}

func TestHandleChatTurn_RequiresAnswer(t *testing.T) {
	h := NewHandler(nil, &stubEstimator{}, &stubFlow{})

	r := httptest.NewRequest(http.MethodPost, "/chat/turn", strings.NewReader(`{"current_step":"service_type"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.PublicRoutes().ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}
