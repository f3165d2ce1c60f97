// Package estimate exposes the pricing.Estimator and chatflow.Flow
// interfaces over HTTP for the public-facing estimate and chat-intake
// widgets. It holds no pricing or conversation logic of its own; it only
// adapts requests onto those two collaborator interfaces.
package estimate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cleanco/backend/internal/httpserver"
	"github.com/cleanco/backend/pkg/chatflow"
	"github.com/cleanco/backend/pkg/pricing"
)

// Handler serves the public POST /estimate and POST /chat/turn routes.
type Handler struct {
	logger    *slog.Logger
	estimator pricing.Estimator
	flow      chatflow.Flow
}

// NewHandler creates an estimate Handler over the given estimator and flow.
func NewHandler(logger *slog.Logger, estimator pricing.Estimator, flow chatflow.Flow) *Handler {
	return &Handler{logger: logger, estimator: estimator, flow: flow}
}

// PublicRoutes returns the customer-facing estimate and chat routes.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/estimate", h.handleEstimate)
	r.Post("/chat/start", h.handleChatStart)
	r.Post("/chat/turn", h.handleChatTurn)
	return r
}

type estimateRequest struct {
	ServiceType string   `json:"service_type" validate:"required"`
	SquareFeet  int      `json:"square_feet" validate:"required,gt=0"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   int      `json:"bathrooms"`
	AddOns      []string `json:"add_ons"`
	Frequency   string   `json:"frequency"`
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	est, err := h.estimator.Estimate(r.Context(), pricing.EstimateRequest{
		ServiceType: req.ServiceType,
		SquareFeet:  req.SquareFeet,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AddOns:      req.AddOns,
		Frequency:   req.Frequency,
	})
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, est)
}

func (h *Handler) handleChatStart(w http.ResponseWriter, r *http.Request) {
	turn, err := h.flow.Start(r.Context())
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, turn)
}

type chatTurnRequest struct {
	CurrentStep string            `json:"current_step" validate:"required"`
	Answers     map[string]string `json:"answers"`
	Answer      string            `json:"answer" validate:"required"`
}

type chatTurnResponse struct {
	Turn chatflow.Turn `json:"turn"`
	Done bool          `json:"done"`
}

func (h *Handler) handleChatTurn(w http.ResponseWriter, r *http.Request) {
	var req chatTurnRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	sess := chatflow.Session{CurrentStep: req.CurrentStep, Answers: req.Answers}
	if sess.Answers == nil {
		sess.Answers = map[string]string{}
	}

	turn, done, err := h.flow.Advance(r.Context(), sess, req.Answer)
	if err != nil {
		httpserver.RespondAppError(w, r, h.logger, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, chatTurnResponse{Turn: turn, Done: done})
}
