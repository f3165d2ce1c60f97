package chatflow

import (
	"context"
	"testing"
)

func testFlow() *StaticFlow {
	return NewStaticFlow("service_type", map[string]Turn{
		"service_type": {
			StepID: "service_type",
			Prompt: "What kind of clean?",
			Options: []Option{
				{Label: "Standard", Value: "standard", Next: "square_feet"},
				{Label: "Deep", Value: "deep", Next: "square_feet"},
			},
		},
		"square_feet": {
			StepID:  "square_feet",
			Prompt:  "How many square feet?",
			Options: []Option{{Value: "", Next: "done"}},
		},
		"done": {StepID: "done", Prompt: "Thanks!"},
	})
}

func TestStaticFlow_Start(t *testing.T) {
	f := testFlow()
	turn, err := f.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if turn.StepID != "service_type" {
		t.Errorf("Start() StepID = %q, want service_type", turn.StepID)
	}
}

func TestStaticFlow_Advance_MatchedOption(t *testing.T) {
	f := testFlow()
	sess := Session{CurrentStep: "service_type", Answers: map[string]string{}}

	next, done, err := f.Advance(context.Background(), sess, "deep")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if done {
		t.Fatal("Advance() done = true, want false")
	}
	if next.StepID != "square_feet" {
		t.Errorf("next.StepID = %q, want square_feet", next.StepID)
	}
}

func TestStaticFlow_Advance_FreeTextFallthrough(t *testing.T) {
	f := testFlow()
	sess := Session{CurrentStep: "square_feet", Answers: map[string]string{}}

	next, done, err := f.Advance(context.Background(), sess, "1200")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if done {
		t.Fatal("Advance() done = true, want false")
	}
	if next.StepID != "done" {
		t.Errorf("next.StepID = %q, want done", next.StepID)
	}
}

func TestStaticFlow_Advance_UnknownOptionEndsConversation(t *testing.T) {
	f := testFlow()
	sess := Session{CurrentStep: "service_type", Answers: map[string]string{}}

	_, done, err := f.Advance(context.Background(), sess, "move_out")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !done {
		t.Error("Advance() with unmatched option should end the conversation")
	}
}

func TestStaticFlow_Advance_UnknownStepEndsConversation(t *testing.T) {
	f := testFlow()
	sess := Session{CurrentStep: "nonexistent", Answers: map[string]string{}}

	_, done, err := f.Advance(context.Background(), sess, "anything")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !done {
		t.Error("Advance() from an unknown step should end the conversation")
	}
}
