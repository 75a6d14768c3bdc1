package agent

import (
	"testing"

	"github.com/arcana-labs/arcana-backend/internal/types"
)

func TestHappyPathTakesExactlyFiveTransitions(t *testing.T) {
	st := NewState("sess-1", "subj-1", false)
	actions := []Action{
		DrawCards{Cards: []types.DrawnCard{{IsReversed: true}}},
		AnalyzeSpread{Analysis: "balanced"},
		InterpretCards{Interpretation: "card by card"},
		GenerateResponse{Response: "final text"},
		Complete{},
	}

	transitions := 0
	for _, a := range actions {
		next, ok := Reduce(st, a)
		if !ok {
			t.Fatalf("transition %d rejected from step %s", transitions, st.Step)
		}
		st = next
		transitions++
	}

	if transitions != 5 {
		t.Fatalf("expected 5 transitions, got %d", transitions)
	}
	if st.Step != StepCompleted {
		t.Fatalf("expected COMPLETED, got %s", st.Step)
	}
	if !IsTerminal(st) {
		t.Fatalf("COMPLETED should be terminal")
	}
}

func TestInvalidTransitionLeavesStateUntouched(t *testing.T) {
	st := NewState("sess-1", "subj-1", false)

	// Cannot interpret before drawing or analyzing.
	next, ok := Reduce(st, InterpretCards{Interpretation: "too early"})
	if ok {
		t.Fatalf("expected rejection of INITIALIZING -> INTERPRETING")
	}
	if next.Step != StepInitializing {
		t.Fatalf("rejected transition changed step to %s", next.Step)
	}
	if next.Interpretation != "" {
		t.Fatalf("rejected transition wrote payload")
	}

	// Completing twice is also invalid.
	st.Step = StepCompleted
	if _, ok := Reduce(st, Complete{}); ok {
		t.Fatalf("expected rejection of COMPLETED -> COMPLETED")
	}
}

func TestErrorReachableFromEveryActiveStep(t *testing.T) {
	active := []Step{StepInitializing, StepDrawingCards, StepAnalyzing, StepInterpreting, StepResponding}
	for _, step := range active {
		st := NewState("sess-1", "subj-1", false)
		st.Step = step
		next, ok := Reduce(st, SetError{Err: ErrorInfo{Code: CodeExecution, Message: "boom"}})
		if !ok {
			t.Fatalf("SetError rejected from %s", step)
		}
		if next.Step != StepError || next.Err == nil {
			t.Fatalf("SetError from %s produced step=%s err=%v", step, next.Step, next.Err)
		}
	}

	st := NewState("sess-1", "subj-1", false)
	st.Step = StepCompleted
	if _, ok := Reduce(st, SetError{Err: ErrorInfo{Code: CodeExecution}}); ok {
		t.Fatalf("SetError should be rejected from COMPLETED")
	}
}

func TestResetClearsTerminalSessions(t *testing.T) {
	for _, step := range []Step{StepCompleted, StepError} {
		st := NewState("sess-1", "subj-1", true)
		st.Step = step
		st.Response = "old reading"
		st.Err = &ErrorInfo{Code: CodeExecution}

		next, ok := Reduce(st, Reset{})
		if !ok {
			t.Fatalf("Reset rejected from %s", step)
		}
		if next.Step != StepInitializing {
			t.Fatalf("Reset landed on %s", next.Step)
		}
		if next.Response != "" || next.Err != nil {
			t.Fatalf("Reset kept stale payload: %+v", next)
		}
		if next.SessionID != "sess-1" || next.SubjectID != "subj-1" || !next.IsAnonymous {
			t.Fatalf("Reset lost identity: %+v", next)
		}
	}

	// Mid-run sessions cannot be reset through the machine.
	st := NewState("sess-1", "subj-1", false)
	st.Step = StepAnalyzing
	if _, ok := Reduce(st, Reset{}); ok {
		t.Fatalf("Reset should be rejected mid-run")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	st := NewState("sess-1", "subj-1", false)
	cards := []types.DrawnCard{{IsReversed: true}}

	next, ok := Reduce(st, DrawCards{Cards: cards})
	if !ok {
		t.Fatalf("draw rejected")
	}
	if st.Step != StepInitializing || len(st.Cards) != 0 {
		t.Fatalf("input state mutated: %+v", st)
	}

	// The reduced state holds its own copy of the card slice.
	cards[0].IsReversed = false
	if !next.Cards[0].IsReversed {
		t.Fatalf("reduced state aliases caller slice")
	}
}
