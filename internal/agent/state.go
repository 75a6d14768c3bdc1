package agent

import (
	"github.com/arcana-labs/arcana-backend/internal/types"
)

// transitions is the adjacency map of valid moves. Anything absent here is
// rejected and leaves the state unchanged.
var transitions = map[Step][]Step{
	StepInitializing: {StepDrawingCards, StepError},
	StepDrawingCards: {StepAnalyzing, StepError},
	StepAnalyzing:    {StepInterpreting, StepError},
	StepInterpreting: {StepResponding, StepError},
	StepResponding:   {StepCompleted, StepError},
	StepCompleted:    {StepInitializing},
	StepError:        {StepInitializing},
}

func CanTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the current run has ended. Both terminal steps
// still transition back to INITIALIZING for session reuse.
func IsTerminal(s State) bool {
	return s.Step == StepCompleted || s.Step == StepError
}

func NewState(sessionID, subjectID string, isAnonymous bool) State {
	return State{
		SessionID:   sessionID,
		SubjectID:   subjectID,
		IsAnonymous: isAnonymous,
		Step:        StepInitializing,
	}
}

func target(a Action) Step {
	switch a.(type) {
	case DrawCards:
		return StepDrawingCards
	case AnalyzeSpread:
		return StepAnalyzing
	case InterpretCards:
		return StepInterpreting
	case GenerateResponse:
		return StepResponding
	case Complete:
		return StepCompleted
	case SetError:
		return StepError
	case Reset:
		return StepInitializing
	default:
		return ""
	}
}

// Reduce applies action to state and returns the next state. The second
// return is false when the transition is not in the table; the input state is
// returned untouched in that case. Reduce never mutates its argument.
func Reduce(state State, action Action) (State, bool) {
	to := target(action)
	if to == "" || !CanTransition(state.Step, to) {
		return state, false
	}

	next := state
	next.Step = to

	switch a := action.(type) {
	case DrawCards:
		next.Cards = append([]types.DrawnCard(nil), a.Cards...)
		next.Spread = a.Spread
	case AnalyzeSpread:
		next.Analysis = a.Analysis
	case InterpretCards:
		next.Interpretation = a.Interpretation
	case GenerateResponse:
		next.Response = a.Response
	case SetError:
		errCopy := a.Err
		next.Err = &errCopy
	case Reset:
		next = NewState(state.SessionID, state.SubjectID, state.IsAnonymous)
	}

	return next, true
}
