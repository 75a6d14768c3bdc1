package agent

import (
	"github.com/arcana-labs/arcana-backend/internal/types"
)

// Step names the state machine's positions. The step stored in a State is
// the last one whose work completed.
type Step string

const (
	StepInitializing Step = "INITIALIZING"
	StepDrawingCards Step = "DRAWING_CARDS"
	StepAnalyzing    Step = "ANALYZING_SPREAD"
	StepInterpreting Step = "INTERPRETING"
	StepResponding   Step = "RESPONDING"
	StepCompleted    Step = "COMPLETED"
	StepError        Step = "ERROR"
)

// ErrorInfo captures a step failure inside the machine instead of letting it
// escape the orchestration boundary.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

const (
	CodeDrawCards        = "DRAW_CARDS_ERROR"
	CodeAnalyzeSpread    = "ANALYZE_SPREAD_ERROR"
	CodeInterpretCards   = "INTERPRET_CARDS_ERROR"
	CodeGenerateResponse = "GENERATE_RESPONSE_ERROR"
	CodeExecution        = "EXECUTION_ERROR"
)

// Metadata carries the per-run request inputs.
type Metadata struct {
	Query    string `json:"query,omitempty"`
	SpreadID string `json:"spread_id,omitempty"`
}

// State is the cache-persisted session snapshot. Reduce treats it as
// immutable; every transition produces a copy.
type State struct {
	SessionID      string            `json:"session_id"`
	SubjectID      string            `json:"subject_id"`
	IsAnonymous    bool              `json:"is_anonymous"`
	Step           Step              `json:"step"`
	Cards          []types.DrawnCard `json:"cards"`
	Spread         *types.Spread     `json:"spread,omitempty"`
	Analysis       string            `json:"analysis,omitempty"`
	Interpretation string            `json:"interpretation,omitempty"`
	Response       string            `json:"response,omitempty"`
	Err            *ErrorInfo        `json:"error,omitempty"`
	Metadata       Metadata          `json:"metadata"`
}

// Action is the tagged union consumed by Reduce.
type Action interface {
	isAction()
}

type DrawCards struct {
	Cards  []types.DrawnCard
	Spread *types.Spread
}

type AnalyzeSpread struct {
	Analysis string
}

type InterpretCards struct {
	Interpretation string
}

type GenerateResponse struct {
	Response string
}

type Complete struct{}

type SetError struct {
	Err ErrorInfo
}

type Reset struct{}

func (DrawCards) isAction()        {}
func (AnalyzeSpread) isAction()    {}
func (InterpretCards) isAction()   {}
func (GenerateResponse) isAction() {}
func (Complete) isAction()         {}
func (SetError) isAction()         {}
func (Reset) isAction()            {}
