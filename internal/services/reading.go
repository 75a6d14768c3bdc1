package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/agent"
	"github.com/arcana-labs/arcana-backend/internal/cache"
	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/repos"
	"github.com/arcana-labs/arcana-backend/internal/stream"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrReadingInProgress = errors.New("a reading is already running for this session")
)

// defaultDrawCount applies when a reading is started without a spread.
const defaultDrawCount = 3

// ReadingRequest starts one pipeline run. An empty SessionID creates a new
// session.
type ReadingRequest struct {
	SessionID   string
	SubjectID   string
	IsAnonymous bool
	Query       string
	SpreadID    string
}

// ReadingService drives the reading pipeline and owns session state. One run
// per session at a time; concurrent starts for the same session fail fast.
type ReadingService interface {
	// StartReading validates the request, claims the session, and runs the
	// pipeline in the background. Events arrive on the returned stream in
	// step order, ending with a done sentinel.
	StartReading(ctx context.Context, req ReadingRequest) (string, *stream.Stream, error)

	// ProcessChat streams a conversational completion. When the session has
	// a completed reading the answer is grounded in it; otherwise the
	// messages go through as plain chat. It never advances the state
	// machine and works for sessions in any state, including unknown ones.
	ProcessChat(ctx context.Context, sessionID string, messages []openai.Message) (*stream.Stream, error)

	GetState(ctx context.Context, sessionID string) (*agent.State, error)

	// Reset drops the session snapshot. The next start sees a fresh session.
	Reset(ctx context.Context, sessionID string) error

	RecentReadings(ctx context.Context, subjectID string, isAnonymous bool) ([]types.RecentReading, error)
	Patterns(ctx context.Context, subjectID string, isAnonymous bool) (*types.UserPatterns, error)

	// ClearUserData removes the subject's persona rows and cached history.
	ClearUserData(ctx context.Context, subjectID string, isAnonymous bool) error
}

type readingService struct {
	log        *logger.Logger
	met        metrics.Collector
	cache      cache.Cache
	catalog    CatalogService
	selector   CardSelector
	persona    PersonaService
	ai         openai.Client
	userThemes repos.UserThemeRepo
	sessions   *keyedMutex
	now        func() time.Time
}

func NewReadingService(
	baseLog *logger.Logger,
	met metrics.Collector,
	c cache.Cache,
	catalog CatalogService,
	selector CardSelector,
	persona PersonaService,
	ai openai.Client,
	userThemes repos.UserThemeRepo,
) ReadingService {
	return &readingService{
		log:        baseLog.With("service", "ReadingService"),
		met:        met,
		cache:      c,
		catalog:    catalog,
		selector:   selector,
		persona:    persona,
		ai:         ai,
		userThemes: userThemes,
		sessions:   newKeyedMutex(),
		now:        time.Now,
	}
}

func (s *readingService) loadState(ctx context.Context, sessionID string) (*agent.State, error) {
	raw, found, err := s.cache.Get(ctx, cache.NamespaceSession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		s.met.CacheMiss(string(cache.NamespaceSession))
		return nil, nil
	}
	s.met.CacheHit(string(cache.NamespaceSession))
	var st agent.State
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt snapshot is unrecoverable; treat it as absent.
		s.log.Warn("dropping corrupt session snapshot", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return &st, nil
}

func (s *readingService) saveState(ctx context.Context, st agent.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.cache.Set(ctx, cache.NamespaceSession, st.SessionID, raw, cache.NamespaceSession.TTL())
}

func (s *readingService) StartReading(ctx context.Context, req ReadingRequest) (string, *stream.Stream, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return "", nil, fmt.Errorf("start reading: missing subject id")
	}

	if !s.sessions.TryLock(sessionID) {
		return "", nil, ErrReadingInProgress
	}

	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		s.sessions.Unlock(sessionID)
		return "", nil, err
	}
	switch {
	case st == nil:
		fresh := agent.NewState(sessionID, req.SubjectID, req.IsAnonymous)
		st = &fresh
	case agent.IsTerminal(*st):
		// Completed and failed sessions restart cleanly.
		next, _ := agent.Reduce(*st, agent.Reset{})
		st = &next
	case st.Step != agent.StepInitializing:
		s.sessions.Unlock(sessionID)
		return "", nil, ErrReadingInProgress
	}
	st.Metadata = agent.Metadata{Query: req.Query, SpreadID: req.SpreadID}

	out := stream.New(16)
	s.met.ReadingStarted()
	go func() {
		// Unlock before Close so a consumer that drained the stream can
		// start the next reading without racing the lock.
		defer out.Close()
		defer s.sessions.Unlock(sessionID)
		s.run(ctx, *st, out)
	}()
	return sessionID, out, nil
}

// run advances the machine until a terminal step, persisting each transition
// and emitting one event per completed step.
func (s *readingService) run(ctx context.Context, st agent.State, out *stream.Stream) {
	started := s.now()
	for !agent.IsTerminal(st) {
		stepStart := s.now()
		action, ev, err := s.executeStep(ctx, &st, out)
		s.met.StepDuration(string(st.Step), s.now().Sub(stepStart))
		if err != nil {
			s.fail(ctx, st, out, err)
			return
		}

		next, ok := agent.Reduce(st, action)
		if !ok {
			s.fail(ctx, st, out, &stepError{code: agent.CodeExecution, err: fmt.Errorf("invalid transition from %s", st.Step)})
			return
		}
		st = next
		if err := s.saveState(ctx, st); err != nil {
			s.fail(ctx, st, out, &stepError{code: agent.CodeExecution, err: err})
			return
		}
		if ev != nil && !out.Send(ctx, *ev) {
			s.log.Info("reading stream consumer gone", "session_id", st.SessionID)
			return
		}
	}

	s.met.ReadingCompleted(s.now().Sub(started))
	if err := s.recordCompletion(ctx, st); err != nil {
		s.log.Warn("recording completed reading failed", "session_id", st.SessionID, "error", err)
	}
	out.Send(ctx, stream.Done())
}

type stepError struct {
	code string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// executeStep performs the work that moves the machine out of st.Step and
// returns the action to apply plus the event to emit after the transition
// lands. A nil event means the step is silent.
func (s *readingService) executeStep(ctx context.Context, st *agent.State, out *stream.Stream) (agent.Action, *stream.Event, error) {
	switch st.Step {
	case agent.StepInitializing:
		var spread *types.Spread
		if id := strings.TrimSpace(st.Metadata.SpreadID); id != "" {
			spreadID, err := uuid.Parse(id)
			if err != nil {
				return nil, nil, &stepError{code: agent.CodeDrawCards, err: fmt.Errorf("invalid spread id: %w", err)}
			}
			spread, err = s.catalog.SpreadByID(ctx, spreadID)
			if err != nil {
				return nil, nil, &stepError{code: agent.CodeDrawCards, err: err}
			}
		}

		persona, err := s.persona.GetPersona(ctx, st.SubjectID, st.IsAnonymous)
		if err != nil {
			return nil, nil, &stepError{code: agent.CodeDrawCards, err: err}
		}

		params := SelectionParams{Persona: persona, Count: defaultDrawCount, Query: st.Metadata.Query}
		if spread != nil {
			params.Positions = spread.Positions
		}
		cards, err := s.selector.SelectCards(ctx, params)
		if err != nil {
			return nil, nil, &stepError{code: agent.CodeDrawCards, err: err}
		}
		return agent.DrawCards{Cards: cards, Spread: spread},
			&stream.Event{Type: stream.EventCardsDrawn, Content: cards, Role: "system"}, nil

	case agent.StepDrawingCards:
		text, err := s.complete(ctx, "analysis", analysisMessages(st.Cards, st.Spread, st.Metadata.Query))
		if err != nil {
			return nil, nil, &stepError{code: agent.CodeAnalyzeSpread, err: err}
		}
		return agent.AnalyzeSpread{Analysis: text},
			&stream.Event{Type: stream.EventAnalysis, Content: text, Role: "assistant"}, nil

	case agent.StepAnalyzing:
		text, err := s.complete(ctx, "interpretation", interpretationMessages(st.Cards, st.Spread, st.Analysis, st.Metadata.Query))
		if err != nil {
			return nil, nil, &stepError{code: agent.CodeInterpretCards, err: err}
		}
		return agent.InterpretCards{Interpretation: text},
			&stream.Event{Type: stream.EventInterpretation, Content: text, Role: "assistant"}, nil

	case agent.StepInterpreting:
		start := s.now()
		text, err := s.ai.StreamCompletion(ctx, responseMessages(st.Cards, st.Interpretation, st.Metadata.Query), "", func(delta string) {
			out.Send(ctx, stream.Event{Type: stream.EventChatDelta, Content: delta, Role: "assistant"})
		})
		s.met.GenerationLatency("response", s.now().Sub(start))
		if err != nil {
			return nil, nil, &stepError{code: agent.CodeGenerateResponse, err: err}
		}
		return agent.GenerateResponse{Response: text}, nil, nil

	case agent.StepResponding:
		return agent.Complete{},
			&stream.Event{Type: stream.EventFinalResponse, Content: st.Response, Role: "assistant"}, nil

	default:
		return nil, nil, &stepError{code: agent.CodeExecution, err: fmt.Errorf("no work defined for step %s", st.Step)}
	}
}

func (s *readingService) complete(ctx context.Context, operation string, messages []openai.Message) (string, error) {
	start := s.now()
	text, err := s.ai.Complete(ctx, messages, "")
	s.met.GenerationLatency(operation, s.now().Sub(start))
	return text, err
}

func (s *readingService) fail(ctx context.Context, st agent.State, out *stream.Stream, err error) {
	code := agent.CodeExecution
	var se *stepError
	if errors.As(err, &se) {
		code = se.code
	}
	s.met.ReadingFailed(code)
	s.log.Error("reading pipeline failed", "session_id", st.SessionID, "step", string(st.Step), "code", code, "error", err)

	info := agent.ErrorInfo{Code: code, Message: "reading failed", Details: err.Error()}
	if next, ok := agent.Reduce(st, agent.SetError{Err: info}); ok {
		if saveErr := s.saveState(ctx, next); saveErr != nil {
			s.log.Warn("persisting error state failed", "session_id", st.SessionID, "error", saveErr)
		}
	}
	out.Send(ctx, stream.Event{Type: stream.EventError, Content: info, Role: "system"})
	out.Send(ctx, stream.Done())
}

// recordCompletion appends the reading to the subject's recent list and folds
// it into the pattern counters. Both writes share one batch.
func (s *readingService) recordCompletion(ctx context.Context, st agent.State) error {
	subjectKey := SubjectKey(st.SubjectID, st.IsAnonymous)

	recent, err := s.RecentReadings(ctx, st.SubjectID, st.IsAnonymous)
	if err != nil {
		return err
	}
	entry := types.RecentReading{Cards: st.Cards, Spread: st.Spread, Timestamp: s.now().Unix()}
	recent = append([]types.RecentReading{entry}, recent...)
	if len(recent) > types.RecentReadingsCap {
		recent = recent[:types.RecentReadingsCap]
	}

	patterns, err := s.Patterns(ctx, st.SubjectID, st.IsAnonymous)
	if err != nil {
		return err
	}
	for _, c := range st.Cards {
		patterns.CommonCards[c.ID.String()]++
	}
	if st.Spread != nil {
		patterns.PreferredSpreads[st.Spread.ID.String()]++
	}
	if err := s.countThemes(ctx, st.Cards, patterns); err != nil {
		s.log.Warn("theme counting skipped", "session_id", st.SessionID, "error", err)
	}

	recentRaw, err := json.Marshal(recent)
	if err != nil {
		return err
	}
	patternsRaw, err := json.Marshal(patterns)
	if err != nil {
		return err
	}

	batch := s.cache.Batch()
	batch.Set(cache.NamespaceRecentReadings, subjectKey, recentRaw, cache.NamespaceRecentReadings.TTL())
	batch.Set(cache.NamespaceUserPatterns, subjectKey, patternsRaw, cache.NamespaceUserPatterns.TTL())
	return batch.Exec(ctx)
}

// countThemes credits each theme strongly tied to a drawn card. The 0.5
// relevance floor keeps weak associations out of the counters.
func (s *readingService) countThemes(ctx context.Context, cards []types.DrawnCard, patterns *types.UserPatterns) error {
	relevance, err := s.catalog.Relevance(ctx)
	if err != nil {
		return err
	}
	drawn := make(map[uuid.UUID]bool, len(cards))
	for _, c := range cards {
		drawn[c.ID] = true
	}
	for _, rel := range relevance {
		if drawn[rel.CardID] && rel.Relevance >= 0.5 {
			patterns.Themes[rel.ThemeID.String()]++
		}
	}
	return nil
}

func (s *readingService) ProcessChat(ctx context.Context, sessionID string, messages []openai.Message) (*stream.Stream, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("process chat: no messages")
	}
	last := messages[len(messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		return nil, fmt.Errorf("process chat: empty message")
	}
	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A completed reading enriches the conversation; anything else is a
	// plain chat turn.
	var prompt []openai.Message
	if st != nil && st.Step == agent.StepCompleted {
		prompt = groundedChatMessages(st.Cards, st.Interpretation, st.Response, messages)
	} else {
		prompt = plainChatMessages(messages)
	}

	out := stream.New(16)
	go func() {
		defer out.Close()
		start := s.now()
		text, err := s.ai.StreamCompletion(ctx, prompt, "", func(delta string) {
			out.Send(ctx, stream.Event{Type: stream.EventChatDelta, Content: delta, Role: "assistant"})
		})
		s.met.GenerationLatency("chat", s.now().Sub(start))
		if err != nil {
			s.log.Error("chat stream failed", "session_id", sessionID, "error", err)
			out.Send(ctx, stream.Event{
				Type:    stream.EventError,
				Content: agent.ErrorInfo{Code: agent.CodeGenerateResponse, Message: "chat failed", Details: err.Error()},
				Role:    "system",
			})
			out.Send(ctx, stream.Done())
			return
		}
		out.Send(ctx, stream.Event{Type: stream.EventFinalResponse, Content: text, Role: "assistant"})
		out.Send(ctx, stream.Done())
	}()
	return out, nil
}

func (s *readingService) GetState(ctx context.Context, sessionID string) (*agent.State, error) {
	st, err := s.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

func (s *readingService) Reset(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, cache.NamespaceSession, sessionID)
}

func (s *readingService) RecentReadings(ctx context.Context, subjectID string, isAnonymous bool) ([]types.RecentReading, error) {
	subjectKey := SubjectKey(subjectID, isAnonymous)
	raw, found, err := s.cache.Get(ctx, cache.NamespaceRecentReadings, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	if !found {
		s.met.CacheMiss(string(cache.NamespaceRecentReadings))
		return nil, nil
	}
	s.met.CacheHit(string(cache.NamespaceRecentReadings))
	var readings []types.RecentReading
	if err := json.Unmarshal(raw, &readings); err != nil {
		return nil, nil
	}
	return readings, nil
}

func (s *readingService) Patterns(ctx context.Context, subjectID string, isAnonymous bool) (*types.UserPatterns, error) {
	subjectKey := SubjectKey(subjectID, isAnonymous)
	raw, found, err := s.cache.Get(ctx, cache.NamespaceUserPatterns, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("patterns: %w", err)
	}
	if !found {
		s.met.CacheMiss(string(cache.NamespaceUserPatterns))
		return types.NewUserPatterns(), nil
	}
	s.met.CacheHit(string(cache.NamespaceUserPatterns))
	patterns := types.NewUserPatterns()
	if err := json.Unmarshal(raw, patterns); err != nil {
		return types.NewUserPatterns(), nil
	}
	if patterns.CommonCards == nil {
		patterns.CommonCards = map[string]int{}
	}
	if patterns.PreferredSpreads == nil {
		patterns.PreferredSpreads = map[string]int{}
	}
	if patterns.Themes == nil {
		patterns.Themes = map[string]int{}
	}
	return patterns, nil
}

func (s *readingService) ClearUserData(ctx context.Context, subjectID string, isAnonymous bool) error {
	subjectKey := SubjectKey(subjectID, isAnonymous)
	if err := s.userThemes.DeleteBySubject(ctx, nil, subjectKey); err != nil {
		return fmt.Errorf("clear user data: %w", err)
	}
	batch := s.cache.Batch()
	batch.Delete(cache.NamespaceRecentReadings, subjectKey)
	batch.Delete(cache.NamespaceUserPatterns, subjectKey)
	if err := batch.Exec(ctx); err != nil {
		return fmt.Errorf("clear user data: %w", err)
	}
	s.log.Info("cleared user data", "subject_id", subjectKey)
	return nil
}
