// Package conversation implements the controller that owns the conversation
// state machine: it drives the guided examination, hands off into free-query
// mode after the analysis, reconciles the local session cache with the
// backend, and tracks the background analysis job through the poller.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"examen/internal/cache"
	"examen/internal/gateway"
	"examen/internal/logging"
	"examen/internal/poller"
	"examen/internal/types"
)

// Phase is the externally observable controller state. The presentation
// layer uses it to pick the active input surface and to disable duplicate
// submissions.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseGuidedAwaitingInput
	PhaseGuidedSubmitting
	PhaseFreeQueryIdle
	PhaseFreeQueryWaiting
	PhaseAnalysisPending
)

// String returns the display name for each phase.
func (p Phase) String() string {
	names := []string{
		"loading",
		"guided_awaiting_input",
		"guided_submitting",
		"free_query_idle",
		"free_query_waiting",
		"analysis_pending",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

var (
	// ErrBusy is returned when an operation is rejected because another
	// operation for the same controller is still in flight.
	ErrBusy = errors.New("conversation: an operation is already in flight")

	// ErrWrongMode is returned when an operation is invalid for the current
	// mode, e.g. a free query while the examination is still running.
	ErrWrongMode = errors.New("conversation: operation not valid in current mode")
)

// User-visible fixed texts appended by the controller.
const (
	analyzingText    = "Analyzing your answers..."
	modeSwitchText   = "Analysis complete. From now on you can ask questions about the faith and the Doctrine based on the documents."
	queryErrorText   = "An error occurred while processing your question. Please try again."
	emptyAnswerText  = "Sorry, I could not process your question."
	sourcesLabelText = "Sources"
)

// Controller is the conversation state machine. All mutations go through it;
// bubbletea commands call it from separate goroutines, so access is
// serialized with a mutex.
type Controller struct {
	mu sync.Mutex

	gw     gateway.Client
	cache  *cache.Cache
	poller *poller.Poller
	log    *logging.Logger

	state   types.ConversationState
	loading bool

	// hydrated flips once the first load/fetch completed; the cache is never
	// written before that, so a failed startup cannot clobber a snapshot
	// that was not yet restored.
	hydrated bool

	// generation counts sessions. Late responses from a superseded session
	// (the user reset in the meantime) are discarded on arrival.
	generation int

	// analysisPending is true from a successful analysis request until the
	// poller reports the background job done.
	analysisPending bool
	analysisDone    chan struct{}

	lastErr error
}

// New builds a controller. The poller is owned by the controller; Close
// stops it.
func New(gw gateway.Client, c *cache.Cache, p *poller.Poller) *Controller {
	return &Controller{
		gw:     gw,
		cache:  c,
		poller: p,
		log:    logging.Get(logging.CategoryController),
		state:  types.ConversationState{Mode: types.ModeGuided},
	}
}

// State returns a deep copy of the current conversation state.
func (c *Controller) State() types.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Loading reports whether an operation is in flight. The presentation layer
// must disable submissions while true.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last connectivity error observed during synchronization,
// or nil. It is cleared by the next successful sync.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Phase derives the observable controller phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.hydrated:
		return PhaseLoading
	case c.analysisPending:
		return PhaseAnalysisPending
	case c.state.Mode == types.ModeFreeQuery && c.loading:
		return PhaseFreeQueryWaiting
	case c.state.Mode == types.ModeFreeQuery:
		return PhaseFreeQueryIdle
	case c.loading:
		return PhaseGuidedSubmitting
	default:
		return PhaseGuidedAwaitingInput
	}
}

// AnalysisDone returns a channel closed when the background analysis job is
// observed complete. Before any analysis request it returns a closed
// channel, so waiting on it never blocks spuriously.
func (c *Controller) AnalysisDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analysisDone == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.analysisDone
}

// Initialize restores the conversation: cached snapshot first, authoritative
// backend state when the cache is absent or stale. On gateway failure the
// transcript stays empty and the error is surfaced via Err and the return
// value; nothing retries silently.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	gen := c.generation
	c.mu.Unlock()

	cached, err := c.cache.Load()
	if err != nil {
		c.log.Warn("cache load failed, falling back to fetch: %v", err)
	}
	if cached != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			return nil
		}
		c.state = *cached
		c.hydrated = true
		c.loading = false
		c.lastErr = nil
		c.log.Info("restored cached session (%d messages, mode=%s)", len(c.state.Messages), c.state.Mode)
		return nil
	}

	return c.syncFromGateway(ctx, gen)
}

// syncFromGateway pulls the authoritative state and maps it onto the
// conversation. The backend decides the next question and completion; the
// controller decides the mode: a completed exam only enters free-query mode
// when the history shows a prior analysis.
func (c *Controller) syncFromGateway(ctx context.Context, gen int) error {
	snap, err := c.gw.CurrentState(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return nil
	}
	c.loading = false
	if err != nil {
		c.lastErr = err
		c.log.Error("state fetch failed: %v", err)
		return err
	}
	c.lastErr = nil

	next := types.ConversationState{Messages: snap.History}
	switch snap.Status {
	case gateway.StatusCompleted:
		next.Completed = true
		next.Mode = types.ModeGuided
		if next.HasAnalysis() {
			next.Mode = types.ModeFreeQuery
		}
	default:
		next.Completed = false
		next.Mode = types.ModeGuided
		next.CurrentQuestion = snap.NextQuestion
	}

	c.state = next
	c.hydrated = true
	c.persistLocked()
	c.log.Info("synchronized with backend: status=%s mode=%s messages=%d",
		snap.Status, c.state.Mode, len(c.state.Messages))
	return nil
}

// SubmitAnswer records the user's answer to the current guided question,
// then re-synchronizes with the backend, which is authoritative for the next
// question or completion. On network failure the optimistic user message is
// retained and the loading flag cleared so the user can retry.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Mode != types.ModeGuided || c.state.CurrentQuestion == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no guided question awaiting an answer", ErrWrongMode)
	}
	c.loading = true
	gen := c.generation
	questionID := c.state.CurrentQuestion.ID
	c.state.Messages = append(c.state.Messages, types.NewUserMessage(text))
	c.persistLocked()
	c.mu.Unlock()

	if err := c.gw.SubmitAnswer(ctx, questionID, text); err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.loading = false
		}
		c.mu.Unlock()
		c.log.Error("answer submission failed (question=%s): %v", questionID, err)
		return err
	}
	return c.syncFromGateway(ctx, gen)
}

// SubmitFreeQuery asks a free-form doctrine question. A pending placeholder
// is appended immediately so the transcript shows a typing indicator; it is
// replaced exactly once, by the resolved answer or by a fixed error message.
func (c *Controller) SubmitFreeQuery(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Mode != types.ModeFreeQuery {
		c.mu.Unlock()
		return fmt.Errorf("%w: free queries require the examination to be analyzed first", ErrWrongMode)
	}
	c.loading = true
	gen := c.generation
	c.state.Messages = append(c.state.Messages, types.NewUserMessage(text))
	placeholder := types.NewAssistantMessage(types.MsgIDQueryPending, "", types.CategoryDoctrine)
	placeholder.Pending = true
	c.state.Messages = append(c.state.Messages, placeholder)
	c.persistLocked()
	c.mu.Unlock()

	result, err := c.gw.Query(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		// The session was reset while the query was in flight; the
		// placeholder is already gone with the old transcript.
		return nil
	}
	c.state.RemoveMessage(types.MsgIDQueryPending)
	if err != nil {
		c.state.Messages = append(c.state.Messages,
			types.NewAssistantMessage("", queryErrorText, types.CategoryError))
		c.log.Error("free query failed: %v", err)
	} else {
		content := emptyAnswerText
		if result.Answer != "" {
			content = result.Answer
			if result.Sources != "" {
				content += fmt.Sprintf("\n\n%s: %s", sourcesLabelText, result.Sources)
			}
		}
		c.state.Messages = append(c.state.Messages,
			types.NewAssistantMessage("", content, types.CategoryDoctrine))
	}
	c.loading = false
	c.persistLocked()
	return err
}

// RequestAnalysis asks the backend to analyze the completed examination. On
// success the analysis and a mode-switch announcement are appended, the
// conversation flips to free-query mode, and the poller starts tracking the
// backend's progress-aggregation job. On failure everything stays as it was,
// minus the transient analyzing message.
func (c *Controller) RequestAnalysis(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Mode != types.ModeGuided || !c.state.Completed {
		c.mu.Unlock()
		return fmt.Errorf("%w: analysis requires a completed examination", ErrWrongMode)
	}
	c.loading = true
	c.analysisPending = true
	c.analysisDone = make(chan struct{})
	gen := c.generation
	pending := types.NewAssistantMessage(types.MsgIDAnalysisPending, analyzingText, "")
	pending.Pending = true
	c.state.Messages = append(c.state.Messages, pending)
	c.persistLocked()
	c.mu.Unlock()

	analysis, err := c.gw.Analyze(ctx)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil
	}
	c.state.RemoveMessage(types.MsgIDAnalysisPending)
	if err != nil {
		c.loading = false
		c.persistLocked()
		c.mu.Unlock()
		c.signalAnalysisDone()
		c.log.Error("analysis request failed: %v", err)
		return err
	}

	c.state.Messages = append(c.state.Messages,
		types.NewAssistantMessage(types.MsgIDAnalysisResult, analysis, ""))
	c.state.Messages = append(c.state.Messages,
		types.NewAssistantMessage(types.MsgIDModeSwitch, modeSwitchText, types.CategoryModeSwitch))
	c.state.Mode = types.ModeFreeQuery
	c.state.Completed = true
	c.state.CurrentQuestion = nil
	c.loading = false
	c.persistLocked()
	c.mu.Unlock()

	c.log.Info("analysis received, switched to free-query mode")
	c.poller.Start(c.checkJobStatus, c.signalAnalysisDone)
	return nil
}

func (c *Controller) checkJobStatus(ctx context.Context) (bool, error) {
	status, err := c.gw.JobStatus(ctx)
	if err != nil {
		return false, err
	}
	return status == gateway.JobStatusIdle, nil
}

// signalAnalysisDone ends the analysis-pending sub-state and wakes every
// waiter on AnalysisDone. Safe to call from the poller callback and from a
// reset racing it; the channel is detached under the lock so it closes at
// most once.
func (c *Controller) signalAnalysisDone() {
	c.mu.Lock()
	done := c.analysisDone
	c.analysisDone = nil
	c.analysisPending = false
	c.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// StartNewExercise clears all local state, tells the backend to begin a
// fresh examination, and re-synchronizes. Any in-flight responses from the
// old session are discarded when they arrive.
func (c *Controller) StartNewExercise(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = types.ConversationState{Mode: types.ModeGuided}
	c.loading = true
	c.mu.Unlock()

	c.poller.Stop()
	c.signalAnalysisDone()
	if err := c.cache.Clear(); err != nil {
		c.log.Warn("cache clear failed: %v", err)
	}

	if err := c.gw.StartNew(ctx); err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.loading = false
			c.lastErr = err
		}
		c.mu.Unlock()
		c.log.Error("start-new failed: %v", err)
		return err
	}
	return c.syncFromGateway(ctx, gen)
}

// Close stops the poller. Must be called when the owning view is torn down.
func (c *Controller) Close() {
	c.poller.Stop()
}

// persistLocked writes the current state to the cache. Requires c.mu held.
// Writes are skipped before the first successful load/fetch so an empty
// default never overwrites a restorable snapshot. Pending placeholders are
// stripped: they are transient indicators, never final answers. Each
// accepted mutation writes synchronously, so a snapshot on disk is never
// older than one already written.
func (c *Controller) persistLocked() {
	if !c.hydrated {
		return
	}
	durable := c.state.Clone()
	kept := durable.Messages[:0]
	for _, m := range durable.Messages {
		if m.Pending {
			continue
		}
		kept = append(kept, m)
	}
	durable.Messages = kept
	if err := c.cache.Save(&durable); err != nil {
		c.log.Warn("cache save failed: %v", err)
	}
}
