// The generation coordinator owns the lifecycle of a guide generation
// run: single-flight execution, live progress, cancellation, recovery
// after an abnormal process stop, and bounded retry of the audio step.
//
// Concurrency model: the mutex serializes state transitions and
// snapshot/result publication only. The run itself executes on its own
// goroutine and never holds the lock across a provider call, so network
// I/O cannot block observers. Every callback from the run is guarded by
// the request id and state, which is how late events from a cancelled or
// superseded run get dropped.

package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/insight-atlas-server/internal/extract"
	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/speech"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/text"
	"github.com/jonathanprocter/insight-atlas-server/internal/recovery"
)

// State is the coordinator's position in the run state machine.
type State string

const (
	StateIdle              State = "idle"
	StatePreparing         State = "preparing"
	StateStreamingText     State = "streaming_text"
	StateSynthesizingAudio State = "synthesizing_audio"
	StateFinalizing        State = "finalizing"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
	StateCancelled         State = "cancelled"
)

// Terminal reports whether the state ends a run. Terminal states accept
// a new Start; active ones reject it.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Fractional completion floors per phase. Streaming interpolates between
// its floor and ceiling by word count against the depth's target length.
const (
	completionPreparing    = 0.02
	completionStreaming    = 0.05
	completionStreamingMax = 0.75
	completionSynthesizing = 0.80
	completionFinalizing   = 0.95
)

// ItemRepository is the slice of the library store the coordinator needs
// to persist finished guides. Persistence is fire-and-forget: a store
// failure is logged, never surfaced as a run failure.
type ItemRepository interface {
	SaveGuide(g *models.Guide) (*models.Guide, error)
	UpdateGuide(id int64, g *models.Guide) error
	UpdateGuideAudio(id int64, path string, seconds float64, voice string) error
}

// Options configures a Coordinator.
type Options struct {
	Text             text.Client
	Speech           speech.Client
	Log              *recovery.Log
	Repo             ItemRepository
	AudioDir         string
	TextModel        string
	MaxAudioAttempts int
	// OnProgress, when set, is invoked with every snapshot update, in
	// order, while the coordinator lock is held. It must return quickly
	// and must not call back into the coordinator.
	OnProgress func(models.ProgressSnapshot)
	// OnResult, when set, is invoked once per run at its terminal
	// transition, under the same rules as OnProgress.
	OnResult func(models.Result)
}

// Coordinator supervises at most one generation run at a time.
type Coordinator struct {
	mu             sync.Mutex
	state          State
	req            *models.GenerationRequest
	cancelRun      context.CancelFunc
	snapshot       models.ProgressSnapshot
	lastResult     *models.Result
	audioRetryBusy bool

	text       text.Client
	speech     speech.Client
	log        *recovery.Log
	repo       ItemRepository
	audioDir   string
	textModel  string
	retry      RetryPolicy
	onProgress func(models.ProgressSnapshot)
	onResult   func(models.Result)
}

// New creates an idle Coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{
		state:      StateIdle,
		text:       opts.Text,
		speech:     opts.Speech,
		log:        opts.Log,
		repo:       opts.Repo,
		audioDir:   opts.AudioDir,
		textModel:  opts.TextModel,
		retry:      RetryPolicy{MaxAttempts: opts.MaxAudioAttempts},
		onProgress: opts.OnProgress,
		onResult:   opts.OnResult,
	}
}

// Start accepts a new generation run. It writes the recovery entry
// durably, resets the progress snapshot, and returns the run's request
// id immediately; the run proceeds asynchronously. Returns
// ErrAlreadyRunning when a run is active.
func (c *Coordinator) Start(req models.GenerationRequest) (string, error) {
	c.mu.Lock()
	if c.state != StateIdle && !c.state.Terminal() {
		c.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	// The entry must be durable before the run proceeds past Preparing:
	// a crash between here and the first provider call still leaves a
	// recoverable record.
	entry := &models.RecoveryEntry{Request: req, Phase: models.PhasePreparing, CreatedAt: time.Now()}
	if err := c.log.Save(entry); err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("failed to persist recovery entry: %w", err)
	}

	runReq := req
	c.req = &runReq
	c.state = StatePreparing
	c.lastResult = nil
	// Snapshot reset is atomic with the transition into Preparing, which
	// is what keeps run N+1's updates from interleaving with run N's.
	c.snapshot = models.ProgressSnapshot{
		RequestID:  req.ID,
		Phase:      models.PhasePreparing,
		Model:      c.textModel,
		Completion: completionPreparing,
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel
	c.publishLocked()
	c.mu.Unlock()

	go c.run(ctx, cancel, runReq)
	return req.ID, nil
}

// Cancel aborts the active run. It is a no-op when nothing is running.
// The Cancelled result is published synchronously and the recovery slot
// cleared before the provider call is signalled, so the caller observes
// the terminal state immediately even if I/O teardown finishes later.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle || c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	cancel := c.cancelRun
	c.cancelRun = nil
	c.state = StateCancelled
	res := models.Result{
		RequestID: c.req.ID,
		ErrorKind: models.ErrKindCancelled,
		Message:   "generation cancelled",
		EndedAt:   time.Now(),
	}
	c.lastResult = &res
	if err := c.log.Clear(); err != nil {
		log.Printf("Failed to clear recovery slot on cancel: %v", err)
	}
	if c.onResult != nil {
		c.onResult(res)
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Progress returns the current snapshot. Always available; between runs
// it reflects the last run's final progress.
func (c *Coordinator) Progress() models.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastResult returns the terminal outcome of the most recent run, or nil
// if no run has finished since the last Start.
func (c *Coordinator) LastResult() *models.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return nil
	}
	res := *c.lastResult
	return &res
}

// HasInterrupted reports whether a recovery entry from an abnormally
// stopped run is pending. Always false while a run is active: the active
// run owns the slot.
func (c *Coordinator) HasInterrupted() bool {
	entry, err := c.InterruptedInfo()
	return err == nil && entry != nil
}

// InterruptedInfo returns the pending recovery entry, or nil when there
// is none. Valid before any Start in the current process lifetime.
func (c *Coordinator) InterruptedInfo() (*models.RecoveryEntry, error) {
	c.mu.Lock()
	active := c.state != StateIdle && !c.state.Terminal()
	c.mu.Unlock()
	if active {
		return nil, nil
	}
	return c.log.Pending()
}

// ResumeInterrupted restarts the persisted request. Resume is
// restart-from-scratch: partially streamed text from the dead run was
// never durably retained, so the full pipeline runs again with the
// original inputs and progress begins at zero. This is NOT mid-stream
// continuation. A fresh request id is minted so nothing from the dead
// run can ever be attributed to the resumed one. A non-nil settings
// overrides the persisted settings snapshot.
func (c *Coordinator) ResumeInterrupted(settings *models.GenerationSettings) (string, error) {
	entry, err := c.InterruptedInfo()
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", ErrNoInterruptedRun
	}
	req := entry.Request
	req.ID = ""
	if settings != nil {
		req.Settings = *settings
	}
	return c.Start(req)
}

// DiscardInterrupted clears the pending recovery entry without running
// anything. A no-op (not an error) when none exists or a run is active.
func (c *Coordinator) DiscardInterrupted() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && !c.state.Terminal() {
		return nil
	}
	return c.log.Clear()
}

// RetryAudio makes a fresh narration attempt for the last successful
// run, after the in-run policy was exhausted or narration was skipped.
// The attempt gets a brand-new AudioOutcome with its own attempt budget.
func (c *Coordinator) RetryAudio(ctx context.Context, voice string) (*models.AudioOutcome, error) {
	c.mu.Lock()
	if (c.state != StateIdle && !c.state.Terminal()) || c.audioRetryBusy {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	last := c.lastResult
	if last == nil || !last.Success {
		c.mu.Unlock()
		return nil, fmt.Errorf("no successful generation to narrate")
	}
	if voice == "" && last.Audio != nil {
		voice = last.Audio.Voice
	}
	if voice == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("no narration voice configured")
	}
	reqID, content, guideID := last.RequestID, last.Content, last.GuideID
	c.audioRetryBusy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.audioRetryBusy = false
		c.mu.Unlock()
	}()

	outcome := c.synthesizeWithRetry(ctx, reqID, voice, content)

	c.mu.Lock()
	if c.lastResult != nil && c.lastResult.RequestID == reqID {
		c.lastResult.Audio = outcome
	}
	c.mu.Unlock()

	if outcome.Succeeded && guideID != 0 && c.repo != nil {
		if err := c.repo.UpdateGuideAudio(guideID, outcome.Path, outcome.Duration.Seconds(), outcome.Voice); err != nil {
			log.Printf("Failed to attach narration to guide %d: %v", guideID, err)
		}
	}
	return outcome, nil
}

// run executes one generation on its own goroutine.
func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, req models.GenerationRequest) {
	defer cancel()

	source, err := extract.Text(req.Document, req.FileKind)
	if err != nil {
		c.finish(req.ID, models.Result{
			RequestID: req.ID,
			ErrorKind: models.ErrKindUnknown,
			Message:   err.Error(),
		})
		return
	}

	if !c.enterPhase(req.ID, models.PhaseStreaming, StateStreamingText, completionStreaming) {
		return
	}
	promptReq := BuildPrompt(req, source)
	promptReq.Model = c.textModel
	content, err := c.text.Generate(ctx, promptReq, func(delta string) {
		c.appendDelta(req.ID, req.Settings.SummaryDepth, delta)
	})
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled: the terminal result was already published by
			// Cancel. This run is detached; drop its outcome.
			return
		}
		perr := providers.Classify(err)
		c.finish(req.ID, models.Result{
			RequestID: req.ID,
			ErrorKind: perr.Kind,
			Message:   perr.Message,
		})
		return
	}

	var audio *models.AudioOutcome
	if req.Voice != "" {
		if !c.enterPhase(req.ID, models.PhaseSynthesizing, StateSynthesizingAudio, completionSynthesizing) {
			return
		}
		audio = c.synthesizeWithRetry(ctx, req.ID, req.Voice, content)
		if ctx.Err() != nil {
			return
		}
	}

	if !c.enterPhase(req.ID, models.PhaseFinalizing, StateFinalizing, completionFinalizing) {
		return
	}
	guideID := c.persist(req, content, audio)

	c.finish(req.ID, models.Result{
		RequestID: req.ID,
		Success:   true,
		Content:   content,
		Audio:     audio,
		GuideID:   guideID,
	})
}

// synthesizeWithRetry runs the audio step under the retry policy. Audio
// failure never fails the overall run: the returned outcome records the
// attempts and, past the ceiling, is marked exhausted.
func (c *Coordinator) synthesizeWithRetry(ctx context.Context, runID, voice, content string) *models.AudioOutcome {
	outcome := &models.AudioOutcome{Voice: voice}
	narration := NarrationText(content)
	for {
		outcome.Attempts++
		audio, err := c.speech.Synthesize(ctx, narration, voice)
		if err == nil {
			path, werr := c.writeAudio(runID, audio)
			if werr == nil {
				outcome.Path = path
				outcome.Duration = audio.Duration
				outcome.Succeeded = true
				return outcome
			}
			err = werr
		}
		if ctx.Err() != nil {
			return outcome
		}
		if c.retry.Decide(outcome.Attempts) == Exhausted {
			outcome.Exhausted = true
			log.Printf("Audio synthesis exhausted after %d attempts: %v", outcome.Attempts, err)
			return outcome
		}
		log.Printf("Audio synthesis attempt %d failed, retrying: %v", outcome.Attempts, err)
	}
}

func (c *Coordinator) writeAudio(runID string, audio *speech.Audio) (string, error) {
	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create narration directory: %w", err)
	}
	path := filepath.Join(c.audioDir, runID+".mp3")
	if err := os.WriteFile(path, audio.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to save narration file: %w", err)
	}
	return path, nil
}

func (c *Coordinator) persist(req models.GenerationRequest, content string, audio *models.AudioOutcome) int64 {
	if c.repo == nil {
		return 0
	}
	g := &models.Guide{
		Title:        req.Title,
		Author:       req.Author,
		FileKind:     req.FileKind,
		Content:      content,
		Mode:         req.Settings.Mode,
		Tone:         req.Settings.Tone,
		Format:       req.Settings.Format,
		SummaryDepth: req.Settings.SummaryDepth,
	}
	if audio != nil && audio.Succeeded {
		g.AudioPath = audio.Path
		g.AudioSeconds = audio.Duration.Seconds()
		g.AudioVoice = audio.Voice
	}
	if req.TargetGuideID != 0 {
		if err := c.repo.UpdateGuide(req.TargetGuideID, g); err != nil {
			log.Printf("Failed to update guide %d: %v", req.TargetGuideID, err)
			return 0
		}
		return req.TargetGuideID
	}
	saved, err := c.repo.SaveGuide(g)
	if err != nil {
		log.Printf("Failed to save guide: %v", err)
		return 0
	}
	return saved.ID
}

// enterPhase transitions the run into state/phase if it is still the
// current run. Returns false when the run has been superseded or ended,
// telling the caller to stop.
func (c *Coordinator) enterPhase(runID string, phase models.Phase, state State, floor float64) bool {
	c.mu.Lock()
	if !c.currentRunLocked(runID) {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.snapshot.Phase = phase
	if floor > c.snapshot.Completion {
		c.snapshot.Completion = floor
	}
	c.publishLocked()
	c.mu.Unlock()

	// Best effort; the request fields already persisted are what
	// recovery needs.
	if err := c.log.UpdatePhase(phase); err != nil {
		log.Printf("Failed to record phase in recovery slot: %v", err)
	}
	return true
}

// appendDelta folds one streamed text delta into the snapshot. Word
// count is recomputed over the accumulated content so words split across
// chunk boundaries are counted once.
func (c *Coordinator) appendDelta(runID, depth, delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentRunLocked(runID) || c.state != StateStreamingText {
		return
	}
	c.snapshot.Content += delta
	c.snapshot.WordCount = len(strings.Fields(c.snapshot.Content))

	frac := float64(c.snapshot.WordCount) / float64(targetWords(depth))
	if frac > 1 {
		frac = 1
	}
	est := completionStreaming + (completionStreamingMax-completionStreaming)*frac
	if est > c.snapshot.Completion {
		c.snapshot.Completion = est
	}
	c.publishLocked()
}

// finish publishes the terminal result and clears the recovery slot,
// exactly once per run. Late calls for a run that was cancelled or
// superseded are dropped.
func (c *Coordinator) finish(runID string, res models.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentRunLocked(runID) {
		return
	}
	switch {
	case res.Success:
		c.state = StateCompleted
		c.snapshot.Completion = 1.0
	case res.ErrorKind == models.ErrKindCancelled:
		c.state = StateCancelled
	default:
		c.state = StateFailed
	}
	res.EndedAt = time.Now()
	c.lastResult = &res
	c.cancelRun = nil
	// Clearing is synchronous with the terminal transition: a finished
	// run is never "interrupted".
	if err := c.log.Clear(); err != nil {
		log.Printf("Failed to clear recovery slot: %v", err)
	}
	if c.onResult != nil {
		c.onResult(res)
	}
}

func (c *Coordinator) currentRunLocked(runID string) bool {
	return c.req != nil && c.req.ID == runID && !c.state.Terminal() && c.state != StateIdle
}

func (c *Coordinator) publishLocked() {
	if c.onProgress != nil {
		c.onProgress(c.snapshot)
	}
}
