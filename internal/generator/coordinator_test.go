package generator_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jonathanprocter/insight-atlas-server/internal/generator"
	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/speech"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers/text"
	"github.com/jonathanprocter/insight-atlas-server/internal/recovery"
	"github.com/jonathanprocter/insight-atlas-server/internal/store"
	"github.com/jonathanprocter/insight-atlas-server/internal/testutil"
)

var errTransport = errors.New("connection reset by peer")

type testHarness struct {
	coord    *generator.Coordinator
	store    *store.Store
	log      *recovery.Log
	results  chan models.Result
	progress chan models.ProgressSnapshot
}

func newHarness(t *testing.T, textClient text.Client, speechClient speech.Client) *testHarness {
	t.Helper()
	database := testutil.SetupTestDB(t)
	h := &testHarness{
		store:    store.New(database),
		log:      recovery.NewLog(database),
		results:  make(chan models.Result, 4),
		progress: make(chan models.ProgressSnapshot, 256),
	}
	h.coord = generator.New(generator.Options{
		Text:             textClient,
		Speech:           speechClient,
		Log:              h.log,
		Repo:             h.store,
		AudioDir:         t.TempDir(),
		TextModel:        "test-model",
		MaxAudioAttempts: 3,
		OnProgress: func(s models.ProgressSnapshot) {
			select {
			case h.progress <- s:
			default:
			}
		},
		OnResult: func(r models.Result) { h.results <- r },
	})
	return h
}

func (h *testHarness) waitResult(t *testing.T) models.Result {
	t.Helper()
	select {
	case r := <-h.results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a terminal result")
		return models.Result{}
	}
}

func plainRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Title:    "The Test Book",
		Author:   "A. Author",
		FileKind: "txt",
		Document: []byte("Some source material about testing."),
		Settings: models.GenerationSettings{
			Mode: "summary", Tone: "neutral", Format: "guide", SummaryDepth: "standard",
		},
	}
}

func TestStartToCompletion(t *testing.T) {
	h := newHarness(t, &text.MockClient{Chunks: []string{"[QUICK_GLANCE]\n", "A short guide.", "\n[/QUICK_GLANCE]"}}, nil)

	id, err := h.coord.Start(plainRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id == "" {
		t.Fatal("Start returned an empty request id")
	}

	res := h.waitResult(t)
	if !res.Success {
		t.Fatalf("expected success, got kind=%q message=%q", res.ErrorKind, res.Message)
	}
	if res.RequestID != id {
		t.Errorf("result request id = %q, want %q", res.RequestID, id)
	}
	if res.Content != "[QUICK_GLANCE]\nA short guide.\n[/QUICK_GLANCE]" {
		t.Errorf("unexpected content: %q", res.Content)
	}
	if res.Audio != nil {
		t.Errorf("no voice was requested, but got an audio outcome")
	}

	if got := h.coord.State(); got != generator.StateCompleted {
		t.Errorf("state = %q, want %q", got, generator.StateCompleted)
	}
	if p := h.coord.Progress(); p.Completion != 1.0 {
		t.Errorf("completion = %v, want 1.0", p.Completion)
	}

	// The finished guide landed in the library.
	if res.GuideID == 0 {
		t.Fatal("result carries no guide id")
	}
	g, err := h.store.GetGuide(res.GuideID)
	if err != nil {
		t.Fatalf("GetGuide failed: %v", err)
	}
	if g.Title != "The Test Book" || g.Content != res.Content {
		t.Errorf("persisted guide does not match result: %+v", g)
	}

	// A completed run leaves no recovery entry behind.
	if entry, err := h.log.Pending(); err != nil || entry != nil {
		t.Errorf("recovery slot not empty after completion: entry=%v err=%v", entry, err)
	}
}

func TestSecondStartRejectedWhileRunning(t *testing.T) {
	block := make(chan struct{})
	h := newHarness(t, &text.MockClient{Chunks: []string{"held "}, Block: block}, nil)

	id, err := h.coord.Start(plainRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := h.coord.Start(plainRequest()); err != generator.ErrAlreadyRunning {
		t.Fatalf("second Start error = %v, want generator.ErrAlreadyRunning", err)
	}
	// The rejection left the first run untouched.
	if p := h.coord.Progress(); p.RequestID != id {
		t.Errorf("progress request id = %q, want first run's %q", p.RequestID, id)
	}

	close(block)
	res := h.waitResult(t)
	if !res.Success || res.RequestID != id {
		t.Fatalf("first run did not complete normally: %+v", res)
	}

	// Terminal state accepts a fresh run.
	if _, err := h.coord.Start(plainRequest()); err != nil {
		t.Fatalf("Start after completion failed: %v", err)
	}
	h.waitResult(t)
}

func TestWordCountAccumulatesMonotonically(t *testing.T) {
	h := newHarness(t, &text.MockClient{Chunks: []string{"Hello", " world"}}, nil)

	id, err := h.coord.Start(plainRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.waitResult(t)

	var counts []int
	var completions []float64
	for len(h.progress) > 0 {
		s := <-h.progress
		if s.RequestID != id {
			t.Fatalf("snapshot for unexpected request %q", s.RequestID)
		}
		counts = append(counts, s.WordCount)
		completions = append(completions, s.Completion)
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[i-1] {
			t.Errorf("word count decreased: %v", counts)
		}
		if completions[i] < completions[i-1] {
			t.Errorf("completion decreased: %v", completions)
		}
	}
	// "Hello" then " world" reads as one word, then two: the split word
	// is never double counted.
	var streamed []int
	for i, n := range counts {
		if n > 0 && (i == 0 || counts[i-1] != n) {
			streamed = append(streamed, n)
		}
	}
	if len(streamed) != 2 || streamed[0] != 1 || streamed[1] != 2 {
		t.Errorf("streamed word counts = %v, want [1 2]", streamed)
	}
}

func TestCancelMidStream(t *testing.T) {
	chunks := make([]string, 100)
	for i := range chunks {
		chunks[i] = "word "
	}
	h := newHarness(t, &text.MockClient{Chunks: chunks, Delay: 5 * time.Millisecond}, nil)

	id, err := h.coord.Start(plainRequest())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let a few deltas land first.
	deadline := time.After(3 * time.Second)
	for h.coord.Progress().WordCount < 3 {
		select {
		case <-deadline:
			t.Fatal("stream never progressed")
		case <-time.After(time.Millisecond):
		}
	}

	h.coord.Cancel()
	res := h.waitResult(t)
	if res.Success || res.ErrorKind != models.ErrKindCancelled {
		t.Fatalf("expected a cancelled result, got %+v", res)
	}
	if res.RequestID != id {
		t.Errorf("cancelled result for request %q, want %q", res.RequestID, id)
	}
	if entry, err := h.log.Pending(); err != nil || entry != nil {
		t.Errorf("recovery slot not cleared on cancel: entry=%v err=%v", entry, err)
	}

	// Nothing from the dead run arrives after the terminal result.
	for len(h.progress) > 0 {
		<-h.progress
	}
	time.Sleep(50 * time.Millisecond)
	if len(h.progress) != 0 {
		s := <-h.progress
		t.Errorf("snapshot published after cancellation: %+v", s)
	}

	// Cancel with nothing running is a quiet no-op.
	h.coord.Cancel()
	select {
	case r := <-h.results:
		t.Errorf("redundant Cancel produced a result: %+v", r)
	default:
	}
}

func TestProviderFailureFailsRun(t *testing.T) {
	h := newHarness(t, &text.MockClient{Err: errTransport}, nil)

	if _, err := h.coord.Start(plainRequest()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	res := h.waitResult(t)
	if res.Success {
		t.Fatal("expected a failed result")
	}
	if res.ErrorKind != models.ErrKindNetwork {
		t.Errorf("error kind = %q, want %q", res.ErrorKind, models.ErrKindNetwork)
	}
	if entry, err := h.log.Pending(); err != nil || entry != nil {
		t.Errorf("recovery slot not cleared on failure: entry=%v err=%v", entry, err)
	}
	if got := h.coord.State(); got != generator.StateFailed {
		t.Errorf("state = %q, want %q", got, generator.StateFailed)
	}
}

func TestAudioRetrySucceedsWithinBudget(t *testing.T) {
	sp := &speech.MockClient{FailFirst: 1}
	h := newHarness(t, &text.MockClient{Chunks: []string{"Narrated guide text."}}, sp)

	req := plainRequest()
	req.Voice = "alloy"
	if _, err := h.coord.Start(req); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	res := h.waitResult(t)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Audio == nil || !res.Audio.Succeeded {
		t.Fatalf("expected a successful audio outcome, got %+v", res.Audio)
	}
	if res.Audio.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (one failure, one success)", res.Audio.Attempts)
	}
	if res.Audio.Exhausted {
		t.Error("a successful outcome must not be marked exhausted")
	}
	if _, err := os.Stat(res.Audio.Path); err != nil {
		t.Errorf("narration file missing: %v", err)
	}
	g, err := h.store.GetGuide(res.GuideID)
	if err != nil {
		t.Fatalf("GetGuide failed: %v", err)
	}
	if g.AudioPath != res.Audio.Path || g.AudioVoice != "alloy" {
		t.Errorf("guide audio metadata not persisted: %+v", g)
	}
}

func TestAudioExhaustionDoesNotFailRun(t *testing.T) {
	sp := &speech.MockClient{FailFirst: 10}
	h := newHarness(t, &text.MockClient{Chunks: []string{"Guide text."}}, sp)

	req := plainRequest()
	req.Voice = "alloy"
	if _, err := h.coord.Start(req); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	res := h.waitResult(t)
	if !res.Success {
		t.Fatalf("audio exhaustion must not fail the run: %+v", res)
	}
	if res.Audio == nil || res.Audio.Succeeded || !res.Audio.Exhausted {
		t.Fatalf("expected an exhausted audio outcome, got %+v", res.Audio)
	}
	if res.Audio.Attempts != 3 {
		t.Errorf("attempts = %d, want exactly the ceiling of 3", res.Audio.Attempts)
	}
	if sp.Calls() != 3 {
		t.Errorf("synthesizer called %d times, want 3", sp.Calls())
	}
	g, err := h.store.GetGuide(res.GuideID)
	if err != nil {
		t.Fatalf("GetGuide failed: %v", err)
	}
	if g.AudioPath != "" {
		t.Errorf("exhausted run must not attach an audio path, got %q", g.AudioPath)
	}
}

func TestRetryAudioAfterExhaustion(t *testing.T) {
	sp := &speech.MockClient{FailFirst: 3}
	h := newHarness(t, &text.MockClient{Chunks: []string{"Guide text."}}, sp)

	req := plainRequest()
	req.Voice = "alloy"
	if _, err := h.coord.Start(req); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	res := h.waitResult(t)
	if res.Audio == nil || !res.Audio.Exhausted {
		t.Fatalf("expected in-run exhaustion first, got %+v", res.Audio)
	}

	// A manual retry gets a fresh attempt budget and, with the transient
	// failures gone, succeeds on its first call.
	outcome, err := h.coord.RetryAudio(context.Background(), "")
	if err != nil {
		t.Fatalf("RetryAudio failed: %v", err)
	}
	if !outcome.Succeeded || outcome.Attempts != 1 {
		t.Fatalf("retry outcome = %+v, want success on attempt 1", outcome)
	}
	if outcome.Voice != "alloy" {
		t.Errorf("retry voice = %q, want the run's voice", outcome.Voice)
	}

	last := h.coord.LastResult()
	if last == nil || last.Audio == nil || !last.Audio.Succeeded {
		t.Errorf("last result not updated with the retried audio: %+v", last)
	}
	g, err := h.store.GetGuide(res.GuideID)
	if err != nil {
		t.Fatalf("GetGuide failed: %v", err)
	}
	if g.AudioPath != outcome.Path {
		t.Errorf("guide audio path = %q, want %q", g.AudioPath, outcome.Path)
	}
}

func TestRetryAudioRequiresSuccessfulRun(t *testing.T) {
	h := newHarness(t, &text.MockClient{Err: errTransport}, &speech.MockClient{})
	if _, err := h.coord.RetryAudio(context.Background(), "alloy"); err == nil {
		t.Fatal("RetryAudio before any run must fail")
	}
	if _, err := h.coord.Start(plainRequest()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.waitResult(t)
	if _, err := h.coord.RetryAudio(context.Background(), "alloy"); err == nil {
		t.Fatal("RetryAudio after a failed run must fail")
	}
}

func TestInterruptedRunRecovery(t *testing.T) {
	database := testutil.SetupTestDB(t)
	rlog := recovery.NewLog(database)

	// Simulate a run the process died in the middle of: the slot holds
	// the request, but no coordinator remembers it.
	orig := plainRequest()
	orig.ID = "dead-run"
	if err := rlog.Save(&models.RecoveryEntry{Request: orig, Phase: models.PhaseStreaming, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results := make(chan models.Result, 1)
	coord := generator.New(generator.Options{
		Text:      &text.MockClient{Chunks: []string{"Recovered ", "content."}},
		Log:       rlog,
		Repo:      store.New(database),
		AudioDir:  t.TempDir(),
		TextModel: "test-model",
		OnResult:  func(r models.Result) { results <- r },
	})

	if !coord.HasInterrupted() {
		t.Fatal("HasInterrupted = false with a pending entry")
	}
	entry, err := coord.InterruptedInfo()
	if err != nil || entry == nil {
		t.Fatalf("InterruptedInfo: entry=%v err=%v", entry, err)
	}
	if entry.Request.Title != orig.Title || entry.Phase != models.PhaseStreaming {
		t.Errorf("recovered entry mismatch: %+v", entry)
	}
	if string(entry.Request.Document) != string(orig.Document) {
		t.Error("recovered entry lost the source document")
	}

	depth := "brief"
	id, err := coord.ResumeInterrupted(&models.GenerationSettings{
		Mode: orig.Settings.Mode, Tone: orig.Settings.Tone,
		Format: orig.Settings.Format, SummaryDepth: depth,
	})
	if err != nil {
		t.Fatalf("ResumeInterrupted failed: %v", err)
	}
	// The resumed run is a fresh run, not a continuation of the dead one.
	if id == "dead-run" {
		t.Error("resume reused the dead run's request id")
	}
	if coord.HasInterrupted() {
		t.Error("HasInterrupted = true while the resumed run is active")
	}

	select {
	case res := <-results:
		if !res.Success || res.Content != "Recovered content." {
			t.Fatalf("resumed run result: %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resumed run never finished")
	}

	if coord.HasInterrupted() {
		t.Error("recovery slot survived a completed resume")
	}
	if _, err := coord.ResumeInterrupted(nil); err != generator.ErrNoInterruptedRun {
		t.Errorf("resume with an empty slot: err = %v, want generator.ErrNoInterruptedRun", err)
	}
}

func TestDiscardInterrupted(t *testing.T) {
	database := testutil.SetupTestDB(t)
	rlog := recovery.NewLog(database)
	if err := rlog.Save(&models.RecoveryEntry{Request: plainRequest(), Phase: models.PhasePreparing, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	coord := generator.New(generator.Options{Text: &text.MockClient{}, Log: rlog, AudioDir: t.TempDir()})
	if err := coord.DiscardInterrupted(); err != nil {
		t.Fatalf("DiscardInterrupted failed: %v", err)
	}
	if coord.HasInterrupted() {
		t.Error("entry still pending after discard")
	}
	// Discarding again is harmless.
	if err := coord.DiscardInterrupted(); err != nil {
		t.Fatalf("second DiscardInterrupted failed: %v", err)
	}
}
