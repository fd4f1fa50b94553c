package models

import "time"

// GenerationSettings is the user-tunable snapshot captured when a
// generation starts. Immutable for the duration of the run.
type GenerationSettings struct {
	Mode         string `json:"mode"`          // e.g. "study", "summary", "deep-dive"
	Tone         string `json:"tone"`          // e.g. "neutral", "conversational"
	Format       string `json:"format"`        // e.g. "guide", "outline"
	SummaryDepth string `json:"summary_depth"` // "brief", "standard", "comprehensive"
}

// GenerationRequest holds every input to a single generation run.
// The coordinator owns it exclusively while the run is active; the
// recovery log keeps a durable copy.
type GenerationRequest struct {
	ID            string             `json:"id"` // minted by the coordinator at start
	Title         string             `json:"title"`
	Author        string             `json:"author"`
	FileKind      string             `json:"file_kind"` // "pdf", "txt", "md"
	Document      []byte             `json:"-"`
	Settings      GenerationSettings `json:"settings"`
	Voice         string             `json:"voice,omitempty"`           // empty disables narration
	TargetGuideID int64              `json:"target_guide_id,omitempty"` // 0 means "create new"
}

// RecoveryEntry is the durable projection of an in-flight request. It
// deliberately omits streamed text so the slot stays small; recovery is
// restart-from-scratch, never mid-stream continuation.
type RecoveryEntry struct {
	Request   GenerationRequest `json:"request"`
	Phase     Phase             `json:"phase"`
	CreatedAt time.Time         `json:"created_at"`
}

// AudioOutcome records the narration attempts for one run. It is created
// on the first attempt, its counter grows on every attempt, and it never
// changes again once a success is recorded.
type AudioOutcome struct {
	Path      string        `json:"path,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Voice     string        `json:"voice"`
	Attempts  int           `json:"attempts"`
	Succeeded bool          `json:"succeeded"`
	Exhausted bool          `json:"exhausted"`
}

// ErrorKind labels terminal failures and provider errors.
type ErrorKind string

const (
	ErrKindNone            ErrorKind = ""
	ErrKindNetwork         ErrorKind = "network"
	ErrKindAuth            ErrorKind = "auth"
	ErrKindRateLimit       ErrorKind = "rate_limit"
	ErrKindContentRejected ErrorKind = "content_rejected"
	ErrKindCancelled       ErrorKind = "cancelled"
	ErrKindUnknown         ErrorKind = "unknown"
)

// Result is the terminal outcome of a run. Produced exactly once per run
// and retained until the next run reaches its own terminal state.
type Result struct {
	RequestID string        `json:"request_id"`
	Success   bool          `json:"success"`
	Content   string        `json:"content,omitempty"`
	Audio     *AudioOutcome `json:"audio,omitempty"`
	GuideID   int64         `json:"guide_id,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	EndedAt   time.Time     `json:"ended_at"`
}
