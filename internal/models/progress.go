package models

// Phase enumerates the stages of an active generation run.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePreparing    Phase = "preparing"
	PhaseStreaming    Phase = "streaming_text"
	PhaseSynthesizing Phase = "synthesizing_audio"
	PhaseFinalizing   Phase = "finalizing"
)

// ProgressSnapshot is the observable state of the in-flight run. Written
// only by the coordinator, read freely by any number of observers. Within
// one run, WordCount and Content only grow and Completion only increases;
// everything resets atomically when a new run is accepted.
type ProgressSnapshot struct {
	RequestID  string  `json:"request_id"`
	Phase      Phase   `json:"phase"`
	WordCount  int     `json:"word_count"`
	Content    string  `json:"content"`
	Model      string  `json:"model"`
	Completion float64 `json:"completion"` // fractional, in [0.0, 1.0]
}

// ProgressUpdate is the payload broadcast to websocket observers.
type ProgressUpdate struct {
	JobID      string  `json:"jobId"`
	RequestID  string  `json:"request_id"`
	Phase      Phase   `json:"phase"`
	Message    string  `json:"message"`
	WordCount  int     `json:"word_count"`
	Completion float64 `json:"completion"`
	Status     string  `json:"status"` // e.g. "in_progress", "completed", "failed", "cancelled"
	Done       bool    `json:"done"`
}
