package generator

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when a run is active. The
	// coordinator is single-flight: concurrent starts are rejected, never
	// queued.
	ErrAlreadyRunning = errors.New("a generation is already running")

	// ErrNoInterruptedRun is returned by ResumeInterrupted when the
	// recovery slot is empty.
	ErrNoInterruptedRun = errors.New("no interrupted generation to resume")
)
