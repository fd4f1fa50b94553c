package generator

// DefaultMaxAudioAttempts is the audio attempt ceiling used when the
// configuration does not set one.
const DefaultMaxAudioAttempts = 3

// Decision is the outcome of consulting the retry policy.
type Decision int

const (
	Retry Decision = iota
	Exhausted
)

// RetryPolicy is the bounded-attempt table governing the audio step.
// It is a pure function of the attempt count: no backoff, no clock. A
// retry is either chained immediately after a failure, or deferred to an
// explicit user-triggered re-attempt once exhausted.
type RetryPolicy struct {
	MaxAttempts int
}

// Decide reports whether another attempt is allowed after `attempts`
// attempts have already been made.
func (p RetryPolicy) Decide(attempts int) Decision {
	ceiling := p.MaxAttempts
	if ceiling <= 0 {
		ceiling = DefaultMaxAudioAttempts
	}
	if attempts >= ceiling {
		return Exhausted
	}
	return Retry
}
