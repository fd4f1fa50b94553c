package speech

import (
	"context"
	"time"
)

// Audio is the result of one synthesis call.
type Audio struct {
	Bytes    []byte
	Duration time.Duration
	Voice    string
}

// Client abstracts the audio-synthesis provider. Synthesize is a single
// request/response call (no streaming) and must honor ctx cancellation.
type Client interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// EstimateDuration approximates narration length from word count at a
// typical narration pace of 155 words per minute. The speech endpoint
// does not report duration, so this estimate is what callers get.
func EstimateDuration(words int) time.Duration {
	const wordsPerMinute = 155.0
	return time.Duration(float64(words) / wordsPerMinute * float64(time.Minute))
}
