package text

import (
	"context"
	"strings"
	"time"
)

// MockClient is a scriptable Client for tests and offline development.
// It emits Chunks in order (pausing Delay between them, so observers can
// watch progress accumulate), then returns Err or the accumulated text.
type MockClient struct {
	Chunks []string
	Delay  time.Duration
	Err    error
	// Block, when non-nil, is waited on before the final return so a test
	// can hold a run open deliberately.
	Block chan struct{}
}

func (m *MockClient) Generate(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	var b strings.Builder
	for _, chunk := range m.Chunks {
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(m.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}
		onDelta(chunk)
		b.WriteString(chunk)
	}
	if m.Block != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-m.Block:
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return b.String(), nil
}
