package speech

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/providers"
)

// MockClient is a scriptable Client for tests: the first FailFirst calls
// fail with Err (a network-kind provider error when Err is nil), later
// calls succeed with canned audio bytes.
type MockClient struct {
	FailFirst int
	Err       error
	Bytes     []byte

	calls int32
}

// Calls reports how many times Synthesize has been invoked.
func (m *MockClient) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func (m *MockClient) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	n := atomic.AddInt32(&m.calls, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int(n) <= m.FailFirst {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, &providers.Error{Kind: models.ErrKindNetwork, Message: "synthesis failed"}
	}
	data := m.Bytes
	if data == nil {
		data = []byte("ID3 mock audio")
	}
	return &Audio{
		Bytes:    data,
		Duration: EstimateDuration(len(strings.Fields(text))),
		Voice:    voice,
	}, nil
}
