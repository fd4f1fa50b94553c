package text

import "context"

// Request describes one text-generation call.
type Request struct {
	System string
	Prompt string
	Model  string
}

// Client abstracts the text-generation provider so it can be replaced or
// mocked. Generate streams the response: onDelta is invoked once per text
// delta as it arrives, and the accumulated full text is returned at the
// end. The call must honor ctx cancellation between deltas.
type Client interface {
	Generate(ctx context.Context, req Request, onDelta func(delta string)) (string, error)
}
