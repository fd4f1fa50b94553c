// Error taxonomy shared by the two external provider clients. Both the
// text-generation and audio-synthesis clients surface failures as *Error
// so the coordinator can report a specific kind to callers.

package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// Error is a provider failure with a classified kind.
type Error struct {
	Kind    models.ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// Classify wraps an error from a provider SDK call into an *Error with
// the closest matching kind. Context cancellation maps to Cancelled so
// the coordinator can tell a user abort apart from a real failure.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: models.ErrKindCancelled, Message: err.Error()}
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		kind := models.ErrKindUnknown
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = models.ErrKindAuth
		case http.StatusTooManyRequests:
			kind = models.ErrKindRateLimit
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			kind = models.ErrKindContentRejected
		default:
			if apierr.StatusCode >= 500 {
				kind = models.ErrKindNetwork
			}
		}
		return &Error{Kind: kind, Message: apierr.Error()}
	}

	// Anything else from the SDK at this point is transport-level.
	return &Error{Kind: models.ErrKindNetwork, Message: err.Error()}
}
