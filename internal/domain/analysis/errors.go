package analysis

import "errors"

// ErrUnavailable indicates the model provider could not be reached at all, or
// failed server-side. This is the one error class that triggers the offline
// fallback once retries are exhausted.
var ErrUnavailable = errors.New("analysis service unavailable")

// ErrQuotaExceeded indicates the model provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("model quota exceeded")

// ErrTimeout indicates the outbound model call hit its 60s deadline.
var ErrTimeout = errors.New("analysis timed out")

// ErrMisconfigured indicates the provider rejected our credentials; retrying cannot help.
var ErrMisconfigured = errors.New("model provider rejected credentials")

// ErrMalformedResult indicates the model response was missing required fields.
// Nothing is persisted when this is returned.
var ErrMalformedResult = errors.New("incomplete model response")

// ErrNotFound indicates no record exists for the given owner and id.
var ErrNotFound = errors.New("analysis not found")

// ValidationError is a user-correctable input error. Its message is shown to
// the caller verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
