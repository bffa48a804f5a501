package inference

import "errors"

// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("inference quota exceeded")

// ErrMalformedOutput indicates the provider response could not be parsed
// into the expected interpretation shape.
var ErrMalformedOutput = errors.New("inference output malformed")
