package analysis

import (
	"errors"
	"fmt"
)

// FailureReason untuk analyzer failures
type FailureReason string

const (
	ReasonInputInvalid    FailureReason = "input_invalid"
	ReasonUnavailable     FailureReason = "inference_unavailable"
	ReasonTimeout         FailureReason = "inference_timeout"
	ReasonMalformedOutput FailureReason = "inference_malformed_output"
)

// ErrInputInvalid indicates a request with no usable modality at all;
// rejected before any analyzer runs.
var ErrInputInvalid = errors.New("analysis request has no usable input")

// ErrAllAnalyzersFailed indicates every launched analyzer failed, so no
// assessment can be produced.
var ErrAllAnalyzersFailed = errors.New("all modality analyzers failed")

// ErrEscalationFailed wraps a triage-queue write failure. It must surface to
// the caller: a High/Critical case is never dropped silently.
var ErrEscalationFailed = errors.New("triage escalation did not persist")

// AnalyzerError is a per-modality failure. It is recorded against the
// request's missing side and never aborts the whole analysis on its own.
type AnalyzerError struct {
	Modality Modality
	Reason   FailureReason
	Err      error
}

func (e *AnalyzerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyzer %s: %s: %v", e.Modality, e.Reason, e.Err)
	}
	return fmt.Sprintf("analyzer %s: %s", e.Modality, e.Reason)
}

func (e *AnalyzerError) Unwrap() error { return e.Err }
