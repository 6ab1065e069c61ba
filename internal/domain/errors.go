package domain

import (
	"errors"
	"fmt"
)

// Request-level failures. Both are rejected before any downstream call.
var (
	ErrSignatureMismatch    = errors.New("signature mismatch")
	ErrMalformedRequestBody = errors.New("malformed request body")
)

// Stage-level failures raised after the signature has been verified.
var (
	ErrMediaFetch  = errors.New("media fetch failed")
	ErrTransform   = errors.New("image transform failed")
	ErrStoreUpload = errors.New("store upload failed")
	ErrNotify      = errors.New("reply notify failed")
)

// Stage names one step of the image pipeline.
type Stage string

const (
	StageNone      Stage = ""
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StageStore     Stage = "store"
	StageNotify    Stage = "notify"
)

// Err returns the sentinel error for the stage.
func (s Stage) Err() error {
	switch s {
	case StageFetch:
		return ErrMediaFetch
	case StageTransform:
		return ErrTransform
	case StageStore:
		return ErrStoreUpload
	case StageNotify:
		return ErrNotify
	default:
		return nil
	}
}

// StageError is returned by pipeline stages. StatusCode and Body are set when
// the failure came from an upstream HTTP response.
type StageError struct {
	Stage      Stage
	StatusCode int
	Body       string
	Err        error
}

// NewStageError wraps err as a failure of stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// NewUpstreamError records a non-success upstream response for stage.
func NewUpstreamError(stage Stage, status int, body string) *StageError {
	return &StageError{
		Stage:      stage,
		StatusCode: status,
		Body:       body,
		Err:        fmt.Errorf("unexpected status %d", status),
	}
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %v", e.Stage.Err(), e.Err)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{e.Stage.Err(), e.Err}
}

// StageOf reports the stage recorded in err, if any.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageNone
}

// StatusOf reports the upstream HTTP status recorded in err, or 0.
func StatusOf(err error) int {
	var se *StageError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
