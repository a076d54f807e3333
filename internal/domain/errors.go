package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the pipeline. Configuration and argument errors are
// raised immediately at the violating call; provider-transient errors
// (unavailable, rate limited, timeout) pass through unmodified with no retry.
var (
	ErrInvalidConfig      = errors.New("invalid config")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
	ErrTimeout            = errors.New("timeout")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrMissingPlaceholder = errors.New("missing placeholder")
)

// Step names the pipeline stage of a single question-answer exchange.
type Step string

const (
	StepRetrieving     Step = "retrieving"
	StepPromptBuilding Step = "prompt building"
	StepGenerating     Step = "generating"
)

// StepError reports at which stage an exchange failed, so callers can decide
// between a degraded answer and failing the request outright.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
