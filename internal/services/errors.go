package services

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means the provider call failed or timed out.
	ErrServiceUnavailable = errors.New("llm service unavailable")
	// ErrMalformedOutput means structured output was requested but did not parse.
	ErrMalformedOutput = errors.New("llm output malformed")
	// ErrEmptyOutput means the call succeeded but produced no usable text.
	ErrEmptyOutput = errors.New("llm output empty")
)

// GatewayError carries the failure kind (one of the sentinels above) along
// with the underlying cause. Both match with errors.Is.
type GatewayError struct {
	Purpose Purpose
	Kind    error
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s call: %v", e.Purpose, e.Kind)
	}
	return fmt.Sprintf("%s call: %v: %v", e.Purpose, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
