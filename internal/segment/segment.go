// Package segment defines the segmentation provider boundary: the opaque
// model call that turns raw text into titled, tagged sections. The core
// pipeline only ever reaches a provider through the Segmenter interface,
// and only on a cache miss.
package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/dervan/noteforge/pkg/types"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate_limited"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnavailable     ErrorKind = "unavailable"
)

// ProviderError is a failure at the segmentation boundary. Timeout,
// RateLimited and Unavailable are transient; InvalidResponse becomes
// permanent once retries are exhausted.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("segment: %s provider %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Request carries one chunk of text to segment. SourceName is the
// originating file name, given to the model as context only.
type Request struct {
	Text       string
	SourceName string
}

// Segmenter is the external segmentation collaborator.
type Segmenter interface {
	// Segment analyzes text and returns its logical sections in source
	// order. Failures are reported as *ProviderError.
	Segment(ctx context.Context, req Request) ([]types.Section, error)

	// Model returns the model identifier, part of every cache key.
	Model() string

	// PromptVersion returns the prompt revision tag, part of every cache
	// key so prompt changes invalidate old entries.
	PromptVersion() string

	// Close releases any resources held by the provider.
	Close() error
}
