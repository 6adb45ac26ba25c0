package model

import (
	"fmt"
)

// GenerationFailedAnswer is the placeholder answer for failed generation calls.
const GenerationFailedAnswer = "ERROR: generation failed"

// UnknownNodeError is returned for lookups and links on node ids that do not exist.
type UnknownNodeError struct {
	ID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.ID)
}

// DuplicatePassageError is returned when a passage id is reused with different text.
type DuplicatePassageError struct {
	ID string
}

func (e *DuplicatePassageError) Error() string {
	return fmt.Sprintf("passage %q already exists with different content", e.ID)
}

// IndexBuildError is returned when the retrieval indices could not be built.
type IndexBuildError struct {
	Reason string
	Err    error
}

func (e *IndexBuildError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("index build failed: %s", e.Reason)
	}
	return fmt.Sprintf("index build failed: %s: %v", e.Reason, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

// ExternalProviderError wraps failures of NER, embedding, storage or generation providers.
type ExternalProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
}

func (e *ExternalProviderError) Unwrap() error {
	return e.Err
}

// InvalidInputError is returned by validated constructors.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
