package models

import (
	"errors"
	"fmt"
)

// Kind partitions pipeline failures by the stage that produced them.
type Kind string

const (
	// KindConfig covers a missing or malformed template source.
	KindConfig Kind = "config"
	// KindExtraction covers a page that cannot be read or rasterized.
	KindExtraction Kind = "extraction"
	// KindAssembly covers a category folder or artifact that cannot be written.
	KindAssembly Kind = "assembly"
	// KindBatch covers catastrophic setup failure, e.g. no input document
	// could be opened at all.
	KindBatch Kind = "batch"
)

// PipelineError is the error type produced by pipeline components.
type PipelineError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewConfigError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindConfig, Message: message, Cause: cause}
}

func NewExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExtraction, Message: message, Cause: cause}
}

func NewAssemblyError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindAssembly, Message: message, Cause: cause}
}

func NewBatchError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindBatch, Message: message, Cause: cause}
}

// IsKind reports whether err is (or wraps) a PipelineError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Kind == kind
}

func IsConfigError(err error) bool     { return IsKind(err, KindConfig) }
func IsExtractionError(err error) bool { return IsKind(err, KindExtraction) }
func IsAssemblyError(err error) bool   { return IsKind(err, KindAssembly) }
func IsBatchError(err error) bool      { return IsKind(err, KindBatch) }
