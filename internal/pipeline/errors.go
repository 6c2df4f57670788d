package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError represents a malformed pipeline detected at build time.
//
// Configuration errors include:
//   - Empty stage list
//   - Nil stage in the list
//   - Group stage with no continuation
//   - Value stage that is not the last stage
//   - Period descriptor that the interval generator rejects
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Stage is the zero-based position of the offending stage, or -1.
	Stage int
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeEmptyPipeline indicates there is no stage to run.
	ErrCodeEmptyPipeline ConfigErrorCode = "EMPTY_PIPELINE"

	// ErrCodeNilStage indicates a nil entry in the stage list.
	ErrCodeNilStage ConfigErrorCode = "NIL_STAGE"

	// ErrCodeMissingContinuation indicates a group stage has nothing to
	// compute its leaf values.
	ErrCodeMissingContinuation ConfigErrorCode = "MISSING_CONTINUATION"

	// ErrCodeValueNotLast indicates a value stage with stages after it.
	ErrCodeValueNotLast ConfigErrorCode = "VALUE_NOT_LAST"

	// ErrCodeInvalidPeriod indicates a date group's period cannot generate ranges.
	ErrCodeInvalidPeriod ConfigErrorCode = "INVALID_PERIOD"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Stage >= 0 {
		return fmt.Sprintf("%s: %s (stage %d)", e.Code, e.Message, e.Stage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// HasConfigCode returns true if err is a ConfigError with the given code.
func HasConfigCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newConfigError(code ConfigErrorCode, stage int, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// ShapeError reports a result tree that does not have the shape an operation
// requires: JSON that is not a result tree, a chart input that is not two
// levels deep, or groups whose leaves do not line up.
type ShapeError struct {
	// Code identifies the error category.
	Code ShapeErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending node, e.g. "[1].values[0]".
	Path string
}

// ShapeErrorCode categorizes shape errors.
type ShapeErrorCode string

const (
	// ErrCodeMalformed indicates input that is not a result tree at all.
	ErrCodeMalformed ShapeErrorCode = "MALFORMED"

	// ErrCodeNotTree indicates a result that is not a Tree where one is required.
	ErrCodeNotTree ShapeErrorCode = "NOT_TREE"

	// ErrCodeDepthMismatch indicates the wrong number of grouping levels.
	ErrCodeDepthMismatch ShapeErrorCode = "DEPTH_MISMATCH"

	// ErrCodeLeafCount indicates groups with differing leaf counts.
	ErrCodeLeafCount ShapeErrorCode = "LEAF_COUNT_MISMATCH"

	// ErrCodeLeafLabel indicates groups whose leaf labels differ.
	ErrCodeLeafLabel ShapeErrorCode = "LEAF_LABEL_MISMATCH"

	// ErrCodeNonNumericLeaf indicates a leaf holding a sentinel or handle.
	ErrCodeNonNumericLeaf ShapeErrorCode = "NON_NUMERIC_LEAF"
)

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsShapeError returns true if err is a ShapeError.
// Uses errors.As to handle wrapped errors.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// NewShapeError creates a ShapeError. Exported for formatters.
func NewShapeError(code ShapeErrorCode, path, format string, args ...any) *ShapeError {
	return &ShapeError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}
