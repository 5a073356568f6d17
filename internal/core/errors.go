package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the clustering core.
type ErrorKind string

const (
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindInsufficientData     ErrorKind = "insufficient_data"
	KindInvalidClusterCount  ErrorKind = "invalid_cluster_count"
	KindNumericalInstability ErrorKind = "numerical_instability"
	KindNotFullyImplemented  ErrorKind = "algorithm_not_fully_implemented"
	KindCanceled             ErrorKind = "canceled"
)

var (
	// ErrInvalidRequest is returned for malformed requests (k outside [2,10], no posts, unknown options)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientData is returned when there are fewer posts than requested clusters
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidClusterCount is returned when k exceeds the number of points
	ErrInvalidClusterCount = errors.New("invalid cluster count")

	// ErrNumericalInstability signals non-finite values in the spectral pipeline
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrNotFullyImplemented marks algorithms accepted only through delegation
	ErrNotFullyImplemented = errors.New("algorithm not fully implemented")

	// ErrCanceled is returned when the caller's deadline or cancellation fires mid-run
	ErrCanceled = errors.New("analysis canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidRequest:       ErrInvalidRequest,
	KindInsufficientData:     ErrInsufficientData,
	KindInvalidClusterCount:  ErrInvalidClusterCount,
	KindNumericalInstability: ErrNumericalInstability,
	KindNotFullyImplemented:  ErrNotFullyImplemented,
	KindCanceled:             ErrCanceled,
}

// AnalysisError is the structured error returned across the core boundary.
type AnalysisError struct {
	Kind        ErrorKind
	Message     string
	MinRequired int // Minimum number of posts, set for insufficient_data
	Err         error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match an AnalysisError against the sentinel of its kind.
func (e *AnalysisError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewError builds an AnalysisError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InsufficientData builds the error for n posts against k requested clusters.
func InsufficientData(n, k int) *AnalysisError {
	return &AnalysisError{
		Kind:        KindInsufficientData,
		Message:     fmt.Sprintf("need at least %d posts for %d clusters, got %d", k, k, n),
		MinRequired: k,
	}
}

// KindOf extracts the ErrorKind from err, or "" when err is not an AnalysisError.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Degradation records why a run did not execute the requested algorithm as specified.
type Degradation struct {
	Code      ErrorKind `json:"code"`
	Requested Algorithm `json:"requested"`
	Message   string    `json:"message"`
}

func (d *Degradation) String() string {
	return d.Message
}
