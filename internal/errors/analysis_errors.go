package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the failure classes of the analysis pipeline
type ErrorCategory string

const (
	// Fatal errors that abort the whole run
	ErrorCategoryFatal  ErrorCategory = "FATAL"
	ErrorCategoryConfig ErrorCategory = "CONFIG"

	// Recoverable errors: degrade to cache or drop the affected factor
	ErrorCategoryNetwork ErrorCategory = "NETWORK"
	ErrorCategoryData    ErrorCategory = "DATA"

	// Model errors stay local to one regression; the batch continues
	ErrorCategoryModel ErrorCategory = "MODEL"
)

// AnalysisError is a categorized error with the dataset or model it affects
type AnalysisError struct {
	Category   ErrorCategory
	Component  string
	Subject    string // dataset, factor or model the failure names
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s (%s): %v", e.Category, e.Component, e.Message, e.Subject, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s (%s)", e.Category, e.Component, e.Message, e.Subject)
}

// Unwrap returns the underlying error for error unwrapping
func (e *AnalysisError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error should abort the pipeline
func (e *AnalysisError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal || e.Category == ErrorCategoryConfig
}

// IsRetryable returns whether a retry could succeed
func (e *AnalysisError) IsRetryable() bool {
	return e.Retryable
}

// New creates a categorized analysis error
func New(category ErrorCategory, component, subject, message string) *AnalysisError {
	return &AnalysisError{
		Category:  category,
		Component: component,
		Subject:   subject,
		Message:   message,
		Retryable: category == ErrorCategoryNetwork,
	}
}

// Wrap wraps an existing error with analysis context
func Wrap(err error, category ErrorCategory, component, subject, message string) *AnalysisError {
	if err == nil {
		return nil
	}
	return &AnalysisError{
		Category:   category,
		Component:  component,
		Subject:    subject,
		Message:    message,
		Underlying: err,
		Retryable:  category == ErrorCategoryNetwork,
	}
}

// CategoryOf extracts the category of err, or "" for uncategorized errors
func CategoryOf(err error) ErrorCategory {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// IsModelError reports whether err is a local model-fit failure
func IsModelError(err error) bool {
	return CategoryOf(err) == ErrorCategoryModel
}

// IsFatalError reports whether err must abort the pipeline
func IsFatalError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.IsFatal()
	}
	return false
}
