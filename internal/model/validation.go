// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// ContentKind identifies what is being validated.
type ContentKind string

const (
	KindNewsletter ContentKind = "newsletter"
	KindArticle    ContentKind = "article"
	KindExtraction ContentKind = "extraction"
)

// IsValid checks if the kind is one the validators understand.
func (k ContentKind) IsValid() bool {
	switch k {
	case KindNewsletter, KindArticle, KindExtraction:
		return true
	}
	return false
}

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// MaxContentLength is the largest payload accepted for validation.
const MaxContentLength = 200_000

// ValidationRequest is a payload submitted for validation.
type ValidationRequest struct {
	Kind    ContentKind `json:"kind"`
	Content string      `json:"content"`
	Source  string      `json:"source,omitempty"`
}

// Normalized returns a copy with surrounding whitespace removed so that
// cosmetically different submissions share a cache key.
func (r ValidationRequest) Normalized() ValidationRequest {
	r.Kind = ContentKind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	r.Content = strings.TrimSpace(r.Content)
	r.Source = strings.TrimSpace(r.Source)
	return r
}

// Issue is one problem found in the content.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
}

// ValidationResult is the verdict of a validator.
type ValidationResult struct {
	ID        string      `json:"id"`
	Kind      ContentKind `json:"kind"`
	Valid     bool        `json:"valid"`
	Score     float64     `json:"score"`
	Issues    []Issue     `json:"issues"`
	Model     string      `json:"model"`
	CheckedAt time.Time   `json:"checked_at"`
}

// ErrorCount returns the number of error-severity issues.
func (r *ValidationResult) ErrorCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			n++
		}
	}
	return n
}
