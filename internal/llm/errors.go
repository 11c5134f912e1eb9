// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyContent is returned when a response carries no text after
	// every fallback. It is retried like any transient failure.
	ErrEmptyContent = errors.New("empty content in LLM response")

	// ErrNoChoices is returned when a response has neither choices nor candidates.
	ErrNoChoices = errors.New("LLM response has no choices or candidates")

	// ErrMalformedJSON is returned by ChatJSON when the content does not
	// decode into the requested value.
	ErrMalformedJSON = errors.New("malformed JSON in LLM response")
)

// APIError reports an HTTP error status or an error object in the
// response body.
type APIError struct {
	// StatusCode is the HTTP status, or 0 when the error came from the body
	// of an otherwise successful response.
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "LLM API error: " + e.Message
	}
	return fmt.Sprintf("LLM API error %d: %s", e.StatusCode, e.Message)
}

// ErrorClass groups failures for logs and metrics.
type ErrorClass string

const (
	ClassRateLimit ErrorClass = "rate_limit"
	ClassTimeout   ErrorClass = "timeout"
	ClassServer    ErrorClass = "server"
	ClassAuth      ErrorClass = "auth"
	ClassMalformed ErrorClass = "malformed"
	ClassEmpty     ErrorClass = "empty"
	ClassUnknown   ErrorClass = "unknown"
)

// Classify maps err to an ErrorClass. It returns "" for nil.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return ClassRateLimit
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return ClassAuth
		case apiErr.StatusCode >= 500:
			return ClassServer
		}
	}

	switch {
	case errors.Is(err, ErrEmptyContent):
		return ClassEmpty
	case errors.Is(err, ErrMalformedJSON), errors.Is(err, ErrNoChoices):
		return ClassMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "rate"), strings.Contains(e, "429"), strings.Contains(e, "quota"):
		return ClassRateLimit
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"):
		return ClassTimeout
	case strings.Contains(e, "unavailable"), strings.Contains(e, "temporarily"):
		return ClassServer
	default:
		return ClassUnknown
	}
}
