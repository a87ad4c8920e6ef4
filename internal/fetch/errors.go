package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	// KindNetwork: the request never reached the server or got no response.
	KindNetwork ErrorKind = "network"
	// KindHTTP: the server answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindParse: the body was not JSON, or not a JSON array or object.
	KindParse ErrorKind = "parse"
	// KindValidation: a local precondition failed before any I/O.
	KindValidation ErrorKind = "validation"
)

// Error is returned by FetchList for every failure except context
// cancellation, which is returned as ctx.Err().
type Error struct {
	Kind       ErrorKind
	StatusCode int    // set for KindHTTP
	URL        string // request URL without credentials; empty for KindValidation
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	case KindValidation:
		return fmt.Sprintf("fetch: invalid request: %v", e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a fetch error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// UserMessage renders err as the single line shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to respond. Try again."
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled."
	}

	var fe *Error
	if !errors.As(err, &fe) {
		return "Something went wrong: " + err.Error()
	}

	switch fe.Kind {
	case KindNetwork:
		return "Could not reach the server. Check your connection and base URL."
	case KindHTTP:
		switch {
		case fe.StatusCode == http.StatusUnauthorized:
			return "Your session has expired or the token is invalid (401)."
		case fe.StatusCode == http.StatusForbidden:
			return "You do not have access to this list (403)."
		case fe.StatusCode == http.StatusNotFound:
			return "This list is not available on the server (404)."
		case fe.StatusCode >= 500:
			return fmt.Sprintf("The server failed to load this list (%d).", fe.StatusCode)
		default:
			return fmt.Sprintf("The server rejected the request (%d).", fe.StatusCode)
		}
	case KindParse:
		return "The server sent a response that could not be read."
	case KindValidation:
		var verrs validator.ValidationErrors
		if errors.As(fe.Err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fieldErr := range verrs {
				msgs = append(msgs, fieldErr.Field()+" "+ValidationMessage(fieldErr))
			}
			return "Configuration problem: " + strings.Join(msgs, "; ") + "."
		}
		return "Configuration problem: " + fe.Err.Error()
	default:
		return "Something went wrong: " + fe.Error()
	}
}

// ValidationMessage converts a validator field error into readable text.
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "required_unless":
		return "is required"
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + err.Param()
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	default:
		return "is invalid"
	}
}
