package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"

	"foundry/internal/provision"
)

// APIError is a GitHub failure reduced to a message that is safe to print
// and to put into action outputs: no request URLs, no tokens.
type APIError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Is lets callers test for provision.ErrNotFound without knowing about
// go-github.
func (e *APIError) Is(target error) bool {
	return target == provision.ErrNotFound && e.Status == http.StatusNotFound
}

// WrapError converts err into an *APIError named after op. nil stays nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *APIError
	if errors.As(err, &existing) {
		return err
	}
	return &APIError{Op: op, Status: StatusCode(err), Message: ErrorMessage(err), Err: err}
}

// StatusCode returns the HTTP status carried by a go-github error, or 0.
func StatusCode(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// ErrorMessage presents err for humans. Structured GitHub errors become
// "<status>: <message> (<details>)"; anything else has the leading
// "<METHOD> <url>: " go-github adds stripped.
func ErrorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg := strings.TrimSpace(er.Message)
		if msg == "" {
			msg = "GitHub API request failed"
		}
		if details := errorDetails(er.Errors); details != "" {
			msg = fmt.Sprintf("%s (%s)", msg, details)
		}
		if er.Response != nil {
			return fmt.Sprintf("%d %s: %s", er.Response.StatusCode, http.StatusText(er.Response.StatusCode), msg)
		}
		return msg
	}

	s := strings.TrimSpace(err.Error())
	if scrubbed := scrubGitHubRequestFromErrorString(s); scrubbed != "" {
		return scrubbed
	}
	return s
}

func errorDetails(errs []github.Error) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		switch {
		case e.Message != "":
			parts = append(parts, e.Message)
		case e.Field != "":
			parts = append(parts, fmt.Sprintf("%s %s %s", e.Resource, e.Field, e.Code))
		case e.Code != "":
			parts = append(parts, e.Code)
		}
	}
	return strings.Join(parts, "; ")
}

func scrubGitHubRequestFromErrorString(s string) string {
	// Typical go-github error format:
	//   GET https://api.github.com/...: 403 Some message. [..]
	// We want to drop the leading "GET https://...: " part.
	methods := []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "}
	for _, m := range methods {
		if !strings.HasPrefix(s, m) {
			continue
		}
		rest := s[len(m):]
		if i := strings.Index(rest, "://"); i >= 0 {
			if j := strings.Index(rest[i:], ": "); j >= 0 {
				return strings.TrimSpace(rest[i+j+2:])
			}
		}
		if j := strings.Index(rest, ": "); j >= 0 {
			return strings.TrimSpace(rest[j+2:])
		}
		break
	}
	return ""
}
