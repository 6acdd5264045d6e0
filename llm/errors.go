// Error taxonomy for the LLM client.
//
// Every failure that leaves the client is an *Error carrying a Kind. HTTP
// failures keep their status code, transport failures keep the underlying
// error for errors.Is/As, and URLs are redacted so query-string API keys
// never show up in messages.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"
)

// Kind classifies an error independently of its Go type.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConnection Kind = "connection"
	KindAuth       Kind = "auth"
	KindParse      Kind = "parse"
	KindUnknown    Kind = "unknown"
)

// ErrConfiguration marks client construction failures.
var ErrConfiguration = errors.New("invalid client configuration")

// ErrAborted is wrapped by errors delivered after the caller cancels a stream.
var ErrAborted = errors.New("request aborted")

// Error is the single error type returned by the client.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func configError(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), ErrConfiguration)
}

// KindOf returns the kind of err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsAborted reports whether err was caused by caller cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// IsQuotaExceeded reports rate limit and quota failures.
func IsQuotaExceeded(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// classifyTransport maps an error raised before any HTTP response arrived.
func classifyTransport(ctx context.Context, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return newError(KindConnection, ErrAborted.Error(), errors.Join(ErrAborted, context.Canceled))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindConnection, "request timed out", err)
	}

	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = fmt.Sprintf("%s %s: %v", urlErr.Op, redactURL(urlErr.URL), urlErr.Err)
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr), errors.Is(err, syscall.ECONNREFUSED):
		return newError(KindConnection, msg, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return newError(KindConnection, msg, err)
	case urlErr != nil:
		return newError(KindConnection, msg, err)
	}
	return newError(KindUnknown, msg, err)
}

// hasErrorField reports whether body carries a populated "error" field.
// Gateways that send "error": null on every frame are not failing.
func hasErrorField(body []byte) bool {
	r := gjson.GetBytes(body, "error")
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return true
	}
}

// classifyHTTP maps a non-2xx response.
func classifyHTTP(status int, body []byte) *Error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &Error{Message: msg, Status: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusNotFound || status >= 500:
		e.Kind = KindConnection
	case isAPIKeyError(msg, body):
		e.Kind = KindAuth
	default:
		e.Kind = KindUnknown
	}
	return e
}

// classifyDecode maps an error raised while interpreting a response body.
func classifyDecode(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindParse, fmt.Sprintf("failed to parse response: %v", err), err)
}

// errorMessage extracts a human message from common provider error bodies.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !json.Valid(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"error.message", "message", "error", "detail"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	// Gemini wraps errors in an array.
	if r := gjson.GetBytes(body, "0.error.message"); r.Exists() {
		return r.String()
	}
	return ""
}

func isAPIKeyError(msg string, body []byte) bool {
	lower := strings.ToLower(msg)
	for _, needle := range []string{"api key", "api_key", "apikey", "unauthorized", "authentication"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return gjson.GetBytes(body, `error.details.#(reason=="API_KEY_INVALID")`).Exists()
}

// redactURL drops the query string, where query-param auth keeps its key.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<redacted>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	u.User = nil
	return u.String()
}
