// Package connection checks that a provider configuration can be reached
// and classifies failures for display.
package connection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/booster/llm"
)

// ErrorType is the UI-facing failure category.
type ErrorType string

const (
	ErrorValidation ErrorType = "validation"
	ErrorConnection ErrorType = "connection"
	ErrorAuth       ErrorType = "auth"
	ErrorParse      ErrorType = "parse"
	ErrorUnknown    ErrorType = "unknown"
)

// Params are the fields a connection test needs. The strategy overrides
// match llm.ClientConfig; zero values inherit from the provider.
type Params struct {
	Provider       string         `json:"provider"`
	APIKey         string         `json:"apiKey"`
	BaseURL        string         `json:"baseUrl"`
	Model          string         `json:"model"`
	Endpoint       string         `json:"endpoint,omitempty"`
	Timeout        time.Duration  `json:"timeout,omitempty"`
	Auth           *llm.AuthSpec  `json:"auth,omitempty"`
	RequestFormat  llm.FormatType `json:"requestFormat,omitempty"`
	ResponseFormat llm.FormatType `json:"responseFormat,omitempty"`
}

// Result is the outcome of Test. It is a value, never an error.
type Result struct {
	Success       bool      `json:"success"`
	ErrorType     ErrorType `json:"errorType,omitempty"`
	OriginalError string    `json:"originalError,omitempty"`
}

// Tester runs connectivity probes.
type Tester struct {
	registry *llm.Registry
	retry    llm.RetryPolicy
	log      zerolog.Logger
}

// Option configures a Tester.
type Option func(*Tester)

// WithRetry retries transient failures. Permanent failures are never retried.
func WithRetry(p llm.RetryPolicy) Option {
	return func(t *Tester) {
		t.retry = p
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tester) {
		t.log = l
	}
}

// NewTester creates a tester over reg (DefaultRegistry when nil). Without
// WithRetry the probe runs once.
func NewTester(reg *llm.Registry, opts ...Option) *Tester {
	if reg == nil {
		reg = llm.DefaultRegistry()
	}
	t := &Tester{registry: reg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Test validates p, then sends a chat probe.
func (t *Tester) Test(ctx context.Context, p Params) Result {
	if r, ok := validate(p); !ok {
		return r
	}

	cfg := llm.ClientConfig{
		Provider:       strings.TrimSpace(p.Provider),
		APIKey:         strings.TrimSpace(p.APIKey),
		BaseURL:        p.BaseURL,
		Model:          strings.TrimSpace(p.Model),
		Timeout:        p.Timeout,
		Auth:           p.Auth,
		RequestFormat:  p.RequestFormat,
		ResponseFormat: p.ResponseFormat,
	}
	if ep := strings.TrimSpace(p.Endpoint); ep != "" {
		cfg.Endpoints.Chat = ep
	}

	log := t.log.With().Str("provider", cfg.Provider).Str("model", cfg.Model).Logger()
	client, err := llm.NewClient(t.registry, cfg, llm.WithLogger(log))
	if err != nil {
		log.Warn().Err(err).Msg("connection test: client construction failed")
		return failure(err)
	}

	_, err = llm.Retry(ctx, t.retryPolicy(log), func(ctx context.Context) (llm.ConnectionStatus, error) {
		return client.TestConnection(ctx)
	})
	if err != nil {
		log.Warn().Err(err).Msg("connection test failed")
		return failure(err)
	}
	log.Info().Msg("connection test succeeded")
	return Result{Success: true}
}

func (t *Tester) retryPolicy(log zerolog.Logger) llm.RetryPolicy {
	p := t.retry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying connection test")
	}
	return p
}

func validate(p Params) (Result, bool) {
	checks := []struct {
		value string
		msg   string
	}{
		{p.Provider, "Provider required"},
		{p.APIKey, "API Key required"},
		{p.BaseURL, "Base URL required"},
		{p.Model, "Model name required"},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return Result{ErrorType: ErrorValidation, OriginalError: c.msg}, false
		}
	}
	return Result{}, true
}

// failure keeps only the connection and auth distinctions.
func failure(err error) Result {
	r := Result{OriginalError: err.Error()}
	switch llm.KindOf(err) {
	case llm.KindConnection:
		r.ErrorType = ErrorConnection
	case llm.KindAuth:
		r.ErrorType = ErrorAuth
	default:
		r.ErrorType = ErrorUnknown
	}
	return r
}

// Classify maps any error onto the full taxonomy. Errors that carry no
// kind are classified from their message.
func Classify(err error) (ErrorType, string) {
	if err == nil {
		return "", ""
	}
	var e *llm.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case llm.KindValidation:
			return ErrorValidation, e.Message
		case llm.KindConnection:
			return ErrorConnection, e.Message
		case llm.KindAuth:
			return ErrorAuth, e.Message
		case llm.KindParse:
			return ErrorParse, e.Message
		default:
			return ErrorUnknown, e.Message
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "required"):
		return ErrorValidation, msg
	case strings.Contains(lower, "api key"), strings.Contains(lower, "unauthorized"):
		return ErrorAuth, msg
	case strings.Contains(lower, "json"), strings.Contains(lower, "parse"):
		return ErrorParse, msg
	case strings.Contains(lower, "connect"), strings.Contains(lower, "timeout"), strings.Contains(lower, "network"):
		return ErrorConnection, msg
	default:
		return ErrorUnknown, msg
	}
}
