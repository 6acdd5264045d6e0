// LLM client façade: one client per provider configuration.
//
// The client owns the transport and delegates everything provider-specific
// to its strategy triple. Failures surface as *Error values; streaming
// failures go to the handler instead.

package llm

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxErrorBody = 64 * 1024

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the tuned default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the debug logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// Client talks to one provider with one model.
type Client struct {
	provider      string
	name          string
	apiKey        string
	baseURL       string
	model         string
	timeout       time.Duration
	endpoints     Endpoints
	requestFormat FormatType

	auth      AuthStrategy
	formatter RequestFormatter
	parser    ResponseParser

	http *http.Client
	log  zerolog.Logger
}

// CreateClient builds a client against DefaultRegistry.
func CreateClient(cfg ClientConfig, opts ...Option) (*Client, error) {
	return NewClient(DefaultRegistry(), cfg, opts...)
}

// NewClient resolves cfg against reg and builds the strategy triple.
// Missing provider, API key, base URL or model, and unsupported providers,
// fail here with a configuration error.
func NewClient(reg *Registry, cfg ClientConfig, opts ...Option) (*Client, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	provider := strings.TrimSpace(cfg.Provider)
	if provider == "" {
		return nil, configError("provider is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, configError("API key is required")
	}
	spec, err := reg.Resolve(provider, cfg.Endpoints.Chat)
	if err != nil {
		return nil, err
	}

	baseURL := NormalizeBaseURL(firstNonEmpty(cfg.BaseURL, spec.BaseURL))
	if baseURL == "" {
		return nil, configError("base URL is required for provider %q", provider)
	}
	model := firstNonEmpty(cfg.Model, spec.DefaultModel)
	if model == "" {
		return nil, configError("model is required for provider %q", provider)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = spec.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	endpoints := Endpoints{
		Chat:   expandEndpoint(firstNonEmpty(cfg.Endpoints.Chat, spec.Endpoints.Chat, defaultChatEndpoint), model, spec.ID),
		Models: expandEndpoint(firstNonEmpty(cfg.Endpoints.Models, spec.Endpoints.Models), model, spec.ID),
	}

	authSpec := spec.Auth
	if cfg.Auth != nil {
		authSpec = *cfg.Auth
	}
	requestFormat := firstFormat(cfg.RequestFormat, spec.RequestFormat)
	responseFormat := firstFormat(cfg.ResponseFormat, spec.ResponseFormat)

	auth, err := newAuthStrategy(authSpec, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	formatter, err := newFormatter(requestFormat, model, endpoints.Chat, spec.ExtraParams)
	if err != nil {
		return nil, err
	}
	parser, err := newParser(responseFormat)
	if err != nil {
		return nil, err
	}

	c := &Client{
		provider:      spec.ID,
		name:          spec.Name,
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		model:         model,
		timeout:       timeout,
		endpoints:     endpoints,
		requestFormat: requestFormat,
		auth:          auth,
		formatter:     formatter,
		parser:        parser,
		http:          newHTTPClient(timeout),
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("provider", c.provider).Str("model", c.model).Logger()
	return c, nil
}

// newHTTPClient has no overall timeout so streams can run long; the
// response header timeout bounds time to first byte.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// Provider returns the resolved provider id.
func (c *Client) Provider() string { return c.provider }

// ProviderName returns the provider display name.
func (c *Client) ProviderName() string { return c.name }

// Model returns the model in use.
func (c *Client) Model() string { return c.model }

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Endpoints returns the expanded endpoint paths.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Timeout returns the buffered request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Chat sends one buffered request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.formatter.FormatRequest(req, false)
	if err != nil {
		return nil, newError(KindValidation, err.Error(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug().Int("messages", len(req.History)+1).Msg("sending chat request")
	resp, err := c.do(ctx, http.MethodPost, c.endpoints.Chat, body)
	if err != nil {
		c.log.Debug().Err(err).Msg("chat request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	out, err := c.parser.ParseResponse(raw)
	if err != nil {
		return nil, classifyDecode(err)
	}
	if out.Model == "" {
		out.Model = c.model
	}
	return out, nil
}

// StreamChat streams a response into h. Deltas arrive in order on the
// calling goroutine. Cancelling ctx aborts the stream: no OnData or
// OnComplete follows, and OnError receives an aborted error.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, h StreamHandler) {
	s := &streamSession{ctx: ctx, handler: h}
	if err := req.Validate(); err != nil {
		s.fail(err)
		return
	}
	body, err := c.formatter.FormatRequest(req, true)
	if err != nil {
		s.fail(newError(KindValidation, err.Error(), err))
		return
	}

	c.log.Debug().Int("messages", len(req.History)+1).Msg("starting chat stream")
	resp, err := c.do(ctx, http.MethodPost, c.streamEndpoint(), body)
	if err != nil {
		c.log.Debug().Err(err).Msg("chat stream failed")
		s.fail(err)
		return
	}
	defer resp.Body.Close()

	var parseErr error
	chunks := 0
	readErr := readFrames(resp.Body, detectFraming(resp.Header.Get("Content-Type")), func(f frame) bool {
		if f.raw {
			return s.data(string(f.data))
		}
		delta, err := c.parser.ParseStreamChunk(f.data)
		if err != nil {
			parseErr = classifyDecode(err)
			return false
		}
		chunks++
		if delta == "" {
			return s.ctx.Err() == nil
		}
		return s.data(delta)
	})

	switch {
	case parseErr != nil:
		s.fail(parseErr)
	case readErr != nil:
		s.fail(classifyTransport(ctx, readErr))
	default:
		c.log.Debug().Int("chunks", chunks).Msg("chat stream finished")
		s.complete()
	}
}

func (c *Client) streamEndpoint() string {
	switch c.requestFormat {
	case FormatGemini:
		return geminiStreamEndpoint(c.endpoints.Chat)
	default:
		return c.endpoints.Chat
	}
}

// TestConnection sends a minimal chat probe.
func (c *Client) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	_, err := c.Chat(ctx, ChatRequest{
		UserMessage: "Hi",
		Options:     Options{MaxTokens: 1, Temperature: Temp(0)},
	})
	if err != nil {
		return ConnectionStatus{Success: false, Message: err.Error()}, err
	}
	return ConnectionStatus{Success: true, Message: "Connection test successful"}, nil
}

// GetModels lists the provider's models. Providers without a models
// endpoint return an empty list.
func (c *Client) GetModels(ctx context.Context) ([]ModelInfo, error) {
	if c.endpoints.Models == "" {
		return []ModelInfo{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, c.endpoints.Models, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	models, err := parseModelCatalog(raw)
	if err != nil {
		return nil, classifyDecode(err)
	}
	c.log.Debug().Int("count", len(models)).Msg("fetched model catalog")
	return models, nil
}

// do sends an authenticated request and turns non-2xx responses into errors.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), r)
	if err != nil {
		return nil, configError("invalid request URL %s", redactURL(c.url(endpoint)))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/event-stream")
	c.auth.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyHTTP(resp.StatusCode, raw)
	}
	return resp, nil
}

func (c *Client) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + endpoint
}

// streamSession enforces the handler contract for one stream.
type streamSession struct {
	ctx      context.Context
	handler  StreamHandler
	finished bool
}

func (s *streamSession) data(delta string) bool {
	if s.finished || s.ctx.Err() != nil {
		return false
	}
	s.handler.OnData(delta)
	return true
}

func (s *streamSession) complete() {
	if s.ctx.Err() != nil {
		s.fail(classifyTransport(s.ctx, s.ctx.Err()))
		return
	}
	if s.finished {
		return
	}
	s.finished = true
	s.handler.OnComplete()
}

func (s *streamSession) fail(err error) {
	if s.finished {
		return
	}
	s.finished = true
	s.handler.OnError(err)
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// expandEndpoint substitutes {model} and {provider} and ensures a leading
// slash on relative paths.
func expandEndpoint(endpoint, model, provider string) string {
	if endpoint == "" {
		return ""
	}
	endpoint = strings.ReplaceAll(endpoint, "{model}", strings.TrimPrefix(model, "models/"))
	endpoint = strings.ReplaceAll(endpoint, "{provider}", provider)
	if strings.HasPrefix(endpoint, "/") || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "/" + endpoint
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstFormat(values ...FormatType) FormatType {
	for _, v := range values {
		if v != FormatInherit {
			return v
		}
	}
	return FormatOpenAI
}
