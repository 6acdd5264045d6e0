// Auth strategies: how a provider expects the API key to travel.

package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthType is the closed set of authentication variants.
type AuthType string

const (
	AuthBearer     AuthType = "bearer"
	AuthQueryParam AuthType = "query_param"
	AuthAPIKey     AuthType = "x-api-key"
	AuthHeader     AuthType = "header"
	AuthNone       AuthType = "none"
)

// anthropicVersion is sent alongside x-api-key auth.
const anthropicVersion = "2023-06-01"

// AuthSpec selects and parameterises an auth variant.
type AuthSpec struct {
	Type AuthType `json:"type" yaml:"type"`
	// ParamName is the query parameter for AuthQueryParam (default "key").
	ParamName string `json:"paramName,omitempty" yaml:"param_name"`
	// HeaderName is the header for AuthHeader.
	HeaderName string `json:"headerName,omitempty" yaml:"header_name"`
	// HeaderPrefix is prepended to the key for AuthHeader, e.g. "Token ".
	HeaderPrefix string `json:"headerPrefix,omitempty" yaml:"header_prefix"`
}

// ParseAuthType accepts the variant names plus the "custom" alias for none.
func ParseAuthType(s string) (AuthType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bearer":
		return AuthBearer, nil
	case "query_param", "query":
		return AuthQueryParam, nil
	case "x-api-key", "x_api_key":
		return AuthAPIKey, nil
	case "header":
		return AuthHeader, nil
	case "none", "custom":
		return AuthNone, nil
	default:
		return "", fmt.Errorf("unknown auth type: %s", s)
	}
}

// AuthStrategy attaches credentials to an outgoing request.
type AuthStrategy interface {
	Apply(req *http.Request)
}

type bearerAuth struct{ key string }

func (a bearerAuth) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.key)
}

type queryParamAuth struct{ key, param string }

func (a queryParamAuth) Apply(req *http.Request) {
	q := req.URL.Query()
	q.Set(a.param, a.key)
	req.URL.RawQuery = q.Encode()
}

type apiKeyAuth struct{ key string }

func (a apiKeyAuth) Apply(req *http.Request) {
	req.Header.Set("x-api-key", a.key)
	req.Header.Set("anthropic-version", anthropicVersion)
}

type headerAuth struct{ key, name, prefix string }

func (a headerAuth) Apply(req *http.Request) {
	req.Header.Set(a.name, a.prefix+a.key)
}

type noAuth struct{}

func (noAuth) Apply(*http.Request) {}

func newAuthStrategy(spec AuthSpec, apiKey string) (AuthStrategy, error) {
	switch spec.Type {
	case AuthBearer, "":
		return bearerAuth{key: apiKey}, nil
	case AuthQueryParam:
		param := spec.ParamName
		if param == "" {
			param = "key"
		}
		return queryParamAuth{key: apiKey, param: param}, nil
	case AuthAPIKey:
		return apiKeyAuth{key: apiKey}, nil
	case AuthHeader:
		if spec.HeaderName == "" {
			return nil, configError("header auth requires a header name")
		}
		return headerAuth{key: apiKey, name: spec.HeaderName, prefix: spec.HeaderPrefix}, nil
	case AuthNone:
		return noAuth{}, nil
	default:
		return nil, configError("unsupported auth type %q", spec.Type)
	}
}
