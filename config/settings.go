// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider definition files and API key lookup

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/richinex/booster/llm"
)

// Settings holds all application configuration.
type Settings struct {
	LogLevel      string
	DBPath        string
	Server        ServerConfig
	LLM           LLMConfig
	ProvidersFile string
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// LLMConfig holds request defaults.
type LLMConfig struct {
	Temperature float64
	// Timeout applies to stored models that set no timeout of their own.
	Timeout time.Duration
}

// New creates settings from environment variables.
// Returns an error if environment variables contain invalid values.
func New() (Settings, error) {
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", llm.DefaultTemperature)
	if err != nil {
		return Settings{}, err
	}
	if temperature < 0 || temperature > 2 {
		return Settings{}, fmt.Errorf("invalid value for LLM_TEMPERATURE: %v: must be between 0 and 2", temperature)
	}

	timeoutSeconds, err := getEnvInt("LLM_TIMEOUT_SECONDS", int(llm.DefaultTimeout/time.Second))
	if err != nil {
		return Settings{}, err
	}
	if timeoutSeconds <= 0 {
		return Settings{}, fmt.Errorf("invalid value for LLM_TIMEOUT_SECONDS: %d: must be positive", timeoutSeconds)
	}

	return Settings{
		LogLevel: getEnv("BOOSTER_LOG_LEVEL", "info"),
		DBPath:   getEnv("BOOSTER_DB", defaultDBPath()),
		Server: ServerConfig{
			Addr:        getEnv("BOOSTER_ADDR", ":8000"),
			CORSOrigins: getEnvList("BOOSTER_CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		LLM: LLMConfig{
			Temperature: temperature,
			Timeout:     time.Duration(timeoutSeconds) * time.Second,
		},
		ProvidersFile: os.Getenv("BOOSTER_PROVIDERS_FILE"),
	}, nil
}

// Registry builds the provider registry, applying ProvidersFile if set.
func (s Settings) Registry() (*llm.Registry, error) {
	if s.ProvidersFile == "" {
		return llm.DefaultRegistry(), nil
	}
	specs, err := LoadProviders(s.ProvidersFile)
	if err != nil {
		return nil, err
	}
	return llm.NewRegistry(specs...)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "booster.db"
	}
	return filepath.Join(dir, "booster", "booster.db")
}

// providersFile is the on-disk shape of BOOSTER_PROVIDERS_FILE.
type providersFile struct {
	Providers []llm.ProviderSpec `yaml:"providers"`
}

// LoadProviders reads provider definitions from a YAML file. Entries with a
// built-in id override that provider; new ids register a provider.
func LoadProviders(path string) ([]llm.ProviderSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviders(data)
}

// ParseProviders decodes provider definitions and normalizes their strategy
// names.
func ParseProviders(data []byte) ([]llm.ProviderSpec, error) {
	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	for i := range file.Providers {
		p := &file.Providers[i]
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("providers[%d]: id is required", i)
		}
		if p.Auth.Type != "" {
			auth, err := llm.ParseAuthType(string(p.Auth.Type))
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", p.ID, err)
			}
			p.Auth.Type = auth
		}
		req, err := llm.ParseFormatType(string(p.RequestFormat))
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		resp, err := llm.ParseFormatType(string(p.ResponseFormat))
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		p.RequestFormat, p.ResponseFormat = req, resp
	}
	return file.Providers, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
// Built-in providers use their documented variable; anything else reads
// <ID>_API_KEY.
func APIKeyFor(provider string) (string, error) {
	envVar := APIKeyEnvVar(provider)
	if envVar == "" {
		return "", fmt.Errorf("unknown provider: %q", provider)
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", envVar)
	}
	return key, nil
}

// APIKeyEnvVar returns the variable holding a provider's API key.
func APIKeyEnvVar(provider string) string {
	if p, err := llm.ParseProviderType(provider); err == nil {
		return p.EnvVar()
	}
	id := strings.TrimSpace(provider)
	if id == "" {
		return ""
	}
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
	return id + "_API_KEY"
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
