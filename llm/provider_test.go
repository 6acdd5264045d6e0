// Security tests to ensure error messages don't leak API keys.
package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// TestQueryParamKeyNoLeakOnTransportError verifies a Gemini-style key in the
// URL is redacted from transport errors.
func TestQueryParamKeyNoLeakOnTransportError(t *testing.T) {
	testKey := "AIza-test-invalid-key-12345xyz"
	client, err := CreateClient(ClientConfig{Provider: "gemini", APIKey: testKey, BaseURL: unreachableURL(t)})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.Chat(ctx, ChatRequest{UserMessage: "test"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), testKey) {
		t.Errorf("Gemini error message leaked API key: %v", err)
	}
}

// TestBearerKeyNoLeakOnHTTPError verifies auth failures don't echo headers.
func TestBearerKeyNoLeakOnHTTPError(t *testing.T) {
	testKey := "sk-test-invalid-key-12345xyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	for _, provider := range []string{"openai", "deepseek", "claude"} {
		client, err := CreateClient(ClientConfig{Provider: provider, APIKey: testKey, BaseURL: srv.URL})
		if err != nil {
			t.Fatalf("CreateClient(%s): %v", provider, err)
		}
		_, err = client.Chat(context.Background(), ChatRequest{UserMessage: "test"})
		if err == nil {
			t.Fatalf("%s: expected error", provider)
		}

		errStr := err.Error()
		if strings.Contains(errStr, testKey) {
			t.Errorf("%s error message leaked API key: %v", provider, errStr)
		}
		if strings.Contains(errStr, "Authorization:") || strings.Contains(errStr, "x-api-key:") {
			t.Errorf("%s error exposed auth header: %v", provider, errStr)
		}
	}
}

// TestStreamErrorNoLeak verifies stream errors delivered to the handler
// are redacted too.
func TestStreamErrorNoLeak(t *testing.T) {
	testKey := "AIza-stream-key-98765"
	client, err := CreateClient(ClientConfig{Provider: "gemini", APIKey: testKey, BaseURL: unreachableURL(t)})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	var got error
	client.StreamChat(context.Background(), ChatRequest{UserMessage: "test"}, StreamFuncs{
		Error: func(err error) { got = err },
	})
	if got == nil {
		t.Fatal("expected stream error")
	}
	if strings.Contains(got.Error(), testKey) {
		t.Errorf("stream error leaked API key: %v", got)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://user:pw@example.com/v1/models?key=secret&alt=sse")
	if strings.Contains(got, "secret") || strings.Contains(got, "pw") {
		t.Errorf("redactURL left credentials: %s", got)
	}
	if !strings.HasPrefix(got, "https://example.com/v1/models") {
		t.Errorf("redactURL mangled path: %s", got)
	}
}
