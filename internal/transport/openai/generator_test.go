package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// chatResponse mirrors the OpenAI-compatible chat completion response.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		handler(w, r)
	}))
}

func newTestGenerator(t *testing.T, baseURL string, timeout time.Duration) *Generator {
	t.Helper()
	return NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-model",
		Timeout:  timeout,
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func okResponse(text, finishReason string) chatResponse {
	var resp chatResponse
	resp.ID = "chatcmpl-1"
	resp.Object = "chat.completion"
	resp.Choices = append(resp.Choices, struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}{})
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = text
	resp.Choices[0].FinishReason = finishReason
	return resp
}

func TestGenerate_Success(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okResponse("generated text", "stop"))
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	got, err := g.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "generated text" {
		t.Errorf("got %q", got)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse{ID: "chatcmpl-1", Object: "chat.completion"})
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Errorf("expected ErrUpstreamMalformed, got %v", err)
	}
}

func TestGenerate_ContentFiltered(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okResponse("", "content_filter"))
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrUpstreamBlocked) {
		t.Errorf("expected ErrUpstreamBlocked, got %v", err)
	}
}

func TestGenerate_EmptyTextPayload(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okResponse("", "stop"))
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Errorf("expected ErrUpstreamMalformed, got %v", err)
	}
}

func TestGenerate_ProviderErrorEnvelope(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Errorf("expected ErrUpstreamMalformed, got %v", err)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	})
	defer server.Close()

	g := newTestGenerator(t, server.URL, time.Minute)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer server.Close()
	defer close(release)

	g := newTestGenerator(t, server.URL, 50*time.Millisecond)
	_, err := g.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
