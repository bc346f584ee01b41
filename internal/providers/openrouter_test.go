package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func openRouterOK(content string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "openai/gpt-5-mini",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
			"cost":              0.0004,
		},
	}
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req openRouterRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
				t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterOK(`{"tipo_documento":"NO_IDENTIFICADO"}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "Hola"}},
			ResponseFormat: JSONObject,
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != `{"tipo_documento":"NO_IDENTIFICADO"}` {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.CostUSD != 0.0004 {
			t.Errorf("CostUSD = %v, want 0.0004", result.CostUSD)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("vision message with images", func(t *testing.T) {
		var received []openRouterContent
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Messages []struct {
					Role    string              `json:"role"`
					Content []openRouterContent `json:"content"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if len(req.Messages) > 0 {
				received = req.Messages[0].Content
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterOK("I see an image"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{
				Role:    "user",
				Content: "What's in this image?",
				Images:  [][]byte{[]byte("fake-image-data")},
			}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if len(received) != 2 {
			t.Fatalf("expected 2 content items, got %d", len(received))
		}
		if received[1].ImageURL == nil || !strings.HasPrefix(received[1].ImageURL.URL, "data:image/jpeg;base64,") {
			t.Errorf("image part = %+v", received[1])
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		var lastBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req openRouterRequest
			json.NewDecoder(r.Body).Decode(&req)
			if s, ok := req.Messages[0].Content.(string); ok {
				lastBody = s
			}
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`upstream`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterOK("ok"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
		if !strings.Contains(lastBody, "retry_") {
			t.Errorf("retried request not marked with nonce: %q", lastBody)
		}
	})

	t.Run("zero retries makes one attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`upstream`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 0,
			RetryDelay: time.Millisecond,
		})
		if _, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		}); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("server called %d times, want 1", calls.Load())
		}
	})

	t.Run("default retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`upstream`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: DefaultRetries,
			RetryDelay: time.Millisecond,
		})
		if _, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		}); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 3 {
			t.Errorf("server called %d times, want 3", calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "bad key"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("server called %d times, want 1", calls.Load())
		}
		if result.Success || result.ErrorType != "http_error" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Rate limit exceeded"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 1,
			RetryDelay: time.Millisecond,
		})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		rle, ok := IsRateLimitError(err)
		if !ok {
			t.Fatalf("expected RateLimitError, got %T: %v", err, err)
		}
		if rle.RetryAfter != 3*time.Second {
			t.Errorf("RetryAfter = %v, want 3s", rle.RetryAfter)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := client.Chat(ctx, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		}); err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key"})

	if client.Name() != OpenRouterName {
		t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
	}
	if client.baseURL != OpenRouterBaseURL {
		t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
	}
	if client.Model() != "openai/gpt-5-mini" {
		t.Errorf("Model() = %s", client.Model())
	}
	if client.maxRetries != 3 || client.retryDelay != time.Second {
		t.Errorf("retry defaults = %d, %v", client.maxRetries, client.retryDelay)
	}
}

// TestOpenRouterIntegration runs a real call against the OpenRouter API.
// Requires OPENROUTER_API_KEY environment variable to be set.
func TestOpenRouterIntegration(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasOpenRouter() {
		t.Skip("OPENROUTER_API_KEY not set - skipping integration test")
	}

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: cfg.OpenRouterAPIKey})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := client.Chat(ctx, &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "Respond only with a JSON object."},
			{Role: "user", Content: `Return exactly this JSON: {"greeting": "hola"}`},
		},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(result.Content), &parsed); err != nil {
		t.Errorf("Response is not valid JSON: %v (%q)", err, result.Content)
	}
	t.Logf("Model: %s, tokens: %d, time: %v", result.ModelUsed, result.TotalTokens, result.ExecutionTime)
}
