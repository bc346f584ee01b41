package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-5-mini-2025-08-07",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"tipo_documento":"CV"}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "instrucciones"},
			{Role: "user", Content: "NOMBRE DEL ARCHIVO: 'ci.png'", Images: [][]byte{[]byte("jpeg")}},
		},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Content != `{"tipo_documento":"CV"}` {
		t.Errorf("Content = %q", result.Content)
	}
	if result.TotalTokens != 150 || result.ModelUsed != "gpt-5-mini-2025-08-07" {
		t.Errorf("result = %+v", result)
	}

	if got, _ := payload["model"].(string); got != OpenAIDefaultModel {
		t.Errorf("model = %q, want %q", got, OpenAIDefaultModel)
	}
	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", payload["response_format"])
	}
	msgs, _ := payload["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", payload["messages"])
	}
	user := msgs[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("user content = %v", user["content"])
	}
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	if url, _ := image["url"].(string); !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("image url = %q", url)
	}
}

func TestOpenAIClient_MaxRetries(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantCalls  int32
	}{
		{"disabled", 0, 1},
		{"one retry", 1, 2},
		{"client default", DefaultRetries, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After-Ms", "1")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			}))
			defer server.Close()

			client := NewOpenAIClient(OpenAIConfig{
				APIKey:     "test-key",
				BaseURL:    server.URL,
				MaxRetries: tt.maxRetries,
				Timeout:    5 * time.Second,
			})
			if _, err := client.Chat(context.Background(), &ChatRequest{
				Messages: []Message{{Role: "user", Content: "x"}},
			}); err == nil {
				t.Fatal("expected error")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("server called %d times, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestOpenAIClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad image","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if result.Success || result.ErrorType != "http_error" {
		t.Errorf("result = %+v", result)
	}
}

func TestOpenAIIntegration(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasOpenAI() {
		t.Skip("OPENAI_API_KEY not set - skipping integration test")
	}
	client := NewOpenAIClient(OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
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
	t.Logf("Response: %s", result.Content)
}
