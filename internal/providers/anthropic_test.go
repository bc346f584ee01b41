package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicClient_Chat(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&payload)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5",
			"stop_reason":   "end_turn",
			"content":       []map[string]any{{"type": "text", "text": `{"tipo_documento":"CI"}`}},
			"usage":         map[string]any{"input_tokens": 40, "output_tokens": 10},
			"stop_sequence": nil,
		})
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "instrucciones"},
			{Role: "user", Content: "mira", Images: [][]byte{[]byte("jpeg")}},
		},
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Content != `{"tipo_documento":"CI"}` {
		t.Errorf("Content = %q", result.Content)
	}
	if result.TotalTokens != 50 {
		t.Errorf("TotalTokens = %d, want 50", result.TotalTokens)
	}

	system, _ := payload["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("system = %v", payload["system"])
	}
	msgs, _ := payload["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v (system must not be sent as a message)", payload["messages"])
	}
	blocks := msgs[0].(map[string]any)["content"].([]any)
	if len(blocks) != 2 || blocks[0].(map[string]any)["type"] != "image" {
		t.Errorf("content blocks = %v", blocks)
	}
	if payload["max_tokens"].(float64) != 4096 {
		t.Errorf("max_tokens = %v", payload["max_tokens"])
	}
}
