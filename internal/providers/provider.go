// Package providers wraps the chat-completion APIs used as the extraction
// oracle. Every client implements LLMClient; the Registry holds the clients
// built from config and swaps them on hot reload.
package providers

import (
	"context"
	"time"
)

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// ImageJPEG is the default MIME type of Message.Images.
const ImageJPEG = "image/jpeg"

// DefaultRetries selects a client's built-in retry count. A MaxRetries of 0
// disables retries.
const DefaultRetries = -1

// Message represents a chat message.
type Message struct {
	Role      string   `json:"role"` // "system", "user", "assistant"
	Content   string   `json:"content"`
	Images    [][]byte `json:"-"` // Raw bytes; clients base64-encode them
	ImageMIME string   `json:"-"` // Defaults to ImageJPEG
}

func (m Message) imageMIME() string {
	if m.ImageMIME == "" {
		return ImageJPEG
	}
	return m.ImageMIME
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

// JSONObject asks the provider for a single JSON object response.
var JSONObject = &ResponseFormat{Type: "json_object"}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// SystemPrompt returns the content of the first system message.
func (r *ChatRequest) SystemPrompt() string {
	for _, m := range r.Messages {
		if m.Role == "system" {
			return m.Content
		}
	}
	return ""
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Cost and timing
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// fail marks r as failed and returns err.
func (r *ChatResult) fail(start time.Time, errType string, err error) (*ChatResult, error) {
	r.Success = false
	r.ErrorType = errType
	r.ErrorMessage = err.Error()
	r.ExecutionTime = time.Since(start)
	return r, err
}
