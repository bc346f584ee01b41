// Package extraction turns a document payload into a validated
// document.Record by asking an oracle and checking its answer against the
// record schema.
package extraction

import (
	"context"
	"fmt"

	"github.com/jackzampolin/intake/internal/providers"
)

// Mode selects the instruction set and payload kind of an attempt.
type Mode string

const (
	// ModeText sends text extracted from a born-digital PDF.
	ModeText Mode = "TEXT"
	// ModeVision sends a normalized image of the document.
	ModeVision Mode = "VISION"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeText || m == ModeVision
}

// Payload is what the oracle receives besides the instruction.
type Payload struct {
	Text      string // user message
	Image     []byte // VISION only
	ImageMIME string
}

// Response is the raw oracle answer. Usage is set when the oracle is backed
// by an LLM provider.
type Response struct {
	Text  string
	Usage *providers.ChatResult
}

// Oracle is the external classification and extraction service.
type Oracle interface {
	Generate(ctx context.Context, instruction string, payload Payload) (Response, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, instruction string, payload Payload) (string, error)

// Generate calls f.
func (f OracleFunc) Generate(ctx context.Context, instruction string, payload Payload) (Response, error) {
	text, err := f(ctx, instruction, payload)
	return Response{Text: text}, err
}

// LLMOracle asks an LLM provider for a JSON object. When Client is nil the
// provider is looked up in Registry on every call so config reloads apply.
type LLMOracle struct {
	Client   providers.LLMClient
	Registry *providers.Registry
	Provider string

	Model       string // "" uses the provider default
	Temperature float64
	MaxTokens   int
}

func (o *LLMOracle) client() (providers.LLMClient, error) {
	if o.Client != nil {
		return o.Client, nil
	}
	if o.Registry == nil {
		return nil, fmt.Errorf("no LLM provider configured: %w", providers.ErrNotFound)
	}
	client, err := o.Registry.GetLLM(o.Provider)
	if err != nil {
		return nil, fmt.Errorf("LLM provider %q: %w", o.Provider, err)
	}
	return client, nil
}

// Generate sends instruction as the system message and payload as the user
// message, requesting a JSON object response.
func (o *LLMOracle) Generate(ctx context.Context, instruction string, payload Payload) (Response, error) {
	client, err := o.client()
	if err != nil {
		return Response{}, err
	}

	user := providers.Message{Role: "user", Content: payload.Text}
	if len(payload.Image) > 0 {
		user.Images = [][]byte{payload.Image}
		user.ImageMIME = payload.ImageMIME
	}

	result, err := client.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: instruction},
			user,
		},
		Model:          o.Model,
		Temperature:    o.Temperature,
		MaxTokens:      o.MaxTokens,
		ResponseFormat: providers.JSONObject,
	})
	if err != nil {
		return Response{Usage: result}, err
	}
	return Response{Text: result.Content, Usage: result}, nil
}

var _ Oracle = (*LLMOracle)(nil)
