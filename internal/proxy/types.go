package proxy

import "encoding/json"

// ChatRequest is the OpenAI-compatible chat completion request sent upstream.
// Messages is kept raw so client-supplied turns (including multimodal content
// parts) are forwarded exactly as received.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// Message is a plain-text chat turn built by this service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EncodeMessages marshals messages for use as ChatRequest.Messages.
func EncodeMessages(msgs ...Message) (json.RawMessage, error) {
	return json.Marshal(msgs)
}

// Completion is the first choice of a non-streaming completion.
type Completion struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// errorEnvelope is the error body OpenRouter returns on non-2xx responses.
type errorEnvelope struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}
