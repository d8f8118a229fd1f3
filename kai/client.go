// Package kai proxies the site assistant to the OpenAI chat-completions
// API with the salon's fixed persona prompt.
package kai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"

	maxHistoryTurns   = 12
	maxHistoryContent = 1500
	maxMessageLength  = 2000
	requestTimeout    = 15 * time.Second
)

var systemPrompt = strings.Join([]string{
	"You are Kai, the official AI assistant for Tripple Kay Cutts Spa in Bomet County, Kenya.",
	"You are professional, friendly, and stylish.",
	"Answer clearly and politely.",
	"Encourage customers to book appointments.",
	"If a booking is requested, ask for preferred date and time.",
	"If customers ask about services, respond confidently and attractively.",
	"If unsure, politely ask for clarification.",
	"Keep responses short, helpful, and classy.",
}, " ")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("kai: OpenAI API key not configured")

// ErrEmptyResponse is returned when the upstream answered without any
// assistant text.
var ErrEmptyResponse = errors.New("kai: no AI response returned")

// APIError is an upstream OpenAI error with its provider code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kai: upstream error %s: %s", e.Code, e.Message)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the OpenAI chat-completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat sends the trimmed user message with a clamped slice of history and
// returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, message string, history []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	messages := []Message{{Role: "system", Content: systemPrompt}}
	messages = append(messages, clampHistory(history)...)
	if len(message) > maxMessageLength {
		message = message[:maxMessageLength]
	}
	messages = append(messages, Message{Role: "user", Content: message})

	raw, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0.25,
		MaxTokens:   280,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ce chatError
		_ = json.Unmarshal(body, &ce)
		return "", &APIError{
			Status:  resp.StatusCode,
			Code:    ce.Error.Code,
			Message: ce.Error.Message,
		}
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// clampHistory keeps the final turns only, drops anything that is not a
// plain user/assistant turn, and truncates oversized content.
func clampHistory(history []Message) []Message {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	var safe []Message
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		content := m.Content
		if len(content) > maxHistoryContent {
			content = content[:maxHistoryContent]
		}
		if content == "" {
			continue
		}
		safe = append(safe, Message{Role: m.Role, Content: content})
	}
	return safe
}
