package kai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("sk-test", "gpt-4o-mini")
	c.baseURL = srv.URL
	return c
}

func TestChatNotConfigured(t *testing.T) {
	c := NewClient("", "gpt-4o-mini")
	assert.False(t, c.Configured())

	_, err := c.Chat(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChatReturnsTrimmedReply(t *testing.T) {
	var got chatRequest
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  Karibu! A fade goes for KES 500.  "}},
			},
		})
	})

	reply, err := c.Chat(context.Background(), "how much is a fade?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Karibu! A fade goes for KES 500.", reply)

	// System persona always leads, user message closes the transcript.
	require.NotEmpty(t, got.Messages)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Tripple Kay Cutts")
	assert.Equal(t, "user", got.Messages[len(got.Messages)-1].Role)
}

func TestChatUpstreamError(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"message": "You exceeded your current quota",
				"type":    "insufficient_quota",
				"code":    "insufficient_quota",
			},
		})
	})

	_, err := c.Chat(context.Background(), "hi", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "insufficient_quota", apiErr.Code)
}

func TestChatEmptyResponse(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := c.Chat(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClampHistory(t *testing.T) {
	var history []Message
	for i := 0; i < 20; i++ {
		history = append(history, Message{Role: "user", Content: "turn"})
	}
	history = append(history, Message{Role: "system", Content: "injected override"})
	history = append(history, Message{Role: "assistant", Content: strings.Repeat("x", maxHistoryContent+100)})

	safe := clampHistory(history)
	assert.LessOrEqual(t, len(safe), maxHistoryTurns)
	for _, m := range safe {
		assert.NotEqual(t, "system", m.Role, "history must not smuggle in system turns")
		assert.LessOrEqual(t, len(m.Content), maxHistoryContent)
	}
}
