package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "{\"analysis\": \"ok\"}"},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model", 0.2)

	content, err := client.Complete(context.Background(), []Message{
		SystemMessage("you are a test"),
		UserMessage("hello"),
		AssistantMessage("hi"),
		UserMessage("again"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"analysis": "ok"}`, content)

	assert.Equal(t, "test-model", gotBody["model"])
	assert.InDelta(t, 0.2, gotBody["temperature"].(float64), 1e-9)
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestOpenAIClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmpl-1", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model", 0)

	_, err := client.Complete(context.Background(), []Message{UserMessage("hello")})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "test-model", reqErr.Model)
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model", 0)

	_, err := client.Complete(context.Background(), []Message{UserMessage("hello")})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}
