package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

func init() {
	retryBackoff = time.Millisecond
}

func newTestLLM(t *testing.T, maxRetries int, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: maxRetries})
	require.NoError(t, err)
	return s
}

func writeAnswer(w http.ResponseWriter, answer string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": answer}, "finish_reason": "stop"},
		},
	})
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)

	s, err := NewLLMService(LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, s.ModelName())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultMaxRetries, s.maxRetries)

	s, err = NewLLMService(LLMConfig{APIKey: "k", MaxRetries: -1})
	require.NoError(t, err)
	assert.Zero(t, s.maxRetries)
}

func TestGenerate_SendsSystemAndZeroTemperature(t *testing.T) {
	s := newTestLLM(t, -1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "deepseek-chat", raw["model"])
		assert.Contains(t, raw, "temperature")
		assert.Equal(t, 0.0, raw["temperature"])

		msgs := raw["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "be brief", msgs[0].(map[string]any)["content"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
		assert.Equal(t, "question", msgs[1].(map[string]any)["content"])

		writeAnswer(w, "answer")
	})

	got, err := s.Generate(context.Background(), "question", driven.GenerateOptions{System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
}

func TestGenerate_NoSystemMessage(t *testing.T) {
	s := newTestLLM(t, -1, func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		writeAnswer(w, "ok")
	})

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
}

func TestGenerate_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	s := newTestLLM(t, 2, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeAnswer(w, "finally")
	})

	got, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "finally", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerate_GivesUp(t *testing.T) {
	var calls atomic.Int32
	s := newTestLLM(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := newTestLLM(t, 3, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	})

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_NoChoices(t *testing.T) {
	s := newTestLLM(t, -1, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	s := newTestLLM(t, -1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
