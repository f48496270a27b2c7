package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "Rewrite the summary", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Experienced backend engineer"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	defer srv.Close()

	gen := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1")
	defer gen.Close()

	out, err := gen.Generate(context.Background(), "You are a resume writer.", "Rewrite the summary")
	require.NoError(t, err)
	assert.Equal(t, "Experienced backend engineer", out)
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-test", "gpt-test", srv.URL+"/v1").Generate(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("sk-bad", "gpt-test", srv.URL+"/v1").Generate(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestNewFactory(t *testing.T) {
	_, err := NewFactory(Config{Provider: "mystery"})
	assert.Error(t, err)

	factory, err := NewFactory(Config{Provider: ProviderOpenAI, BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)

	_, err = factory(context.Background(), "")
	assert.Error(t, err, "an empty key is rejected before any call")

	gen, err := factory(context.Background(), "sk-test")
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, gen)
	assert.Equal(t, DefaultOpenAIModel, gen.(*OpenAI).model)

	gemini, err := NewFactory(Config{})
	require.NoError(t, err)
	_, err = gemini(context.Background(), "")
	assert.Error(t, err)
}

func TestGeminiResponseText(t *testing.T) {
	text := func(parts ...genai.Part) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		}
	}

	out, err := responseText(text(genai.Text("Led "), genai.Text("teams")))
	require.NoError(t, err)
	assert.Equal(t, "Led teams", out)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse, "no candidates")

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, ErrEmptyResponse, "blocked candidate")

	_, err = responseText(text(genai.Blob{MIMEType: "image/png", Data: []byte{1}}))
	assert.ErrorIs(t, err, ErrEmptyResponse, "no text parts")
}
