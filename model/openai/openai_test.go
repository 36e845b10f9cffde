package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmichael/llm-deployment/core"
	"github.com/ericmichael/llm-deployment/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *openai.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)

	return &client
}

func TestBuildMessages_Roles(t *testing.T) {
	msgs := buildMessages([]core.Turn{
		core.NewSystemTurn("sys"),
		core.NewUserTurn("hi"),
		core.NewAssistantTurn(`Tool: geocode("Austin")`),
		core.NewToolResultTurn("30.2, -97.7"),
	})

	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	require.NotNil(t, msgs[3].OfUser)
	assert.Equal(t, "Tool Result: 30.2, -97.7", msgs[3].OfUser.Content.OfString.Value)
}

func TestModel_Generate(t *testing.T) {
	var body map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Hello there"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	})

	m := NewModelFromClient(client, func(o *Options) { o.Model = "gpt-4o-mini" })

	resp, err := model.Send(context.Background(), m, model.Request{
		Messages:    []core.Turn{core.NewUserTurn("hi")},
		Temperature: model.Float(0.2),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 0.0001)
}

func TestModel_GenerateError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit"}}`))
	})

	_, err := model.Send(context.Background(), NewModelFromClient(client), model.Request{
		Messages: []core.Turn{core.NewUserTurn("hi")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrModelCall)

	var callErr *model.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "openai", callErr.Provider)
}

func TestModel_Info(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-4o" })
	assert.Equal(t, model.Info{Name: "gpt-4o", Provider: "openai"}, m.Info())
}

func TestTranscriber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "clip.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": " What's the weather? "}`))
	})

	text, err := NewTranscriber(client).Transcribe(context.Background(), "clip.wav", []byte("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "What's the weather?", text)

	_, err = NewTranscriber(client).Transcribe(context.Background(), "clip.wav", nil)
	assert.Error(t, err)
}
