package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/hlavac/versionone-go/internal/agent"
	"github.com/hlavac/versionone-go/internal/audio"
	"github.com/hlavac/versionone-go/internal/config"
	"github.com/hlavac/versionone-go/internal/conversation"
	"github.com/hlavac/versionone-go/internal/retriever"
)

type stubRetriever struct{ matches []retriever.Match }

func (s *stubRetriever) Fetch(ctx context.Context, query string) ([]retriever.Match, error) {
	return s.matches, nil
}

type stubLLM struct{ output string }

func (s *stubLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.output}}},
	}, nil
}

type stubSynth struct{}

func (s *stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("mp3"), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	artifacts := audio.NewStore(t.TempDir())
	pipeline := agent.NewPipeline(
		conversation.NewStore(""),
		&stubRetriever{matches: []retriever.Match{{ID: "m1", Text: "ctx"}}},
		&stubLLM{output: `{"long_answer": "long", "short_answer": "short", "media_urls": ["http://m"]}`},
		&stubSynth{},
		artifacts,
		config.LLMConfig{Model: "gpt-4o-mini"},
	)
	return New(pipeline, artifacts)
}

func postChat(t *testing.T, handler http.Handler, body string) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp ChatResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestChat_SuccessShape(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := postChat(t, handler, `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "long", resp.LongResponse)
	require.Equal(t, "short", resp.ShortResponse)
	require.Equal(t, []string{"http://m"}, resp.MediaURLs)
	require.True(t, strings.HasPrefix(resp.AudioURL, "http://"), "audio_url %q", resp.AudioURL)
	require.Contains(t, resp.AudioURL, "/audio/audio_")

	// The returned URL must serve the artifact.
	path := resp.AudioURL[strings.Index(resp.AudioURL, "/audio/"):]
	audioReq := httptest.NewRequest(http.MethodGet, path, nil)
	audioRec := httptest.NewRecorder()
	handler.ServeHTTP(audioRec, audioReq)
	require.Equal(t, http.StatusOK, audioRec.Code)
	require.Equal(t, "audio/mpeg", audioRec.Header().Get("Content-Type"))
	require.Equal(t, "mp3", audioRec.Body.String())
}

func TestChat_EmptyMessageIs200(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := postChat(t, handler, `{"message": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "No message received.", resp.LongResponse)
	require.Empty(t, resp.ShortResponse)
	require.Empty(t, resp.AudioURL)
	require.NotNil(t, resp.MediaURLs)
	require.Empty(t, resp.MediaURLs)
}

func TestChat_MissingMessageFieldIs200(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := postChat(t, handler, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "No message received.", resp.LongResponse)
}

func TestAudio_UnknownFilenameIs404(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/audio/audio_nope.mp3", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS_AllowsAnyOrigin(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
