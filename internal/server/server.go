// Package server exposes the chat pipeline over HTTP: POST /chat for
// conversation, GET /audio/{filename} for synthesized speech artifacts.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hlavac/versionone-go/internal/agent"
	"github.com/hlavac/versionone-go/internal/audio"
	"github.com/hlavac/versionone-go/internal/logger"
)

// defaultSession backs clients that do not send a session id, matching
// the original single-conversation behavior.
const defaultSession = "default"

// ChatRequest is the POST /chat request body.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the POST /chat response body. MediaURLs is always a
// JSON array, never null.
type ChatResponse struct {
	LongResponse  string   `json:"long_response"`
	ShortResponse string   `json:"short_response"`
	AudioURL      string   `json:"audio_url"`
	MediaURLs     []string `json:"media_urls"`
}

// ArtifactReader serves persisted audio artifacts by filename.
type ArtifactReader interface {
	Read(filename string) ([]byte, error)
}

// Server is the HTTP front of the chat pipeline.
type Server struct {
	pipeline *agent.Pipeline
	audio    ArtifactReader
	server   *http.Server
}

// New creates a server around the given pipeline and artifact reader.
func New(pipeline *agent.Pipeline, artifacts ArtifactReader) *Server {
	return &Server{pipeline: pipeline, audio: artifacts}
}

// Handler builds the route table with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /audio/{filename}", s.handleAudio)
	mux.HandleFunc("GET /health", s.handleHealth)
	return corsMiddleware(mux)
}

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  time.Minute,
	}
	logger.L.Info("starting server", "address", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleChat runs one pipeline exchange. Degraded pipeline outcomes
// still produce a 200 with a conversational-shaped body; only an
// unreadable request body is a client error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = defaultSession
	}

	reply := s.pipeline.Process(r.Context(), sessionID, req.Message)

	audioURL := ""
	if reply.AudioFilename != "" {
		audioURL = requestBaseURL(r) + "/audio/" + reply.AudioFilename
	}
	mediaURLs := reply.MediaURLs
	if mediaURLs == nil {
		mediaURLs = []string{}
	}

	writeJSON(w, ChatResponse{
		LongResponse:  reply.Long,
		ShortResponse: reply.Short,
		AudioURL:      audioURL,
		MediaURLs:     mediaURLs,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	data, err := s.audio.Read(filename)
	if err != nil {
		if errors.Is(err, audio.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.L.Error("failed to read audio artifact", "filename", filename, "error", err)
		http.Error(w, "failed to read audio", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("failed to encode response", "error", err)
	}
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// corsMiddleware permits cross-origin requests from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
