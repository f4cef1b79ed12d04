// Package voice wraps the ElevenLabs text-to-speech API. Synthesis is an
// enhancement: callers treat any error as "no audio this time" rather
// than failing the request.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hlavac/versionone-go/internal/config"
	"github.com/hlavac/versionone-go/internal/logger"
)

// ErrUnavailable reports that the synthesis provider failed or returned
// a non-success status.
var ErrUnavailable = errors.New("synthesis unavailable")

const defaultBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// Synthesizer converts answer text into MP3 bytes via ElevenLabs.
type Synthesizer struct {
	cfg        config.ElevenLabsConfig
	baseURL    string
	httpClient *http.Client
}

// NewSynthesizer creates a new TTS client with the configured voice
// identity and stylistic parameters.
func NewSynthesizer(cfg config.ElevenLabsConfig) *Synthesizer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Synthesizer{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize sends text to ElevenLabs and returns raw MP3 bytes. A
// transport error or non-200 status yields ErrUnavailable.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: nothing to speak", ErrUnavailable)
	}

	body, err := sonic.Marshal(ttsRequest{
		Text: text,
		VoiceSettings: voiceSettings{
			Stability:       s.cfg.Stability,
			SimilarityBoost: s.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := s.baseURL + "/" + s.cfg.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("xi-api-key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Error("tts request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.L.Error("tts generation error", "status", resp.StatusCode, "body", string(detail))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return audio, nil
}
