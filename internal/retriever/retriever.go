// Package retriever wraps the Pinecone REST API: it embeds a free-text
// query and runs a similarity search over the configured index. The
// provider is treated as a black box returning scored, metadata-bearing
// matches.
package retriever

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

// ErrUnavailable reports that the retrieval provider could not be
// reached or returned a malformed response. It is distinct from a
// successful query with zero matches.
var ErrUnavailable = errors.New("retrieval unavailable")

const (
	defaultEmbedURL = "https://api.pinecone.io/embed"
	apiVersion      = "2025-01"
)

// Match is a scored candidate returned by similarity search.
type Match struct {
	ID    string
	Score float64
	Text  string
	URLs  []string
}

// Client queries Pinecone for context relevant to a user message.
type Client struct {
	cfg        config.PineconeConfig
	embedURL   string
	httpClient *http.Client
}

// NewClient creates a new retriever client.
func NewClient(cfg config.PineconeConfig) *Client {
	return &Client{
		cfg:      cfg,
		embedURL: defaultEmbedURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embedRequest struct {
	Model      string            `json:"model"`
	Parameters map[string]string `json:"parameters"`
	Inputs     []embedInput      `json:"inputs"`
}

type embedInput struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Data []struct {
		Values []float64 `json:"values"`
	} `json:"data"`
}

type queryRequest struct {
	Namespace       string    `json:"namespace"`
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string  `json:"id"`
		Score    float64 `json:"score"`
		Metadata struct {
			Text string   `json:"text"`
			URLs []string `json:"urls"`
		} `json:"metadata"`
	} `json:"matches"`
	Namespace string `json:"namespace"`
}

// Fetch embeds the query and runs a top-K similarity search. It returns
// at most TopK matches in the provider's relevance order. Any transport
// error, non-2xx status, or malformed body yields ErrUnavailable; an
// empty match list with a nil error means the search ran and found
// nothing relevant.
func (c *Client) Fetch(ctx context.Context, query string) ([]Match, error) {
	vector, err := c.embed(ctx, query)
	if err != nil {
		logger.L.Error("pinecone embed failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.L.Debug("embedded query", "dimensions", len(vector))

	body, err := sonic.Marshal(queryRequest{
		Namespace:       c.cfg.Namespace,
		Vector:          vector,
		TopK:            c.cfg.TopK,
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	queryURL := strings.TrimSuffix(c.cfg.IndexHost, "/") + "/query"
	raw, err := c.post(ctx, queryURL, body)
	if err != nil {
		logger.L.Error("pinecone query failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var resp queryResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		logger.L.Error("pinecone query response malformed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{
			ID:    m.ID,
			Score: m.Score,
			Text:  m.Metadata.Text,
			URLs:  m.Metadata.URLs,
		})
		logger.L.Debug("retrieved match", "id", m.ID, "score", m.Score)
	}
	return matches, nil
}

func (c *Client) embed(ctx context.Context, query string) ([]float64, error) {
	body, err := sonic.Marshal(embedRequest{
		Model:      c.cfg.EmbeddingModel,
		Parameters: map[string]string{"input_type": "query"},
		Inputs:     []embedInput{{Text: query}},
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, c.embedURL, body)
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Values) == 0 {
		return nil, errors.New("embedding response contained no vector")
	}
	return resp.Data[0].Values, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
