// Package vectordb is a minimal client for the external similarity-search
// service (Qdrant's REST API). The pipeline treats it as a black box that
// accepts a query vector, a result limit and a must-match metadata filter.
package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
)

// maxErrorBody bounds how much of an error response is read back for the
// error message.
const maxErrorBody = 1024

// ScoredPoint is one similarity match, highest score first.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Condition is one exact-match constraint over a payload field.
type Condition struct {
	Key   string
	Value any
}

// Filter is a structured metadata filter. Must conditions all have to hold;
// Should conditions are alternatives of which at least one has to hold.
type Filter struct {
	Must   []Condition
	Should []Condition
}

// Client talks to one Qdrant collection.
type Client struct {
	log        *logger.Logger
	baseURL    string
	collection string
	apiKey     string
	http       *http.Client
}

// NewClient creates a search client for the configured collection. The
// client handle is injected into the retriever; construction happens once,
// before first use.
func NewClient(log *logger.Logger, cfg config.VectorDBConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:        log.With("component", "vectordb"),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
			},
		},
	}
}

type searchRequest struct {
	Vector      []float32      `json:"vector"`
	Limit       int            `json:"limit"`
	Filter      map[string]any `json:"filter,omitempty"`
	WithPayload bool           `json:"with_payload"`
}

type searchEnvelope struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
	} `json:"result"`
	Status json.RawMessage `json:"status"`
}

// Search runs one similarity query and returns matches ranked by score
// descending, truncated to limit.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if limit <= 0 {
		limit = 5
	}

	reqBody := searchRequest{
		Vector:      vector,
		Limit:       limit,
		Filter:      filter.asMap(),
		WithPayload: true,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, url.PathEscape(c.collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("vector search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]ScoredPoint, 0, len(envelope.Result))
	for _, item := range envelope.Result {
		id := normalizeID(item.ID)
		if id == "" {
			continue
		}
		out = append(out, ScoredPoint{ID: id, Score: item.Score, Payload: item.Payload})
	}
	return out, nil
}

// asMap renders the filter in Qdrant's must/should syntax.
func (f *Filter) asMap() map[string]any {
	if f == nil {
		return nil
	}
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = conditionList(f.Must)
	}
	if len(f.Should) > 0 {
		out["should"] = conditionList(f.Should)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func conditionList(conds []Condition) []any {
	out := make([]any, 0, len(conds))
	for _, cond := range conds {
		out = append(out, map[string]any{
			"key":   cond.Key,
			"match": map[string]any{"value": cond.Value},
		})
	}
	return out
}

// normalizeID renders a point id (string or integer in the wire format) as
// a string.
func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// proxyFunc resolves the outbound proxy per scheme, falling back to the
// process environment when nothing is configured.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
