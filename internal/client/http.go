package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/givecal/internal/events"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/share"
)

const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// HTTPClient implements PledgeClient using the givecal HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client

	// streamClient has no timeout; the pledge stream stays open.
	streamClient *http.Client
	logger       *slog.Logger
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		logger:       slog.Default(),
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// Put upserts rec under id and returns the stored record.
func (c *HTTPClient) Put(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error) {
	var stored model.PledgeRecord
	if err := c.doJSON(ctx, http.MethodPut, "/v1/pledges/"+url.PathEscape(id), rec, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Get returns the pledge stored under id.
func (c *HTTPClient) Get(ctx context.Context, id string) (*model.PledgeRecord, error) {
	var rec model.PledgeRecord
	if err := c.doJSON(ctx, http.MethodGet, "/v1/pledges/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every pledge.
func (c *HTTPClient) List(ctx context.Context) ([]*model.PledgeRecord, error) {
	var resp struct {
		Pledges []*model.PledgeRecord `json:"pledges"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/pledges", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Pledges, nil
}

// Share returns the server's share payload.
func (c *HTTPClient) Share(ctx context.Context) (share.Payload, error) {
	var p share.Payload
	err := c.doJSON(ctx, http.MethodGet, "/v1/share", nil, &p)
	return p, err
}

// Health is the server's health report.
type Health struct {
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	LastEventID uint64 `json:"last_event_id"`
	Viewers     int    `json:"viewers"`
}

// Health returns the server's health report.
func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Subscribe follows the pledge stream, reconnecting with backoff when the
// connection drops. Each connection starts with a snapshot of every pledge,
// so nothing is lost across reconnects. It returns nil once ctx is done and
// an error only when the server rejects the stream outright.
func (c *HTTPClient) Subscribe(ctx context.Context, fn func(id string, rec model.PledgeRecord)) error {
	var lastID string
	delay := minReconnectDelay
	for {
		connected, err := c.stream(ctx, &lastID, fn)
		if ctx.Err() != nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return err
		}
		if connected {
			delay = minReconnectDelay
		}
		c.logger.Warn("pledge stream interrupted", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// stream reads one SSE connection until it ends. It reports whether the
// connection was established.
func (c *HTTPClient) stream(ctx context.Context, lastID *string, fn func(id string, rec model.PledgeRecord)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/pledges/stream?topics="+url.QueryEscape(events.TopicPledgePut), nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if *lastID != "" {
		req.Header.Set("Last-Event-ID", *lastID)
	}
	if c.clientID != "" {
		req.Header.Set("X-Givecal-Client", c.clientID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("connecting to pledge stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, decodeAPIError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "":
			if event == events.TopicPledgePut && data != "" {
				if rec, err := events.DecodePledgePut([]byte(data)); err != nil {
					c.logger.Warn("skipping malformed pledge event", "error", err)
				} else {
					fn(rec.ID, *rec)
				}
			}
			if id != "" {
				*lastID = id
			}
			id, event, data = "", "", ""
		}
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("reading pledge stream: %w", err)
	}
	return true, errors.New("pledge stream closed by server")
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func decodeAPIError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
