// Package analysis is the HTTP client of the remote analysis backend.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/liut/insightchat/pkg/models/convo"
)

const (
	pathAnalyze = "/api/v1/analyze"
	pathHistory = "/api/v1/history"

	maxErrorBody    = 4096
	maxResponseBody = 16 << 20
)

// StatusError is a response that arrived with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

// Error reads like "HTTP 500: Internal Server Error".
func (e *StatusError) Error() string {
	text := strings.TrimSpace(strings.TrimPrefix(e.Status, strconv.Itoa(e.StatusCode)))
	if len(text) == 0 {
		text = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, text)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// IsStatus reports whether err carries a non-2xx response status.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Client talks to {base}/api/v1/*.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient ...
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New returns a client without a request timeout; callers bound calls through ctx.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if len(baseURL) == 0 {
		return nil, errors.New("analysis: base url must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("analysis: parse base url: %w", err)
	}
	c := &Client{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// BaseURL ...
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze posts one question with its prior context.
func (c *Client) Analyze(ctx context.Context, in convo.AnalyzeRequest) (*convo.AnalysisResult, error) {
	if in.ConversationHistory == nil {
		in.ConversationHistory = convo.Log{}
	}
	body, err := json.Marshal(&in)
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}
	uri := c.baseURL + pathAnalyze
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res := new(convo.AnalysisResult)
	if err = c.doJSON(req, res); err != nil {
		logger().Infow("analyze fail", "question", in.Question, "history", len(in.ConversationHistory), "err", err)
		return nil, err
	}
	logger().Debugw("analyze done", "queryID", res.QueryID, "status", res.Status)
	return res, nil
}

// History lists up to limit records, newest first as the backend returns them.
func (c *Client) History(ctx context.Context, limit int) (convo.HistoryRecords, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	uri := c.baseURL + pathHistory + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var data convo.HistoryRecords
	if err = c.doJSON(req, &data); err != nil {
		logger().Infow("list history fail", "limit", limit, "err", err)
		return nil, err
	}
	return data, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
