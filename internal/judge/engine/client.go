package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout  = 10 * time.Second
	defaultMaxBatchSize = 20
	defaultMaxRetries   = 3
	defaultRetryBase    = 200 * time.Millisecond
	defaultRetryMax     = 2 * time.Second
	maxErrorBodyBytes   = 512

	resultFields = "token,stdout,stderr,compile_output,message,status,time,memory"
)

// Config configures the engine HTTP client.
type Config struct {
	BaseURL      string        `yaml:"baseURL"`
	AuthToken    string        `yaml:"authToken"`
	RapidAPIKey  string        `yaml:"rapidAPIKey"`
	RapidAPIHost string        `yaml:"rapidAPIHost"`
	HTTPTimeout  time.Duration `yaml:"httpTimeout"`
	MaxBatchSize int           `yaml:"maxBatchSize"`
	MaxRetries   int           `yaml:"maxRetries"`
	RetryBase    time.Duration `yaml:"retryBase"`
	RetryMax     time.Duration `yaml:"retryMax"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = defaultMaxBatchSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	if c.RetryMax <= 0 {
		c.RetryMax = defaultRetryMax
	}
}

// Client is a Judge0 batch API client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client. A nil httpClient uses one with cfg.HTTPTimeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine baseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid engine baseURL: %w", err)
	}
	cfg.ApplyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// retries is the number of extra attempts; a negative MaxRetries disables them.
func (c *Client) retries() int {
	if c.cfg.MaxRetries < 0 {
		return 0
	}
	return c.cfg.MaxRetries
}

type submissionRequest struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type batchRequest struct {
	Submissions []submissionRequest `json:"submissions"`
}

type submissionResponse struct {
	Token         string  `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        Status  `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

type batchResponse struct {
	Submissions []submissionResponse `json:"submissions"`
}

// SubmitBatch submits every unit and returns one token per unit in order.
// Large batches are split into chunks of MaxBatchSize.
func (c *Client) SubmitBatch(ctx context.Context, units []SubmissionUnit) ([]Token, error) {
	if len(units) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("no submission units")
	}
	tokens := make([]Token, 0, len(units))
	for start := 0; start < len(units); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(units) {
			end = len(units)
		}
		chunk, err := c.submitChunk(ctx, units[start:end], start)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, chunk...)
	}
	logger.Info(ctx, "engine batch submitted", zap.Int("units", len(units)))
	return tokens, nil
}

func (c *Client) submitChunk(ctx context.Context, units []SubmissionUnit, offset int) ([]Token, error) {
	req := batchRequest{Submissions: make([]submissionRequest, 0, len(units))}
	for _, u := range units {
		req.Submissions = append(req.Submissions, submissionRequest{
			SourceCode:     encode(u.SourceCode),
			LanguageID:     u.LanguageID,
			Stdin:          encode(u.Stdin),
			ExpectedOutput: encode(u.ExpectedOutput),
			CPUTimeLimit:   u.CPUTimeLimit,
			MemoryLimit:    u.MemoryLimitKB,
		})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "encode batch")
	}
	respBody, err := c.do(ctx, http.MethodPost, "/submissions/batch?base64_encoded=true", body)
	if err != nil {
		return nil, err
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "decode batch response")
	}
	if len(entries) != len(units) {
		return nil, appErr.Newf(appErr.JudgeSystemError, "engine returned %d tokens for %d units", len(entries), len(units))
	}
	tokens := make([]Token, 0, len(entries))
	for i, entry := range entries {
		var token string
		if raw, ok := entry["token"]; ok {
			_ = json.Unmarshal(raw, &token)
		}
		if token == "" {
			detail, _ := json.Marshal(entry)
			return nil, appErr.New(appErr.EngineRejected).
				WithDetail("unit", offset+i).
				WithDetail("reason", string(detail))
		}
		tokens = append(tokens, Token(token))
	}
	return tokens, nil
}

// FetchBatch returns the current state of every token. The engine may omit
// unknown tokens; callers match results by token.
func (c *Client) FetchBatch(ctx context.Context, tokens []Token) ([]ExecutionResult, error) {
	results := make([]ExecutionResult, 0, len(tokens))
	for start := 0; start < len(tokens); start += c.cfg.MaxBatchSize {
		end := start + c.cfg.MaxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk, err := c.fetchChunk(ctx, tokens[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (c *Client) fetchChunk(ctx context.Context, tokens []Token) ([]ExecutionResult, error) {
	ids := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, string(t))
	}
	q := url.Values{}
	q.Set("tokens", strings.Join(ids, ","))
	q.Set("base64_encoded", "true")
	q.Set("fields", resultFields)

	respBody, err := c.do(ctx, http.MethodGet, "/submissions/batch?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp batchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "decode poll response")
	}
	out := make([]ExecutionResult, 0, len(resp.Submissions))
	for _, s := range resp.Submissions {
		out = append(out, s.toResult())
	}
	return out, nil
}

func (s submissionResponse) toResult() ExecutionResult {
	r := ExecutionResult{
		Token:         Token(s.Token),
		Status:        s.Status,
		Stdout:        decode(s.Stdout),
		Stderr:        decode(s.Stderr),
		CompileOutput: decode(s.CompileOutput),
		Message:       decode(s.Message),
	}
	if s.Time != nil {
		r.TimeSeconds, _ = strconv.ParseFloat(*s.Time, 64)
	}
	if s.Memory != nil {
		r.MemoryKB = *s.Memory
	}
	if r.Status.Description == "" {
		r.Status.Description = r.Status.Label()
	}
	return r
}

// do sends one request, retrying transport failures, 429 and 5xx with
// capped exponential backoff. Other 4xx responses are rejections.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries(); attempt++ {
		if attempt > 0 {
			delay := ComputeBackoff(attempt-1, c.cfg.RetryBase, c.cfg.RetryMax)
			logger.Warn(ctx, "engine request retry",
				zap.String("method", method),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, appErr.Wrap(err, appErr.Timeout)
			}
		}
		status, respBody, err := c.send(ctx, method, path, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, appErr.Wrap(ctx.Err(), appErr.Timeout)
			}
			lastErr = err
			continue
		}
		switch {
		case status >= 200 && status < 300:
			return respBody, nil
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("engine returned %d: %s", status, truncate(respBody))
			continue
		default:
			return nil, appErr.New(appErr.EngineRejected).
				WithDetail("status", status).
				WithDetail("body", truncate(respBody))
		}
	}
	return nil, appErr.Wrapf(lastErr, appErr.JudgeSystemError, "engine unavailable after %d attempts", c.retries()+1)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("X-Auth-Token", c.cfg.AuthToken)
	}
	if c.cfg.RapidAPIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.RapidAPIKey)
		if c.cfg.RapidAPIHost != "" {
			req.Header.Set("X-RapidAPI-Host", c.cfg.RapidAPIHost)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body failed: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func encode(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// decode tolerates the line breaks the engine inserts into base64 output and
// returns undecodable text unchanged.
func decode(s *string) string {
	if s == nil || *s == "" {
		return ""
	}
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, *s)
	out, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return *s
	}
	return string(out)
}

func truncate(b []byte) string {
	if len(b) > maxErrorBodyBytes {
		return string(b[:maxErrorBodyBytes]) + "..."
	}
	return string(b)
}
