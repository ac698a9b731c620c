package engine_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codejudge/internal/judge/engine"
	appErr "codejudge/pkg/errors"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func unb64(t *testing.T, s string) string {
	t.Helper()
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return string(out)
}

func newClient(t *testing.T, url string, mutate func(*engine.Config)) *engine.Client {
	t.Helper()
	cfg := engine.Config{
		BaseURL:   url,
		AuthToken: "secret",
		RetryBase: time.Millisecond,
		RetryMax:  2 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := engine.NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSubmitBatchChunksAndEncodes(t *testing.T) {
	t.Parallel()
	var (
		mu      sync.Mutex
		batches [][]map[string]interface{}
		next    int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submissions/batch" || r.URL.Query().Get("base64_encoded") != "true" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		}
		if r.Header.Get("X-Auth-Token") != "secret" {
			t.Errorf("missing auth header")
		}
		var body struct {
			Submissions []map[string]interface{} `json:"submissions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		batches = append(batches, body.Submissions)
		resp := make([]map[string]string, 0, len(body.Submissions))
		for range body.Submissions {
			next++
			resp = append(resp, map[string]string{"token": fmt.Sprintf("tok-%d", next)})
		}
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL+"/", func(c *engine.Config) { c.MaxBatchSize = 2 })
	units := []engine.SubmissionUnit{
		{SourceCode: "print(1)", LanguageID: 71, Stdin: "1", ExpectedOutput: "1", CPUTimeLimit: 2, MemoryLimitKB: 128000},
		{SourceCode: "print(1)", LanguageID: 71, Stdin: "2", ExpectedOutput: "2", CPUTimeLimit: 2, MemoryLimitKB: 128000},
		{SourceCode: "print(1)", LanguageID: 71, Stdin: "3", ExpectedOutput: "3", CPUTimeLimit: 2, MemoryLimitKB: 128000},
	}
	tokens, err := client.SubmitBatch(context.Background(), units)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	want := []engine.Token{"tok-1", "tok-2", "tok-3"}
	if fmt.Sprint(tokens) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	if len(batches) != 2 || len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Fatalf("expected chunks of 2 and 1, got %d batches", len(batches))
	}
	first := batches[0][0]
	if unb64(t, first["source_code"].(string)) != "print(1)" || unb64(t, first["stdin"].(string)) != "1" {
		t.Fatalf("payload not base64 encoded: %v", first)
	}
	if first["language_id"].(float64) != 71 || first["memory_limit"].(float64) != 128000 || first["cpu_time_limit"].(float64) != 2 {
		t.Fatalf("unexpected limits: %v", first)
	}
	if unb64(t, batches[1][0]["expected_output"].(string)) != "3" {
		t.Fatalf("unexpected expected_output in second chunk")
	}
}

func TestSubmitBatchErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		handler  func(calls int32) (int, string)
		retries  int
		wantCode appErr.ErrorCode
		wantCall int32
	}{
		{
			name:     "entry-rejected",
			handler:  func(int32) (int, string) { return 201, `[{"token":"a"},{"language_id":["is not valid"]}]` },
			wantCode: appErr.EngineRejected,
			wantCall: 1,
		},
		{
			name:     "client-error",
			handler:  func(int32) (int, string) { return 422, `{"error":"bad"}` },
			wantCode: appErr.EngineRejected,
			wantCall: 1,
		},
		{
			name:     "server-error-exhausted",
			handler:  func(int32) (int, string) { return 503, `busy` },
			retries:  2,
			wantCode: appErr.JudgeSystemError,
			wantCall: 3,
		},
		{
			name:     "token-count-mismatch",
			handler:  func(int32) (int, string) { return 201, `[]` },
			wantCode: appErr.JudgeSystemError,
			wantCall: 1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status, body := tt.handler(n)
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			client := newClient(t, srv.URL, func(c *engine.Config) {
				if tt.retries > 0 {
					c.MaxRetries = tt.retries
				}
			})
			units := []engine.SubmissionUnit{{SourceCode: "x", LanguageID: 63}, {SourceCode: "x", LanguageID: 63}}
			_, err := client.SubmitBatch(context.Background(), units)
			if appErr.GetCode(err) != tt.wantCode {
				t.Fatalf("expected code %d, got %v", tt.wantCode, err)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCall {
				t.Fatalf("expected %d calls, got %d", tt.wantCall, got)
			}
		})
	}
}

func TestSubmitBatchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"token":"only"}]`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, nil)
	tokens, err := client.SubmitBatch(context.Background(), []engine.SubmissionUnit{{SourceCode: "x", LanguageID: 62}})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "only" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}

func TestSubmitBatchRequiresUnits(t *testing.T) {
	t.Parallel()
	client := newClient(t, "http://127.0.0.1:1", nil)
	if _, err := client.SubmitBatch(context.Background(), nil); appErr.GetCode(err) != appErr.InvalidParams {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
}

func TestFetchBatchDecodesResults(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tokens") != "a,b" || q.Get("base64_encoded") != "true" || !strings.Contains(q.Get("fields"), "compile_output") {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		wrapped := b64("line one\nline two\n")
		wrapped = wrapped[:8] + "\n" + wrapped[8:]
		_, _ = fmt.Fprintf(w, `{"submissions":[
			{"token":"a","stdout":%q,"stderr":null,"compile_output":null,"status":{"id":3,"description":"Accepted"},"time":"0.012","memory":2048},
			{"token":"b","stdout":null,"stderr":%q,"status":{"id":11}}
		]}`, wrapped, b64("boom"))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, nil)
	results, err := client.FetchBatch(context.Background(), []engine.Token{"a", "b"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Stdout != "line one\nline two\n" || results[0].TimeSeconds != 0.012 || results[0].MemoryKB != 2048 {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if results[1].Stderr != "boom" || results[1].Status.Description != "Runtime Error (NZEC)" {
		t.Fatalf("unexpected second result %+v", results[1])
	}
}

func TestClientStopsOnCancel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	client := newClient(t, srv.URL, func(c *engine.Config) {
		c.RetryBase = time.Minute
		c.RetryMax = time.Minute
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.SubmitBatch(ctx, []engine.SubmissionUnit{{SourceCode: "x"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("client kept retrying after cancel")
	}
	if appErr.GetCode(err) != appErr.Timeout {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := engine.NewClient(engine.Config{}, nil); err == nil {
		t.Fatalf("expected error for empty baseURL")
	}
}

func TestComputeBackoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		retry int
		base  time.Duration
		max   time.Duration
		want  time.Duration
	}{
		{name: "base", retry: 0, base: time.Second, max: 30 * time.Second, want: time.Second},
		{name: "double", retry: 1, base: time.Second, max: 30 * time.Second, want: 2 * time.Second},
		{name: "quad", retry: 2, base: time.Second, max: 30 * time.Second, want: 4 * time.Second},
		{name: "capped", retry: 10, base: time.Second, max: 30 * time.Second, want: 30 * time.Second},
		{name: "base-over-max", retry: 0, base: time.Minute, max: time.Second, want: time.Second},
		{name: "no-base", retry: 3, base: 0, max: 30 * time.Second, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := engine.ComputeBackoff(tt.retry, tt.base, tt.max); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
