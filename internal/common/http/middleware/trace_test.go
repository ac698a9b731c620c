package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

type traceResponse struct {
	TraceID    string `json:"trace_id"`
	RequestID  string `json:"request_id"`
	UserID     string `json:"user_id"`
	CtxTraceID string `json:"ctx_trace_id"`
	CtxUserID  string `json:"ctx_user_id"`
}

func newTraceRouter(cfg commonmw.TraceContextConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(commonmw.TraceContextMiddlewareWithConfig(cfg))
	router.GET("/trace", func(c *gin.Context) {
		ctx := c.Request.Context()
		ctxTrace, _ := ctx.Value(contextkey.TraceID).(string)
		ctxUser, _ := ctx.Value(contextkey.UserID).(string)
		c.JSON(http.StatusOK, traceResponse{
			TraceID:    c.GetString("trace_id"),
			RequestID:  c.GetString("request_id"),
			UserID:     commonmw.UserID(c),
			CtxTraceID: ctxTrace,
			CtxUserID:  ctxUser,
		})
	})
	return router
}

func TestTraceContextMiddleware(t *testing.T) {
	cases := []struct {
		name            string
		cfg             commonmw.TraceContextConfig
		headers         map[string]string
		expectedTraceID string
		expectedUserID  string
	}{
		{
			name: "generate trace and request id",
			cfg:  commonmw.TraceContextConfig{AllowUserIDHeader: true},
		},
		{
			name: "preserve trace and user id",
			cfg:  commonmw.TraceContextConfig{AllowUserIDHeader: true, WriteUserIDHeader: true},
			headers: map[string]string{
				"X-Trace-Id": "trace-123",
				"X-User-Id":  "42",
			},
			expectedTraceID: "trace-123",
			expectedUserID:  "42",
		},
		{
			name:            "user header ignored when not trusted",
			cfg:             commonmw.TraceContextConfig{},
			headers:         map[string]string{"X-Trace-Id": "trace-9", "X-User-Id": "42"},
			expectedTraceID: "trace-9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTraceRouter(tc.cfg)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/trace", nil)
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			router.ServeHTTP(rec, req)

			var resp traceResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response failed: %v", err)
			}
			if resp.TraceID == "" || resp.RequestID == "" {
				t.Fatalf("expected trace and request id, got %+v", resp)
			}
			if resp.CtxTraceID != resp.TraceID {
				t.Fatalf("context trace id %q differs from %q", resp.CtxTraceID, resp.TraceID)
			}
			if tc.expectedTraceID != "" && resp.TraceID != tc.expectedTraceID {
				t.Fatalf("expected trace id %s, got %s", tc.expectedTraceID, resp.TraceID)
			}
			if resp.UserID != tc.expectedUserID || resp.CtxUserID != tc.expectedUserID {
				t.Fatalf("expected user id %q, got %q / %q", tc.expectedUserID, resp.UserID, resp.CtxUserID)
			}
			if rec.Header().Get("X-Trace-Id") != resp.TraceID {
				t.Fatalf("expected trace id header")
			}
			if tc.cfg.WriteUserIDHeader && rec.Header().Get("X-User-Id") != tc.expectedUserID {
				t.Fatalf("expected user id header")
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(commonmw.BodyLimit(8))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("0123456789")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ok")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
