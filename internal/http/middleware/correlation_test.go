package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
)

func correlatedRouter(seen *ctxutil.Correlation) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Correlate())
	r.POST("/api/students/x/interactions", func(c *gin.Context) {
		*seen, _ = ctxutil.CorrelationFrom(c.Request.Context())
		c.Status(http.StatusCreated)
	})
	return r
}

func TestCorrelateKeepsCallerRequestID(t *testing.T) {
	var seen ctxutil.Correlation
	r := correlatedRouter(&seen)

	req := httptest.NewRequest(http.MethodPost, "/api/students/x/interactions", nil)
	req.Header.Set(headerRequestID, "lms-batch-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.RequestID != "lms-batch-42" || seen.Source != ctxutil.SourceHTTP {
		t.Fatalf("unexpected correlation: %+v", seen)
	}
	if got := rec.Header().Get(headerRequestID); got != "lms-batch-42" {
		t.Fatalf("request id not echoed: %q", got)
	}
	if got := rec.Header().Get(headerTraceID); got != "" {
		t.Fatalf("no span, so no trace header expected, got %q", got)
	}
}

func TestCorrelateReplacesOversizedRequestID(t *testing.T) {
	var seen ctxutil.Correlation
	r := correlatedRouter(&seen)

	req := httptest.NewRequest(http.MethodPost, "/api/students/x/interactions", nil)
	req.Header.Set(headerRequestID, strings.Repeat("a", maxRequestIDLen+1))
	r.ServeHTTP(httptest.NewRecorder(), req)

	if seen.RequestID == "" || len(seen.RequestID) > maxRequestIDLen {
		t.Fatalf("oversized id should be replaced, got %q", seen.RequestID)
	}
}

func TestCorrelateUsesActiveTraceID(t *testing.T) {
	var seen ctxutil.Correlation
	r := correlatedRouter(&seen)

	traceID := trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/students/x/interactions", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen.TraceID != traceID.String() {
		t.Fatalf("trace id: want=%s got=%s", traceID, seen.TraceID)
	}
	if got := rec.Header().Get(headerTraceID); got != traceID.String() {
		t.Fatalf("trace header: %q", got)
	}
}
