package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError,
		"": slog.LevelInfo, "chatty": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v", in, got)
		}
	}
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLoader, Output: &buf})
	l.WithFields(NewFields().WithSnapshot(3, 120, 2)).Info("Snapshot loaded")

	out := buf.String()
	for _, want := range []string{"component=loader", "records=120", "coercion_failures=2", "snapshot_version=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("component repeated: %q", out)
	}
	if l.WithComponent(ComponentLoader) != l {
		t.Fatal("same component should not re-wrap")
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentWorker, Output: &buf})
	l.LogError(context.Background(), "Sync failed", OpSync, errors.New("upstream 503"), nil)
	if !strings.Contains(buf.String(), "operation=sync") || !strings.Contains(buf.String(), "upstream 503") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestMiddleware_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	var got *Logger
	h := Middleware(base, func(*http.Request) string { return "req_abc" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		got.InfoContext(r.Context(), "inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger = %+v", got)
	}
	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id missing: %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}
}
