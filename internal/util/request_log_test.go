package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestLogUsesRequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := WithRequestID(WithRequestLog("server", nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/rpc/askModel", nil)
	req.RemoteAddr = "198.51.100.10:52011"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line struct {
		Msg       string `json:"msg"`
		Service   string `json:"service"`
		Status    int    `json:"status"`
		ClientIP  string `json:"client_ip"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("parse log line: %v (%q)", err, buf.String())
	}
	if line.Msg != "http_request" || line.Service != "server" {
		t.Fatalf("unexpected log line: %+v", line)
	}
	if line.Status != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", line.Status, http.StatusTeapot)
	}
	if line.ClientIP != "198.51.100.10" {
		t.Fatalf("client_ip = %q", line.ClientIP)
	}
	if line.RequestID == "" || line.RequestID != rec.Header().Get("X-Request-Id") {
		t.Fatalf("request_id = %q, want the id from the response header %q",
			line.RequestID, rec.Header().Get("X-Request-Id"))
	}
}
