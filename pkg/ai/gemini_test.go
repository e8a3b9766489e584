package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("expected missing api key to fail")
	}
}

func TestGeminiGenerateText(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "hello back"}}}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetBaseURL(srv.URL)

	text, err := client.GenerateText(context.Background(), "models/gemini-2.5-flash", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "hello back" {
		t.Fatalf("expected %q, got %q", "hello back", text)
	}
	if !strings.Contains(gotPath, "gemini-2.5-flash:generateContent") {
		t.Fatalf("models/ prefix should be stripped, path was %q", gotPath)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "hello" {
		t.Fatalf("prompt should be forwarded verbatim, got %+v", gotBody.Contents)
	}
}

func TestGeminiGenerateTextErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "bad prompt"}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetBaseURL(srv.URL)

	if _, err := client.GenerateText(context.Background(), "gemini-2.5-flash", "hello"); err == nil {
		t.Fatalf("expected API error")
	} else if !strings.Contains(err.Error(), "bad prompt") {
		t.Fatalf("expected provider message passed through, got %v", err)
	}
}

func TestGeminiGenerateTextEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetBaseURL(srv.URL)

	if _, err := client.GenerateText(context.Background(), "gemini-2.5-flash", "hello"); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}
