package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"
)

func TestImageClientGenerate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"url": "https://img.example/one.png"}},
		})
	}))
	defer srv.Close()

	c := NewImageClient(&config.ImageAPIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "dall-e-3",
		Size:    "1792x1024",
		Quality: "hd",
		Timeout: 5 * time.Second,
	})

	url, err := c.Generate(context.Background(), "a glowing cave")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if url != "https://img.example/one.png" {
		t.Errorf("url = %q", url)
	}
	if gotBody["model"] != "dall-e-3" || gotBody["size"] != "1792x1024" || gotBody["quality"] != "hd" {
		t.Errorf("request body = %v", gotBody)
	}
	if gotBody["prompt"] != "a glowing cave" {
		t.Errorf("prompt = %v", gotBody["prompt"])
	}
}

func TestImageClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
			},
		},
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewImageClient(&config.ImageAPIConfig{BaseURL: srv.URL, APIKey: "k"})
			_, err := c.Generate(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if code := apperrors.AsAppError(err).Code; code != apperrors.CodeImageAPIError {
				t.Errorf("error code = %s, want %s", code, apperrors.CodeImageAPIError)
			}
		})
	}
}

func TestImageClientBase64Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": "aGVsbG8="}},
		})
	}))
	defer srv.Close()

	c := NewImageClient(&config.ImageAPIConfig{BaseURL: srv.URL, APIKey: "k"})
	url, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if url != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("url = %q", url)
	}
}
