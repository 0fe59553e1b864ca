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

func TestNarrationClientSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("xi-api-key = %q", r.Header.Get("xi-api-key"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello world" || body["model_id"] != "eleven_multilingual_v2" {
			t.Errorf("request body = %v", body)
		}
		_, _ = w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	c := NewNarrationClient(&config.NarrationAPIConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		VoiceID:      "voice-1",
		ModelID:      "eleven_multilingual_v2",
		OutputFormat: "mp3_44100_128",
		Timeout:      5 * time.Second,
	})

	audio, err := c.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3bytes" {
		t.Errorf("audio = %q", audio)
	}
}

func TestNarrationClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"invalid voice"}`, http.StatusUnauthorized)
			},
		},
		{
			name: "empty audio",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewNarrationClient(&config.NarrationAPIConfig{BaseURL: srv.URL, APIKey: "k", VoiceID: "v"})
			_, err := c.Synthesize(context.Background(), "text")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if code := apperrors.AsAppError(err).Code; code != apperrors.CodeSpeechAPIError {
				t.Errorf("error code = %s, want %s", code, apperrors.CodeSpeechAPIError)
			}
		})
	}
}

func TestNarrationClientRejectsEmptyText(t *testing.T) {
	c := NewNarrationClient(&config.NarrationAPIConfig{BaseURL: "http://unreachable.invalid", APIKey: "k", VoiceID: "v"})
	if _, err := c.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
