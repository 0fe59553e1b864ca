package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"
)

// newRunwayTestServer 模拟 useapi.net 网关：账号注册、素材上传、
// 任务创建和轮询
func newRunwayTestServer(t *testing.T, pollsUntilDone int, finalStatus string) (*httptest.Server, *atomic.Int64, *atomic.Int64) {
	t.Helper()
	var uploads, polls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jwt": map[string]any{"token": "jwt-token"},
		})
	})
	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		n := uploads.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"assetId": strings.Repeat("a", int(n)),
		})
	})
	mux.HandleFunc("/gen3turbo/create", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["text_prompt"] == "" {
			t.Error("missing text_prompt in create payload")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"taskId": "task-1"})
	})
	mux.HandleFunc("/tasks/", func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		status := "RUNNING"
		artifacts := []map[string]any{}
		if int(n) >= pollsUntilDone {
			status = finalStatus
			if finalStatus == "SUCCEEDED" {
				artifacts = []map[string]any{{"url": "https://video.example/final.mp4"}}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"artifacts": artifacts,
			"error":     "render exploded",
		})
	})
	// 帧图像下载
	mux.HandleFunc("/frames/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pngbytes"))
	})

	return httptest.NewServer(mux), &uploads, &polls
}

func testVideoConfig(baseURL string) *config.VideoAPIConfig {
	return &config.VideoAPIConfig{
		BaseURL:      baseURL,
		APIKey:       "k",
		AccountEmail: "user@example.com",
		AccountPass:  "pw",
		Seconds:      10,
		AspectRatio:  "landscape",
		PollInterval: time.Millisecond,
		MaxWait:      2 * time.Second,
		Timeout:      5 * time.Second,
	}
}

func TestVideoClientGenerate(t *testing.T) {
	srv, uploads, _ := newRunwayTestServer(t, 3, "SUCCEEDED")
	defer srv.Close()

	c := NewVideoClient(testVideoConfig(srv.URL))
	frames := []string{
		srv.URL + "/frames/one.png",
		srv.URL + "/frames/two.png",
		srv.URL + "/frames/three.png",
	}

	url, err := c.Generate(context.Background(), "explorer in a cave", frames)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if url != "https://video.example/final.mp4" {
		t.Errorf("url = %q", url)
	}
	if uploads.Load() != 3 {
		t.Errorf("uploads = %d, want 3", uploads.Load())
	}
}

func TestVideoClientSkipsEmptyFrames(t *testing.T) {
	srv, uploads, _ := newRunwayTestServer(t, 1, "SUCCEEDED")
	defer srv.Close()

	c := NewVideoClient(testVideoConfig(srv.URL))
	frames := []string{
		srv.URL + "/frames/one.png",
		"",
		srv.URL + "/frames/three.png",
	}

	if _, err := c.Generate(context.Background(), "p", frames); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if uploads.Load() != 2 {
		t.Errorf("uploads = %d, want 2 (empty placeholder skipped)", uploads.Load())
	}
}

func TestVideoClientAllFramesEmpty(t *testing.T) {
	c := NewVideoClient(testVideoConfig("http://unreachable.invalid"))

	_, err := c.Generate(context.Background(), "p", []string{"", "", ""})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeVideoAPIError {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeVideoAPIError)
	}
}

func TestVideoClientTaskFailed(t *testing.T) {
	srv, _, _ := newRunwayTestServer(t, 2, "FAILED")
	defer srv.Close()

	c := NewVideoClient(testVideoConfig(srv.URL))
	_, err := c.Generate(context.Background(), "p", []string{srv.URL + "/frames/one.png"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeVideoAPIError {
		t.Errorf("error code = %s", appErr.Code)
	}
	if !strings.Contains(appErr.Detail, "render exploded") {
		t.Errorf("detail = %q, want the upstream error", appErr.Detail)
	}
}

func TestVideoClientDataURIFrame(t *testing.T) {
	srv, uploads, _ := newRunwayTestServer(t, 1, "SUCCEEDED")
	defer srv.Close()

	c := NewVideoClient(testVideoConfig(srv.URL))
	frames := []string{"data:image/png;base64,cG5nYnl0ZXM="}

	if _, err := c.Generate(context.Background(), "p", frames); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if uploads.Load() != 1 {
		t.Errorf("uploads = %d, want 1", uploads.Load())
	}
}
