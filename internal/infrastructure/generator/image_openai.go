// Package generator 封装图像、视频、语音三类外部生成服务的客户端
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/metrics"
)

const defaultImageBase = "https://api.openai.com/v1"

// ImageClient OpenAI 兼容的图像生成客户端
type ImageClient struct {
	baseURL    string
	apiKey     string
	model      string
	size       string
	quality    string
	httpClient *http.Client
}

func NewImageClient(cfg *config.ImageAPIConfig) *ImageClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultImageBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ImageClient{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		size:       cfg.Size,
		quality:    cfg.Quality,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate 生成单张图像并返回其 URL
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}

	body := map[string]any{
		"model":   c.model,
		"prompt":  prompt,
		"size":    c.size,
		"quality": c.quality,
		"n":       1,
	}

	var resp struct {
		Data []struct {
			URL string `json:"url"`
			B64 string `json:"b64_json"`
		} `json:"data"`
	}

	start := time.Now()
	err := c.postJSON(ctx, "/images/generations", body, &resp)
	metrics.ImageGenerationDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImageGenerationTotal.WithLabelValues("error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeImageAPIError, "image generation request failed")
	}

	if len(resp.Data) == 0 {
		metrics.ImageGenerationTotal.WithLabelValues("error").Inc()
		return "", apperrors.New(apperrors.CodeImageAPIError, "image generation request failed").
			WithDetail("no images returned")
	}

	url := resp.Data[0].URL
	if url == "" && resp.Data[0].B64 != "" {
		url = "data:image/png;base64," + resp.Data[0].B64
	}
	if url == "" {
		metrics.ImageGenerationTotal.WithLabelValues("error").Inc()
		return "", apperrors.New(apperrors.CodeImageAPIError, "image generation request failed").
			WithDetail("empty image payload")
	}

	metrics.ImageGenerationTotal.WithLabelValues("success").Inc()
	return url, nil
}

func (c *ImageClient) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}
