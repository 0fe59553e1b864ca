package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/metrics"
)

const defaultNarrationBase = "https://api.elevenlabs.io/v1"

// NarrationClient ElevenLabs 语音合成客户端
type NarrationClient struct {
	baseURL      string
	apiKey       string
	voiceID      string
	modelID      string
	outputFormat string
	httpClient   *http.Client
}

func NewNarrationClient(cfg *config.NarrationAPIConfig) *NarrationClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultNarrationBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &NarrationClient{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		voiceID:      cfg.VoiceID,
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Synthesize 将旁白文本合成为语音，返回音频原始字节
func (c *NarrationClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("narration text is empty")
	}

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.modelID,
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(c.voiceID)
	if c.outputFormat != "" {
		endpoint += "?output_format=" + url.QueryEscape(c.outputFormat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	res, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NarrationTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeSpeechAPIError, "narration synthesis request failed")
	}
	defer res.Body.Close()

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.NarrationTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeSpeechAPIError, "narration synthesis request failed")
	}
	if res.StatusCode != http.StatusOK {
		metrics.NarrationTotal.WithLabelValues("error").Inc()
		return nil, apperrors.New(apperrors.CodeSpeechAPIError, "narration synthesis request failed").
			WithDetail(fmt.Sprintf("http %d: %s", res.StatusCode, string(audio)))
	}
	if len(audio) == 0 {
		metrics.NarrationTotal.WithLabelValues("error").Inc()
		return nil, apperrors.New(apperrors.CodeSpeechAPIError, "narration synthesis request failed").
			WithDetail("empty audio payload")
	}

	metrics.NarrationTotal.WithLabelValues("success").Inc()
	metrics.NarrationAudioBytes.WithLabelValues().Observe(float64(len(audio)))
	return audio, nil
}
