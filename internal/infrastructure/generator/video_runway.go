package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/logger"
	"z-scene-ai-api/pkg/metrics"
)

const defaultVideoBase = "https://api.useapi.net/v1/runwayml"

// VideoClient useapi.net Runway 网关客户端。
//
// 工作流：账号注册换取 JWT（一次）→ 逐帧上传素材 → 创建 gen3turbo
// 任务 → 轮询任务直到出结果。帧列表中的空串占位会被跳过。
type VideoClient struct {
	baseURL      string
	apiKey       string
	accountEmail string
	accountPass  string
	seconds      int
	aspectRatio  string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *http.Client

	mu            sync.Mutex
	authenticated bool
}

func NewVideoClient(cfg *config.VideoAPIConfig) *VideoClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultVideoBase
	}
	seconds := cfg.Seconds
	if seconds <= 0 {
		seconds = 10
	}
	ratio := cfg.AspectRatio
	if ratio == "" {
		ratio = "landscape"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 1500 * time.Millisecond
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 5 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VideoClient{
		baseURL:      base,
		apiKey:       cfg.APIKey,
		accountEmail: cfg.AccountEmail,
		accountPass:  cfg.AccountPass,
		seconds:      seconds,
		aspectRatio:  ratio,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Generate 基于有序关键帧合成视频并返回视频 URL
func (c *VideoClient) Generate(ctx context.Context, prompt string, frames []string) (string, error) {
	usable := make([]string, 0, len(frames))
	for _, f := range frames {
		if strings.TrimSpace(f) != "" {
			usable = append(usable, f)
		}
	}
	if len(usable) == 0 {
		return "", apperrors.New(apperrors.CodeVideoAPIError, "video generation request failed").
			WithDetail("no usable frames")
	}

	if err := c.ensureAccount(ctx); err != nil {
		metrics.VideoGenerationTotal.WithLabelValues("error").Inc()
		return "", err
	}

	assetIDs := make([]string, 0, len(usable))
	for _, frame := range usable {
		id, err := c.uploadFrame(ctx, frame)
		if err != nil {
			metrics.VideoGenerationTotal.WithLabelValues("error").Inc()
			return "", apperrors.Wrap(err, apperrors.CodeVideoAPIError, "failed to upload frame")
		}
		assetIDs = append(assetIDs, id)
	}

	payload := map[string]any{
		"firstImage_assetId": assetIDs[0],
		"lastImage_assetId":  assetIDs[len(assetIDs)-1],
		"text_prompt":        prompt,
		"aspect_ratio":       c.aspectRatio,
		"seconds":            c.seconds,
		"maxJobs":            5,
	}
	if len(assetIDs) > 2 {
		payload["middleImage_assetId"] = assetIDs[1]
	}

	var created struct {
		TaskID string `json:"taskId"`
	}
	if err := c.postJSON(ctx, "/gen3turbo/create", payload, &created); err != nil {
		metrics.VideoGenerationTotal.WithLabelValues("error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeVideoAPIError, "failed to create video task")
	}
	if created.TaskID == "" {
		metrics.VideoGenerationTotal.WithLabelValues("error").Inc()
		return "", apperrors.New(apperrors.CodeVideoAPIError, "failed to create video task").
			WithDetail("no task id in response")
	}

	logger.Debug(ctx, "video task created", "task_id", created.TaskID)

	videoURL, err := c.pollTask(ctx, created.TaskID)
	if err != nil {
		metrics.VideoGenerationTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.VideoGenerationTotal.WithLabelValues("success").Inc()
	return videoURL, nil
}

// ensureAccount 注册账号换取 JWT，整个进程只做一次。
// useapi.net 将 JWT 绑定在账号上，后续请求仍用 API Key 鉴权。
func (c *VideoClient) ensureAccount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return nil
	}

	payload := map[string]any{
		"email":    c.accountEmail,
		"password": c.accountPass,
		"maxJobs":  5,
	}
	var resp struct {
		JWT struct {
			Token string `json:"token"`
		} `json:"jwt"`
	}
	if err := c.postJSON(ctx, "/accounts/"+url.PathEscape(c.accountEmail), payload, &resp); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVideoAPIError, "runway account authentication failed")
	}
	if resp.JWT.Token == "" {
		return apperrors.New(apperrors.CodeVideoAPIError, "runway account authentication failed").
			WithDetail("token not found in response")
	}

	c.authenticated = true
	return nil
}

// uploadFrame 下载帧图像并上传为素材，返回 assetId。
// 支持 http(s) URL 和 data URI 两种帧来源。
func (c *VideoClient) uploadFrame(ctx context.Context, frame string) (string, error) {
	data, name, contentType, err := c.fetchFrame(ctx, frame)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/assets/?name="+url.QueryEscape(name), strings.NewReader(string(data)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to upload asset: http %d: %s", res.StatusCode, string(bodyBytes))
	}

	var resp struct {
		AssetID string `json:"assetId"`
	}
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return "", err
	}
	if resp.AssetID == "" {
		return "", errors.New("no asset id in response")
	}
	return resp.AssetID, nil
}

func (c *VideoClient) fetchFrame(ctx context.Context, frame string) (data []byte, name, contentType string, err error) {
	if strings.HasPrefix(frame, "data:") {
		rest, ok := strings.CutPrefix(frame, "data:")
		if !ok {
			return nil, "", "", errors.New("malformed data uri")
		}
		meta, payload, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, "", "", errors.New("malformed data uri")
		}
		b, decErr := base64.StdEncoding.DecodeString(payload)
		if decErr != nil {
			return nil, "", "", decErr
		}
		ct := strings.TrimSuffix(meta, ";base64")
		if ct == "" {
			ct = "image/png"
		}
		return b, "frame", ct, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, frame, nil)
	if err != nil {
		return nil, "", "", err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("failed to download frame: http %d", res.StatusCode)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", "", err
	}

	filename := frame
	if i := strings.Index(filename, "?"); i >= 0 {
		filename = filename[:i]
	}
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	name = strings.TrimSuffix(filename, "."+extOf(filename))
	if name == "" {
		name = "frame"
	}
	return b, name, contentTypeOf(filename), nil
}

// pollTask 轮询任务直到终态或超出 maxWait
func (c *VideoClient) pollTask(ctx context.Context, taskID string) (string, error) {
	deadline := time.Now().Add(c.maxWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			metrics.VideoPollCount.WithLabelValues().Observe(float64(polls))
			return "", ctx.Err()
		case <-ticker.C:
		}

		polls++
		if time.Now().After(deadline) {
			metrics.VideoPollCount.WithLabelValues().Observe(float64(polls))
			return "", apperrors.New(apperrors.CodeVideoAPIError, "video generation request failed").
				WithDetail(fmt.Sprintf("task %s did not settle within %s", taskID, c.maxWait))
		}

		var task struct {
			Status    string `json:"status"`
			Error     string `json:"error"`
			Artifacts []struct {
				URL string `json:"url"`
			} `json:"artifacts"`
		}
		if err := c.getJSON(ctx, "/tasks/"+url.PathEscape(taskID), &task); err != nil {
			// 单次轮询失败继续重试，任务本身可能仍在推进
			logger.Warn(ctx, "video task poll failed", "task_id", taskID, "error", err.Error())
			continue
		}

		switch task.Status {
		case "SUCCEEDED":
			metrics.VideoPollCount.WithLabelValues().Observe(float64(polls))
			if len(task.Artifacts) == 0 || task.Artifacts[0].URL == "" {
				return "", apperrors.New(apperrors.CodeVideoAPIError, "video generation request failed").
					WithDetail("no video url in completed task")
			}
			return task.Artifacts[0].URL, nil
		case "FAILED":
			metrics.VideoPollCount.WithLabelValues().Observe(float64(polls))
			return "", apperrors.New(apperrors.CodeVideoAPIError, "video generation request failed").
				WithDetail(fmt.Sprintf("task failed: %s", task.Error))
		}
	}
}

func (c *VideoClient) postJSON(ctx context.Context, path string, body any, out any) error {
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
	if out == nil {
		return nil
	}
	return json.Unmarshal(bodyBytes, out)
}

func (c *VideoClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
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

func extOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

func contentTypeOf(filename string) string {
	switch extOf(filename) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "mp4":
		return "video/mp4"
	default:
		return "image/png"
	}
}
