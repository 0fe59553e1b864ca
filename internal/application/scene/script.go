package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/logger"

	workflowchain "z-scene-ai-api/internal/workflow/chain"
	wfmodel "z-scene-ai-api/internal/workflow/model"
	workflownode "z-scene-ai-api/internal/workflow/node"
	workflowport "z-scene-ai-api/internal/workflow/port"
)

// 开场与续篇各自要求的图像提示词数量。续篇少一条，
// 由上一场景的末帧图像补齐为三帧。
const (
	openingImagePrompts      = 3
	continuationImagePrompts = 2
	expectedActions          = 2
)

// ScriptService 调用场景脚本工作流并把模型输出解析、校验为结构化脚本。
type ScriptService struct {
	chain *workflowchain.SceneChain
}

func NewScriptService(factory workflowport.ChatModelFactory) *ScriptService {
	return &ScriptService{
		chain: workflowchain.NewSceneChain(factory),
	}
}

func (s *ScriptService) Generate(ctx context.Context, in *wfmodel.SceneScriptInput) (*wfmodel.SceneScriptOutput, error) {
	if s == nil || s.chain == nil {
		return nil, fmt.Errorf("scene workflow not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	outMsg, err := s.chain.Invoke(ctx, in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeScriptFailure, "scene script generation failed")
	}

	meta := wfmodel.LLMUsageMeta{
		Provider:    strings.TrimSpace(in.Provider),
		Model:       strings.TrimSpace(in.Model),
		GeneratedAt: time.Now().UTC(),
	}
	if in.Temperature != nil {
		meta.Temperature = float64(*in.Temperature)
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}

	raw := workflownode.ExtractJSONObject(outMsg.Content)
	script, err := parseSceneScript(raw, in.Opening())
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "scene script generated",
		"provider", meta.Provider,
		"model", meta.Model,
		"prompt_tokens", meta.PromptTokens,
		"completion_tokens", meta.CompletionTokens,
		"raw_bytes", len(raw),
	)

	return &wfmodel.SceneScriptOutput{
		Script:  script,
		RawJSON: raw,
		Meta:    meta,
	}, nil
}

// parseSceneScript 解析并校验模型输出的脚本结构。
// 形状不符（字段缺失、提示词或动作数量不符）一律视为脚本失败，
// 不做降级修补：残缺的脚本会在后续阶段放大成更难定位的错误。
func parseSceneScript(raw string, opening bool) (*wfmodel.SceneScript, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.New(apperrors.CodeScriptFailure, "scene script generation failed").
			WithDetail("empty model output")
	}

	var script wfmodel.SceneScript
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeScriptFailure, "scene script generation failed").
			WithDetail("model output is not valid JSON")
	}

	want := continuationImagePrompts
	if opening {
		want = openingImagePrompts
	}

	switch {
	case strings.TrimSpace(script.NarrativeText) == "":
		return nil, scriptShapeError("narrative_text is empty")
	case len(script.ImagePrompts) != want:
		return nil, scriptShapeError(fmt.Sprintf("expected %d image prompts, got %d", want, len(script.ImagePrompts)))
	case strings.TrimSpace(script.VideoPrompt) == "":
		return nil, scriptShapeError("video_generation_prompt is empty")
	case strings.TrimSpace(script.NarrationText) == "":
		return nil, scriptShapeError("narration is empty")
	case len(script.Actions) != expectedActions:
		return nil, scriptShapeError(fmt.Sprintf("expected %d actions, got %d", expectedActions, len(script.Actions)))
	// 开场必须产出核心模板，后续场景靠它保持画面一致；
	// 续篇允许留空，此时沿用已有模板
	case opening && strings.TrimSpace(script.CoreDetails) == "":
		return nil, scriptShapeError("core_details is empty")
	}

	for i, p := range script.ImagePrompts {
		if strings.TrimSpace(p) == "" {
			return nil, scriptShapeError(fmt.Sprintf("image prompt %d is empty", i))
		}
	}
	for i, a := range script.Actions {
		if strings.TrimSpace(a) == "" {
			return nil, scriptShapeError(fmt.Sprintf("action %d is empty", i))
		}
	}

	return &script, nil
}

func scriptShapeError(detail string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeScriptFailure, "scene script generation failed").WithDetail(detail)
}
