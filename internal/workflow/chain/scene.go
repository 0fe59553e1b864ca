package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	llmctx "z-scene-ai-api/internal/domain/service"
	wfmodel "z-scene-ai-api/internal/workflow/model"
	workflowport "z-scene-ai-api/internal/workflow/port"
	workflowprompt "z-scene-ai-api/internal/workflow/prompt"
)

// SceneChain 场景脚本生成链：根据开场主题或用户动作生成一段
// 包含叙事、图像提示词、视频提示词、旁白和候选动作的场景脚本。
type SceneChain struct {
	factory workflowport.ChatModelFactory
}

func NewSceneChain(factory workflowport.ChatModelFactory) *SceneChain {
	return &SceneChain{factory: factory}
}

func (c *SceneChain) Invoke(ctx context.Context, in *wfmodel.SceneScriptInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if in.Opening() {
		if strings.TrimSpace(in.Theme) == "" {
			return nil, fmt.Errorf("theme is required")
		}
	} else {
		if strings.TrimSpace(in.Action) == "" {
			return nil, fmt.Errorf("action is required")
		}
		if strings.TrimSpace(in.Storyline) == "" {
			return nil, fmt.Errorf("storyline is required")
		}
	}

	workflow := "scene_continue"
	if in.Opening() {
		workflow = "scene_open"
	}
	ctx = llmctx.WithWorkflowProvider(ctx, workflow, strings.TrimSpace(in.Provider))
	chatModel, err := c.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatSceneMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildSceneModelOptions(in)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

var scenePromptRegistry = workflowprompt.NewRegistry()

func formatSceneMessages(ctx context.Context, in *wfmodel.SceneScriptInput) ([]*schema.Message, error) {
	if in.Opening() {
		tpl, err := scenePromptRegistry.ChatTemplate(workflowprompt.PromptSceneOpenV1)
		if err != nil {
			return nil, err
		}
		return tpl.Format(ctx, map[string]any{
			"theme": strings.TrimSpace(in.Theme),
		})
	}

	tpl, err := scenePromptRegistry.ChatTemplate(workflowprompt.PromptSceneContinueV1)
	if err != nil {
		return nil, err
	}
	return tpl.Format(ctx, map[string]any{
		"action":              strings.TrimSpace(in.Action),
		"storyline":           strings.TrimSpace(in.Storyline),
		"core_details":        strings.TrimSpace(in.CoreDetails),
		"anchor_image_prompt": strings.TrimSpace(in.AnchorImagePrompt),
	})
}

func buildSceneModelOptions(in *wfmodel.SceneScriptInput) []model.Option {
	opts := make([]model.Option, 0, 3)
	if in == nil {
		return opts
	}
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	return opts
}
