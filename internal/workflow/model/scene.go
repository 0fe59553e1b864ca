package model

import "time"

// SceneScriptInput 场景脚本生成输入
//
// Theme 非空表示开场脚本；否则为续篇脚本，需携带已有故事线、
// 核心角色模板和上一场景末图的提示词。
type SceneScriptInput struct {
	Theme string `json:"theme,omitempty"`

	Action            string `json:"action,omitempty"`
	Storyline         string `json:"storyline,omitempty"`
	CoreDetails       string `json:"core_details,omitempty"`
	AnchorImagePrompt string `json:"anchor_image_prompt,omitempty"`

	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Opening 是否为开场脚本请求
func (in *SceneScriptInput) Opening() bool {
	return in != nil && in.Theme != ""
}

// SceneScript 模型输出的场景脚本
//
// 开场脚本恰好 3 条 image_prompts，续篇恰好 2 条（第三张图由上一
// 场景的末图补齐）。字段缺失或数量不符一律按脚本失败处理。
type SceneScript struct {
	NarrativeText string   `json:"narrative_text"`
	ImagePrompts  []string `json:"image_prompts"`
	VideoPrompt   string   `json:"video_generation_prompt"`
	NarrationText string   `json:"narration"`
	Actions       []string `json:"actions"`
	CoreDetails   string   `json:"core_details"`
}

// SceneScriptOutput 场景脚本生成输出
type SceneScriptOutput struct {
	Script  *SceneScript
	RawJSON string
	Meta    LLMUsageMeta
}

// LLMUsageMeta LLM 调用的用量元数据
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Temperature      float64
	GeneratedAt      time.Time
}
