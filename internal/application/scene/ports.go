package scene

import (
	"context"

	wfmodel "z-scene-ai-api/internal/workflow/model"
)

// ScriptGenerator 生成场景脚本（叙事 + 图像提示词 + 视频提示词 + 旁白 + 动作）。
type ScriptGenerator interface {
	Generate(ctx context.Context, in *wfmodel.SceneScriptInput) (*wfmodel.SceneScriptOutput, error)
}

// ImageGenerator 按提示词生成单张图像，返回可访问的图像 URL。
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VideoGenerator 基于有序关键帧图像和提示词合成视频，返回视频 URL。
// frames 中的空字符串表示该帧生成失败，实现方需跳过。
type VideoGenerator interface {
	Generate(ctx context.Context, prompt string, frames []string) (string, error)
}

// NarrationGenerator 将旁白文本合成为语音，返回音频原始字节。
type NarrationGenerator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
