package scene

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"z-scene-ai-api/internal/domain/entity"
	wfmodel "z-scene-ai-api/internal/workflow/model"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/logger"
	"z-scene-ai-api/pkg/metrics"
)

// CycleInput 一次场景生成周期的输入。
// Theme 非空表示开场周期，否则为续篇周期。
type CycleInput struct {
	Theme string

	Action            string
	Storyline         string
	CoreDetails       string
	AnchorImagePrompt string
	AnchorImageURL    string

	Provider string
	Model    string
}

// Compiler 把一次场景生成周期编排为完整的 SceneOutcome：
// 脚本生成 → 并行图像生成（容忍部分失败）→ 视频合成与旁白合成并行。
type Compiler struct {
	script    ScriptGenerator
	image     ImageGenerator
	video     VideoGenerator
	narration NarrationGenerator
}

func NewCompiler(script ScriptGenerator, image ImageGenerator, video VideoGenerator, narration NarrationGenerator) *Compiler {
	return &Compiler{
		script:    script,
		image:     image,
		video:     video,
		narration: narration,
	}
}

func (c *Compiler) Compile(ctx context.Context, in *CycleInput) (*entity.SceneOutcome, error) {
	if c == nil || c.script == nil || c.image == nil || c.video == nil || c.narration == nil {
		return nil, fmt.Errorf("scene compiler not fully configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	opening := strings.TrimSpace(in.Theme) != ""

	scriptStart := time.Now()
	out, err := c.script.Generate(ctx, &wfmodel.SceneScriptInput{
		Theme:             strings.TrimSpace(in.Theme),
		Action:            strings.TrimSpace(in.Action),
		Storyline:         in.Storyline,
		CoreDetails:       in.CoreDetails,
		AnchorImagePrompt: in.AnchorImagePrompt,
		Provider:          in.Provider,
		Model:             in.Model,
	})
	metrics.SceneStageDuration.WithLabelValues("script").Observe(time.Since(scriptStart).Seconds())
	if err != nil {
		return nil, err
	}
	script := out.Script

	// 端口实现不可信：数组形状在这里再校验一次，后续阶段按
	// 固定下标取锚点提示词与末帧
	wantPrompts := continuationImagePrompts
	if opening {
		wantPrompts = openingImagePrompts
	}
	if len(script.ImagePrompts) != wantPrompts {
		return nil, scriptShapeError(fmt.Sprintf("expected %d image prompts, got %d", wantPrompts, len(script.ImagePrompts)))
	}

	fresh := c.generateImages(ctx, script.ImagePrompts)

	// 续篇周期把上一场景的末帧作为本场景首帧，保证视觉连续
	frames := fresh
	if !opening {
		frames = append([]string{in.AnchorImageURL}, fresh...)
	}
	if usableFrames(frames) == 0 {
		return nil, apperrors.New(apperrors.CodeVideoFailure, "video generation failed").
			WithDetail("no usable frames: all image generations failed")
	}

	var (
		videoURL string
		audio    []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		u, verr := c.video.Generate(gctx, script.VideoPrompt, frames)
		metrics.SceneStageDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
		if verr != nil {
			return apperrors.Wrap(verr, apperrors.CodeVideoFailure, "video generation failed")
		}
		videoURL = u
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		b, nerr := c.narration.Synthesize(gctx, script.NarrationText)
		metrics.SceneStageDuration.WithLabelValues("narration").Observe(time.Since(start).Seconds())
		if nerr != nil {
			return apperrors.Wrap(nerr, apperrors.CodeNarrationFailure, "narration synthesis failed")
		}
		audio = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 下一场景的锚点固定取本场景最后一条新提示词及其对应帧；
	// 帧生成失败时锚点 URL 为空，续篇合成视频时会跳过该帧
	anchorPrompt := script.ImagePrompts[len(script.ImagePrompts)-1]
	anchorURL := fresh[len(fresh)-1]

	return &entity.SceneOutcome{
		NarrativeText:     script.NarrativeText,
		Images:            frames,
		VideoURL:          videoURL,
		NarrationAudio:    base64.StdEncoding.EncodeToString(audio),
		NarrationText:     script.NarrationText,
		Actions:           script.Actions,
		CoreDetails:       script.CoreDetails,
		AnchorImagePrompt: anchorPrompt,
		AnchorImageURL:    anchorURL,
	}, nil
}

// generateImages 并行生成全部图像。单张失败只记日志并以空字符串占位，
// 不中断整个周期。
func (c *Compiler) generateImages(ctx context.Context, prompts []string) []string {
	urls := make([]string, len(prompts))
	start := time.Now()

	var g errgroup.Group
	for i, prompt := range prompts {
		g.Go(func() error {
			u, err := c.image.Generate(ctx, prompt)
			if err != nil {
				logger.Warn(ctx, "image generation failed, using empty placeholder",
					"index", i, "error", err.Error())
				return nil
			}
			urls[i] = u
			return nil
		})
	}
	_ = g.Wait()

	metrics.SceneStageDuration.WithLabelValues("images").Observe(time.Since(start).Seconds())
	return urls
}

func usableFrames(frames []string) int {
	n := 0
	for _, f := range frames {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}
