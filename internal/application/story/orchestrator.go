// Package story 故事编排服务：管理故事生命周期与异步场景生成周期
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"z-scene-ai-api/internal/application/scene"
	"z-scene-ai-api/internal/config"
	"z-scene-ai-api/internal/domain/entity"
	"z-scene-ai-api/internal/domain/repository"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/logger"
	"z-scene-ai-api/pkg/metrics"
)

// SceneCompiler 单个场景周期的执行器
type SceneCompiler interface {
	Compile(ctx context.Context, in *scene.CycleInput) (*entity.SceneOutcome, error)
}

// Orchestrator 故事编排器
//
// 写接口（StartStory / AdvanceStory）只做状态转移并立即返回，
// 生成周期在后台 goroutine 中执行，调用方通过 GetStory 轮询结果。
type Orchestrator struct {
	repo         repository.StoryRepository
	compiler     SceneCompiler
	cycleTimeout time.Duration
}

func NewOrchestrator(repo repository.StoryRepository, compiler SceneCompiler, cfg *config.Config) *Orchestrator {
	timeout := cfg.Scene.CycleTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Orchestrator{
		repo:         repo,
		compiler:     compiler,
		cycleTimeout: timeout,
	}
}

// StartStory 创建新故事并调度开场场景的生成周期
func (o *Orchestrator) StartStory(ctx context.Context, theme string) (*entity.Story, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "invalid parameter").
			WithDetail("theme is required")
	}

	st := entity.NewStory()
	if err := o.repo.Create(ctx, st); err != nil {
		return nil, err
	}

	metrics.ActiveStories.Inc()
	logger.Info(ctx, "story created", "story_id", st.ID)

	go o.runCycle(st.ID, &scene.CycleInput{Theme: theme})
	return st, nil
}

// AdvanceStory 以用户选择的动作调度下一个场景的生成周期。
// 同一故事已有周期在执行时返回 ErrStoryBusy，不排队。
func (o *Orchestrator) AdvanceStory(ctx context.Context, id, action string) (*entity.Story, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "invalid parameter").
			WithDetail("action is required")
	}

	if err := o.repo.BeginCycle(ctx, id); err != nil {
		return nil, err
	}

	// BeginCycle 之后快照稳定：周期执行权已被本次调用独占
	st, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "story advancing", "story_id", id, "action", action)

	go o.runCycle(id, &scene.CycleInput{
		Action:            action,
		Storyline:         st.Storyline,
		CoreDetails:       st.CoreDetails,
		AnchorImagePrompt: st.AnchorImagePrompt,
		AnchorImageURL:    st.AnchorImageURL,
	})
	return st, nil
}

// GetStory 获取故事快照
func (o *Orchestrator) GetStory(ctx context.Context, id string) (*entity.Story, error) {
	return o.repo.GetByID(ctx, id)
}

// runCycle 在后台执行一个完整的场景生成周期并落盘结果。
// 周期不继承请求上下文：HTTP 请求返回后周期继续执行，只受
// cycle_timeout 约束。
func (o *Orchestrator) runCycle(storyID string, in *scene.CycleInput) {
	kind := "continuation"
	if strings.TrimSpace(in.Theme) != "" {
		kind = "opening"
	}

	base := logger.WithContext(context.Background(), logger.StoryIDKey, storyID)
	ctx, cancel := context.WithTimeout(base, o.cycleTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := o.compileCycle(ctx, in)
	elapsed := time.Since(start)

	// 落盘用不受周期超时影响的上下文，避免超时后连失败状态都写不进去
	persistCtx, persistCancel := context.WithTimeout(context.WithoutCancel(base), 10*time.Second)
	defer persistCancel()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = apperrors.Wrap(err, apperrors.CodeCycleTimeout, "scene cycle timed out")
		}
		metrics.SceneCycleTotal.WithLabelValues(kind, "error").Inc()
		logger.Error(persistCtx, "scene cycle failed", err, "story_id", storyID, "kind", kind,
			"elapsed_ms", elapsed.Milliseconds())
		if markErr := o.repo.MarkError(persistCtx, storyID); markErr != nil {
			logger.Error(persistCtx, "failed to mark story error", markErr, "story_id", storyID)
		}
		return
	}

	if applyErr := o.repo.ApplyOutcome(persistCtx, storyID, outcome); applyErr != nil {
		metrics.SceneCycleTotal.WithLabelValues(kind, "error").Inc()
		logger.Error(persistCtx, "failed to apply scene outcome", applyErr, "story_id", storyID)
		return
	}

	metrics.SceneCycleTotal.WithLabelValues(kind, "success").Inc()
	metrics.SceneCycleDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	logger.Info(persistCtx, "scene cycle completed", "story_id", storyID, "kind", kind,
		"elapsed_ms", elapsed.Milliseconds())
}

// compileCycle 执行编排并吸收 panic：周期跑在独立 goroutine 中，
// 任何 panic 都会杀掉整个进程，这里转成错误走正常失败路径
func (o *Orchestrator) compileCycle(ctx context.Context, in *scene.CycleInput) (outcome *entity.SceneOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = apperrors.New(apperrors.CodeInternalError, "internal server error").
				WithDetail(fmt.Sprintf("scene cycle panic: %v", r))
		}
	}()
	return o.compiler.Compile(ctx, in)
}
