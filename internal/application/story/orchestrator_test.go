package story

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"z-scene-ai-api/internal/application/scene"
	"z-scene-ai-api/internal/config"
	"z-scene-ai-api/internal/domain/entity"
	"z-scene-ai-api/internal/domain/repository"
	"z-scene-ai-api/internal/infrastructure/persistence/memory"
	apperrors "z-scene-ai-api/pkg/errors"
)

// fakeCompiler 可阻塞的场景编译器桩
type fakeCompiler struct {
	mu    sync.Mutex
	block chan struct{}
	err   error
	calls []*scene.CycleInput
}

func (f *fakeCompiler) Compile(ctx context.Context, in *scene.CycleInput) (*entity.SceneOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	block := f.block
	err := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &entity.SceneOutcome{
		NarrativeText:     "fragment",
		Images:            []string{"u1", "u2", "u3"},
		VideoURL:          "https://video.example/v.mp4",
		NarrationAudio:    "YXVkaW8=",
		NarrationText:     "narration",
		Actions:           []string{"left", "right"},
		CoreDetails:       "hero",
		AnchorImagePrompt: "anchor prompt",
		AnchorImageURL:    "https://img.example/anchor",
	}, nil
}

func newTestOrchestrator(c SceneCompiler) (*Orchestrator, repository.StoryRepository) {
	repo := memory.NewStoryStore()
	cfg := &config.Config{}
	cfg.Scene.CycleTimeout = 5 * time.Second
	return NewOrchestrator(repo, c, cfg), repo
}

func waitForStatus(t *testing.T, repo repository.StoryRepository, id string, want entity.StoryStatus) *entity.Story {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		st, err := repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if st.Status == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("story %s never reached status %s", id, want)
	return nil
}

func TestStartStoryRejectsEmptyTheme(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeCompiler{})

	_, err := o.StartStory(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeInvalidParam {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeInvalidParam)
	}
}

func TestStartStoryRunsOpeningCycle(t *testing.T) {
	fc := &fakeCompiler{}
	o, repo := newTestOrchestrator(fc)

	st, err := o.StartStory(context.Background(), "space opera")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}
	if st.Status != entity.StoryStatusProcessing {
		t.Errorf("initial status = %s, want processing", st.Status)
	}

	done := waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)
	if done.Storyline != "fragment" {
		t.Errorf("storyline = %q, want %q", done.Storyline, "fragment")
	}
	if done.LastResult == nil || done.LastResult.Video == "" {
		t.Error("last result missing after completed cycle")
	}
	if done.AnchorImagePrompt != "anchor prompt" {
		t.Errorf("anchor prompt = %q", done.AnchorImagePrompt)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.calls) != 1 || fc.calls[0].Theme != "space opera" {
		t.Fatalf("opening cycle input wrong: %+v", fc.calls)
	}
}

func TestAdvanceUnknownStory(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeCompiler{})

	_, err := o.AdvanceStory(context.Background(), "no-such-id", "go left")
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeStoryNotFound {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeStoryNotFound)
	}
}

func TestAdvanceRejectsWhileCycleInFlight(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeCompiler{block: block}
	o, repo := newTestOrchestrator(fc)

	st, err := o.StartStory(context.Background(), "theme")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}

	// 开场周期被卡住，推进必须被拒绝而不是排队
	_, err = o.AdvanceStory(context.Background(), st.ID, "go left")
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeStoryBusy {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeStoryBusy)
	}

	close(block)
	waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)

	// 周期结束后推进恢复可用
	if _, err := o.AdvanceStory(context.Background(), st.ID, "go left"); err != nil {
		t.Fatalf("AdvanceStory after cycle: %v", err)
	}
	waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)
}

func TestStorylineAccumulatesAcrossCycles(t *testing.T) {
	fc := &fakeCompiler{}
	o, repo := newTestOrchestrator(fc)

	st, err := o.StartStory(context.Background(), "theme")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}
	waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)

	if _, err := o.AdvanceStory(context.Background(), st.ID, "go left"); err != nil {
		t.Fatalf("AdvanceStory: %v", err)
	}
	done := waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)

	want := "fragment" + entity.StorylineSeparator + "fragment"
	if done.Storyline != want {
		t.Errorf("storyline = %q, want %q", done.Storyline, want)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.calls) != 2 {
		t.Fatalf("cycles = %d, want 2", len(fc.calls))
	}
	cont := fc.calls[1]
	if cont.Action != "go left" {
		t.Errorf("continuation action = %q", cont.Action)
	}
	if cont.Storyline != "fragment" {
		t.Errorf("continuation storyline = %q, want prior fragment", cont.Storyline)
	}
	if cont.AnchorImagePrompt != "anchor prompt" || cont.AnchorImageURL != "https://img.example/anchor" {
		t.Errorf("continuation anchor not carried over: %+v", cont)
	}
}

func TestFailedCycleMarksStoryError(t *testing.T) {
	fc := &fakeCompiler{err: errors.New("pipeline blew up")}
	o, repo := newTestOrchestrator(fc)

	st, err := o.StartStory(context.Background(), "theme")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}
	waitForStatus(t, repo, st.ID, entity.StoryStatusError)

	// 失败后的故事可以重新推进
	fc.mu.Lock()
	fc.err = nil
	fc.mu.Unlock()
	if _, err := o.AdvanceStory(context.Background(), st.ID, "retry"); err != nil {
		t.Fatalf("AdvanceStory after failure: %v", err)
	}
	waitForStatus(t, repo, st.ID, entity.StoryStatusCompleted)
}

// panicCompiler 编译过程中触发运行时错误的桩
type panicCompiler struct{}

func (panicCompiler) Compile(context.Context, *scene.CycleInput) (*entity.SceneOutcome, error) {
	var frames []string
	return &entity.SceneOutcome{AnchorImageURL: frames[len(frames)-1]}, nil
}

func TestCompilerPanicMarksStoryError(t *testing.T) {
	o, repo := newTestOrchestrator(panicCompiler{})

	st, err := o.StartStory(context.Background(), "theme")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}

	// panic 被周期吸收：进程存活，故事转入 error 且可再次推进
	waitForStatus(t, repo, st.ID, entity.StoryStatusError)
	if _, err := o.AdvanceStory(context.Background(), st.ID, "retry"); err != nil {
		t.Fatalf("AdvanceStory after panic: %v", err)
	}
	waitForStatus(t, repo, st.ID, entity.StoryStatusError)
}
