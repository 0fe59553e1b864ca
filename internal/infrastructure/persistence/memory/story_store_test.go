package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"z-scene-ai-api/internal/domain/entity"
	apperrors "z-scene-ai-api/pkg/errors"
)

func TestStoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStoryStore()

	st := entity.NewStory()
	if err := s.Create(ctx, st); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != entity.StoryStatusProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}

	// 开场周期在执行中，BeginCycle 必须拒绝
	if err := s.BeginCycle(ctx, st.ID); !errors.Is(err, apperrors.ErrStoryBusy) {
		t.Errorf("BeginCycle while processing = %v, want ErrStoryBusy", err)
	}

	outcome := &entity.SceneOutcome{
		NarrativeText:     "first fragment",
		VideoURL:          "v.mp4",
		NarrationAudio:    "YQ==",
		NarrationText:     "n",
		Actions:           []string{"a", "b"},
		CoreDetails:       "hero",
		AnchorImagePrompt: "ap",
		AnchorImageURL:    "au",
	}
	if err := s.ApplyOutcome(ctx, st.ID, outcome); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	got, _ = s.GetByID(ctx, st.ID)
	if got.Status != entity.StoryStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Storyline != "first fragment" {
		t.Errorf("storyline = %q", got.Storyline)
	}

	// 周期结束后重新占用
	if err := s.BeginCycle(ctx, st.ID); err != nil {
		t.Fatalf("BeginCycle after completion: %v", err)
	}
	if err := s.MarkError(ctx, st.ID); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	got, _ = s.GetByID(ctx, st.ID)
	if got.Status != entity.StoryStatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
}

func TestStoryStoreUnknownID(t *testing.T) {
	ctx := context.Background()
	s := NewStoryStore()

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, apperrors.ErrStoryNotFound) {
		t.Errorf("GetByID = %v, want ErrStoryNotFound", err)
	}
	if err := s.BeginCycle(ctx, "missing"); !errors.Is(err, apperrors.ErrStoryNotFound) {
		t.Errorf("BeginCycle = %v, want ErrStoryNotFound", err)
	}
	if err := s.MarkError(ctx, "missing"); !errors.Is(err, apperrors.ErrStoryNotFound) {
		t.Errorf("MarkError = %v, want ErrStoryNotFound", err)
	}
}

func TestStoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewStoryStore()

	st := entity.NewStory()
	if err := s.Create(ctx, st); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap, _ := s.GetByID(ctx, st.ID)
	snap.Storyline = "mutated by caller"

	again, _ := s.GetByID(ctx, st.ID)
	if again.Storyline == "mutated by caller" {
		t.Error("store leaked internal state through GetByID")
	}
}

func TestStoryStoreSingleCycleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStoryStore()

	st := entity.NewStory()
	if err := s.Create(ctx, st); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.ApplyOutcome(ctx, st.ID, &entity.SceneOutcome{NarrativeText: "x"}); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.BeginCycle(ctx, st.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("BeginCycle winners = %d, want exactly 1", won)
	}
}
