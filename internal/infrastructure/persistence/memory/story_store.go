// Package memory 提供进程内的故事状态存储，默认后端
package memory

import (
	"context"
	"sync"

	"z-scene-ai-api/internal/domain/entity"
	"z-scene-ai-api/internal/domain/repository"
	apperrors "z-scene-ai-api/pkg/errors"
)

// StoryStore 基于互斥锁加 map 的 StoryRepository 实现。
// 所有方法在锁内操作实体副本，读方拿到的是快照，不会观察到
// 半更新的记录。
type StoryStore struct {
	mu      sync.RWMutex
	stories map[string]*entity.Story
}

var _ repository.StoryRepository = (*StoryStore)(nil)

func NewStoryStore() *StoryStore {
	return &StoryStore{
		stories: make(map[string]*entity.Story),
	}
}

func (s *StoryStore) Create(_ context.Context, story *entity.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stories[story.ID] = cloneStory(story)
	return nil
}

func (s *StoryStore) GetByID(_ context.Context, id string) (*entity.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, apperrors.ErrStoryNotFound
	}
	return cloneStory(st), nil
}

func (s *StoryStore) BeginCycle(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return apperrors.ErrStoryNotFound
	}
	if st.InFlight() {
		return apperrors.ErrStoryBusy
	}
	st.BeginCycle()
	return nil
}

func (s *StoryStore) ApplyOutcome(_ context.Context, id string, outcome *entity.SceneOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return apperrors.ErrStoryNotFound
	}
	st.Complete(outcome)
	return nil
}

func (s *StoryStore) MarkError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stories[id]
	if !ok {
		return apperrors.ErrStoryNotFound
	}
	st.Fail()
	return nil
}

func cloneStory(st *entity.Story) *entity.Story {
	cp := *st
	if st.LastResult != nil {
		lr := *st.LastResult
		lr.Actions = append([]string(nil), st.LastResult.Actions...)
		cp.LastResult = &lr
	}
	return &cp
}
