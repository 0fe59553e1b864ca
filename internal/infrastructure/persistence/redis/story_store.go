package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-scene-ai-api/internal/config"
	"z-scene-ai-api/internal/domain/entity"
	"z-scene-ai-api/internal/domain/repository"
	apperrors "z-scene-ai-api/pkg/errors"
)

// StoryStore 基于 Redis 的 StoryRepository 实现，适用于多副本部署。
//
// 每个故事两把键：记录键存放故事 JSON 快照，周期键用 SETNX 充当
// 周期执行权互斥锁。持锁者是唯一的写方，记录键的读写因此无需
// 额外事务；GET 拿到的始终是一个完整快照。
type StoryStore struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
	cycleTTL  time.Duration
}

var _ repository.StoryRepository = (*StoryStore)(nil)

// cycleLockMargin 周期锁 TTL 在周期超时之上的余量，覆盖落盘耗时
const cycleLockMargin = time.Minute

// NewStoryStore 创建 Redis 故事存储。
// cycleTimeout 决定周期锁的过期时间：进程在周期中途崩溃时，
// 锁在略长于一个周期后自行过期，故事恢复可推进，而不是挂到
// 记录 TTL 耗尽。
func NewStoryStore(client *Client, cfg *config.StoryStoreConfig, cycleTimeout time.Duration) *StoryStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "story:"
	}
	if cycleTimeout <= 0 {
		cycleTimeout = 10 * time.Minute
	}
	return &StoryStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       cfg.TTL,
		cycleTTL:  cycleTimeout + cycleLockMargin,
	}
}

func (s *StoryStore) recordKey(id string) string {
	return s.keyPrefix + id
}

func (s *StoryStore) cycleKey(id string) string {
	return s.keyPrefix + id + ":cycle"
}

func (s *StoryStore) Create(ctx context.Context, story *entity.Story) error {
	ctx, span := tracer.Start(ctx, "storystore.Create",
		trace.WithAttributes(attribute.String("story.id", story.ID)))
	defer span.End()

	// 新故事的开场周期随即调度，周期锁在创建时一并占住
	if err := s.client.rdb.Set(ctx, s.cycleKey(story.ID), "1", s.cycleTTL).Err(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to create story record")
	}
	return s.writeRecord(ctx, story)
}

func (s *StoryStore) GetByID(ctx context.Context, id string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "storystore.GetByID",
		trace.WithAttributes(attribute.String("story.id", id)))
	defer span.End()

	raw, err := s.client.rdb.Get(ctx, s.recordKey(id)).Result()
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrStoryNotFound
		}
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load story record")
	}

	var st entity.Story
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "corrupt story record").
			WithDetail(fmt.Sprintf("story %s", id))
	}
	return &st, nil
}

func (s *StoryStore) BeginCycle(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "storystore.BeginCycle",
		trace.WithAttributes(attribute.String("story.id", id)))
	defer span.End()

	st, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	acquired, err := s.client.rdb.SetNX(ctx, s.cycleKey(id), "1", s.cycleTTL).Result()
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire cycle lock")
	}
	if !acquired {
		return apperrors.ErrStoryBusy
	}

	st.BeginCycle()
	if err := s.writeRecord(ctx, st); err != nil {
		s.releaseCycle(ctx, id)
		return err
	}
	return nil
}

func (s *StoryStore) ApplyOutcome(ctx context.Context, id string, outcome *entity.SceneOutcome) error {
	ctx, span := tracer.Start(ctx, "storystore.ApplyOutcome",
		trace.WithAttributes(attribute.String("story.id", id)))
	defer span.End()

	st, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	st.Complete(outcome)
	if err := s.writeRecord(ctx, st); err != nil {
		return err
	}
	s.releaseCycle(ctx, id)
	return nil
}

func (s *StoryStore) MarkError(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "storystore.MarkError",
		trace.WithAttributes(attribute.String("story.id", id)))
	defer span.End()

	st, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	st.Fail()
	if err := s.writeRecord(ctx, st); err != nil {
		return err
	}
	s.releaseCycle(ctx, id)
	return nil
}

func (s *StoryStore) writeRecord(ctx context.Context, st *entity.Story) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to encode story record")
	}
	if err := s.client.rdb.Set(ctx, s.recordKey(st.ID), raw, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to store story record")
	}
	return nil
}

func (s *StoryStore) releaseCycle(ctx context.Context, id string) {
	// 释放失败无需上抛：锁带 TTL，最终会自行过期
	_ = s.client.rdb.Del(ctx, s.cycleKey(id)).Err()
}
