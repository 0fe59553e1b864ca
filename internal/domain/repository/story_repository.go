// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-scene-ai-api/internal/domain/entity"
)

// StoryRepository 故事状态仓储接口
//
// 每个故事同一时刻至多一个生成周期在执行。BeginCycle 是进入
// processing 的唯一入口，并以 ErrStoryBusy 拒绝并发周期；
// ApplyOutcome / MarkError 是周期结束时仅有的两个出口，二者都
// 必须整体生效，并发读取方不能观察到半更新的记录。
type StoryRepository interface {
	// Create 保存新故事
	Create(ctx context.Context, story *entity.Story) error

	// GetByID 根据 ID 获取故事快照，不存在时返回 ErrStoryNotFound
	GetByID(ctx context.Context, id string) (*entity.Story, error)

	// BeginCycle 原子地将故事转入 processing 并占用周期执行权；
	// 已有周期在执行时返回 ErrStoryBusy
	BeginCycle(ctx context.Context, id string) error

	// ApplyOutcome 原子地应用成功周期的产出并转入 completed
	ApplyOutcome(ctx context.Context, id string, outcome *entity.SceneOutcome) error

	// MarkError 将故事转入 error
	MarkError(ctx context.Context, id string) error
}
