// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoryStatus 故事状态
type StoryStatus string

const (
	StoryStatusProcessing StoryStatus = "processing"
	StoryStatusCompleted  StoryStatus = "completed"
	StoryStatusError      StoryStatus = "error"
)

// StorylineSeparator 相邻场景叙事文本之间的分隔符
const StorylineSeparator = "\n"

// Story 一次分支互动叙事会话
//
// Storyline 只追加不改写；CoreDetails 是跨场景保持画面一致性的
// 核心角色/风格模板；Anchor 是上一场景的最后一张图，下一场景的
// 图像序列以它开头以延续视觉线索。
type Story struct {
	ID          string      `json:"id"`
	Status      StoryStatus `json:"status"`
	Storyline   string      `json:"storyline"`
	CoreDetails string      `json:"core_details"`

	AnchorImagePrompt string `json:"anchor_image_prompt"`
	AnchorImageURL    string `json:"anchor_image_url"`

	LastResult *SceneResult `json:"last_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStory 创建新故事，初始状态为 processing
func NewStory() *Story {
	now := time.Now()
	return &Story{
		ID:        uuid.NewString(),
		Status:    StoryStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BeginCycle 进入新的生成周期
func (s *Story) BeginCycle() {
	s.Status = StoryStatusProcessing
	s.UpdatedAt = time.Now()
}

// InFlight 是否有生成周期在执行中
func (s *Story) InFlight() bool {
	return s.Status == StoryStatusProcessing
}

// Complete 应用一个成功周期的产出
//
// storyline 追加、core details 精炼、锚点图替换和 lastResult
// 替换作为一个整体生效，调用方负责互斥。
func (s *Story) Complete(o *SceneOutcome) {
	if s.Storyline == "" {
		s.Storyline = o.NarrativeText
	} else {
		s.Storyline = s.Storyline + StorylineSeparator + o.NarrativeText
	}
	// 模型未返回新模板时沿用旧模板
	if strings.TrimSpace(o.CoreDetails) != "" {
		s.CoreDetails = o.CoreDetails
	}
	s.AnchorImagePrompt = o.AnchorImagePrompt
	s.AnchorImageURL = o.AnchorImageURL
	s.LastResult = &SceneResult{
		Video:          o.VideoURL,
		NarrationAudio: o.NarrationAudio,
		NarrationText:  o.NarrationText,
		Actions:        o.Actions,
	}
	s.Status = StoryStatusCompleted
	s.UpdatedAt = time.Now()
}

// Fail 周期失败
func (s *Story) Fail() {
	s.Status = StoryStatusError
	s.UpdatedAt = time.Now()
}
