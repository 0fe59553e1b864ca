// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-scene-ai-api/internal/domain/entity"
)

// StartStoryRequest 创建故事请求
type StartStoryRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// AdvanceStoryRequest 推进故事请求
type AdvanceStoryRequest struct {
	Action string `json:"action" binding:"required"`
}

// SceneResultResponse 最近一个完成场景的产出
type SceneResultResponse struct {
	Video          string   `json:"video"`
	NarrationAudio string   `json:"narration_audio"`
	NarrationText  string   `json:"narration_text"`
	Actions        []string `json:"actions"`
}

// StoryResponse 故事快照响应
type StoryResponse struct {
	ID         string               `json:"id"`
	Status     string               `json:"status"`
	Storyline  string               `json:"storyline,omitempty"`
	LastResult *SceneResultResponse `json:"last_result,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// StoryAcceptedResponse 异步受理响应
type StoryAcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NewStoryResponse 由领域实体构建故事响应
func NewStoryResponse(st *entity.Story) *StoryResponse {
	resp := &StoryResponse{
		ID:        st.ID,
		Status:    string(st.Status),
		Storyline: st.Storyline,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	// 只有完成态才返回场景产出，进行中/失败时不暴露过期结果
	if st.Status == entity.StoryStatusCompleted && st.LastResult != nil {
		resp.LastResult = &SceneResultResponse{
			Video:          st.LastResult.Video,
			NarrationAudio: st.LastResult.NarrationAudio,
			NarrationText:  st.LastResult.NarrationText,
			Actions:        st.LastResult.Actions,
		}
	}
	return resp
}

// NewStoryAcceptedResponse 由领域实体构建受理响应
func NewStoryAcceptedResponse(st *entity.Story) *StoryAcceptedResponse {
	return &StoryAcceptedResponse{
		ID:     st.ID,
		Status: string(st.Status),
	}
}
