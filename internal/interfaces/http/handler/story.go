// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-scene-ai-api/internal/application/story"
	"z-scene-ai-api/internal/interfaces/http/dto"
	apperrors "z-scene-ai-api/pkg/errors"
	"z-scene-ai-api/pkg/logger"
)

// StoryHandler 故事接口处理器
type StoryHandler struct {
	orchestrator *story.Orchestrator
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(orchestrator *story.Orchestrator) *StoryHandler {
	return &StoryHandler{orchestrator: orchestrator}
}

// StartStory 创建新故事并异步生成开场场景
// @Summary 创建故事
// @Tags Story
// @Accept json
// @Produce json
// @Param request body dto.StartStoryRequest true "开场主题"
// @Success 202 {object} dto.Response[dto.StoryAcceptedResponse]
// @Router /v1/stories [post]
func (h *StoryHandler) StartStory(c *gin.Context) {
	var req dto.StartStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	st, err := h.orchestrator.StartStory(c.Request.Context(), req.Theme)
	if err != nil {
		h.writeError(c, err)
		return
	}

	dto.Accepted(c, dto.NewStoryAcceptedResponse(st))
}

// AdvanceStory 以用户动作异步推进故事
// @Summary 推进故事
// @Tags Story
// @Accept json
// @Produce json
// @Param sid path string true "故事 ID"
// @Param request body dto.AdvanceStoryRequest true "用户选择的动作"
// @Success 202 {object} dto.Response[dto.StoryAcceptedResponse]
// @Router /v1/stories/{sid}/actions [post]
func (h *StoryHandler) AdvanceStory(c *gin.Context) {
	storyID := c.Param("sid")

	var req dto.AdvanceStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	st, err := h.orchestrator.AdvanceStory(c.Request.Context(), storyID, req.Action)
	if err != nil {
		h.writeError(c, err)
		return
	}

	dto.Accepted(c, dto.NewStoryAcceptedResponse(st))
}

// GetStory 获取故事快照，客户端以此轮询生成结果
// @Summary 获取故事
// @Tags Story
// @Produce json
// @Param sid path string true "故事 ID"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Router /v1/stories/{sid} [get]
func (h *StoryHandler) GetStory(c *gin.Context) {
	st, err := h.orchestrator.GetStory(c.Request.Context(), c.Param("sid"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	dto.Success(c, dto.NewStoryResponse(st))
}

// writeError 统一错误映射
func (h *StoryHandler) writeError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), "story request failed", err,
			"path", c.Request.URL.Path)
	}
	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}
