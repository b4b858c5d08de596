package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/unifeed/internal/action"
	"github.com/d60-Lab/unifeed/internal/cache"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/service"
	"github.com/d60-Lab/unifeed/pkg/response"
)

type Handler struct {
	coordinator *action.Coordinator
	timelines   *service.TimelineService
	accounts    *service.AccountService
	relCache    *cache.RelationshipCache
}

func New(coordinator *action.Coordinator, timelines *service.TimelineService, accounts *service.AccountService, relCache *cache.RelationshipCache) *Handler {
	return &Handler{coordinator: coordinator, timelines: timelines, accounts: accounts, relCache: relCache}
}

type actionRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	TargetID  string `json:"target_id" binding:"required"`
}

// PerformAction 对目标执行社交 action（toggle 语义）
// @Summary 执行社交 action
// @Tags actions
// @Accept json
// @Produce json
// @Param kind path string true "follow|block|mute|like|repost"
// @Param request body actionRequest true "action 参数"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/actions/{kind} [post]
func (h *Handler) PerformAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var err error
	switch c.Param("kind") {
	case "follow":
		err = h.coordinator.ToggleFollow(ctx, req.AccountID, req.TargetID)
	case "block":
		err = h.coordinator.ToggleBlock(ctx, req.AccountID, req.TargetID)
	case "mute":
		err = h.coordinator.ToggleMute(ctx, req.AccountID, req.TargetID)
	case "like":
		err = h.coordinator.ToggleLike(ctx, req.AccountID, req.TargetID)
	case "repost":
		err = h.coordinator.ToggleRepost(ctx, req.AccountID, req.TargetID)
	default:
		response.BadRequest(c, "unknown action kind")
		return
	}
	if err != nil {
		h.renderActionError(c, err)
		return
	}
	response.Success(c, nil)
}

// renderActionError 按错误分类选择响应：限流单独暴露给调用方
func (h *Handler) renderActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, action.ErrActorMissing),
		errors.Is(err, action.ErrTargetMissing),
		errors.Is(err, action.ErrSelfAction):
		response.BadRequest(c, err.Error())
	case remote.KindOf(err) == remote.ErrRateLimited:
		response.TooManyRequests(c, err.Error())
	case remote.KindOf(err) == remote.ErrAuthInvalid:
		response.Unauthorized(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// GetRelationship 读取关系快照（redis 缓存优先）
// @Summary 查询与目标用户的关系
// @Tags relations
// @Param user_id path string true "本地用户ID"
// @Param account_id query string true "viewer 账号ID"
// @Success 200 {object} response.Response{data=cache.RelationshipSnapshot}
// @Router /api/v1/users/{user_id}/relationship [get]
func (h *Handler) GetRelationship(c *gin.Context) {
	userID := c.Param("user_id")
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "account_id is required")
		return
	}
	ctx := c.Request.Context()

	if h.relCache != nil {
		if snap, err := h.relCache.Get(ctx, accountID, userID); err == nil && snap != nil {
			response.Success(c, snap)
			return
		}
	}

	user, err := h.timelines.RefreshRelationship(ctx, accountID, userID)
	if err != nil {
		h.renderActionError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id":                   user.ID,
		"handle":                    user.Handle,
		"is_following":              user.IsFollowing,
		"is_followed_by":            user.IsFollowedBy,
		"is_follow_request_pending": user.IsFollowRequestPending,
		"is_blocking":               user.IsBlocking,
		"is_blocked_by":             user.IsBlockedBy,
		"is_muting":                 user.IsMuting,
	})
}

// LookupUser 远端查询用户并合并本地
// @Summary 查询用户
// @Tags users
// @Param account_id query string true "viewer 账号ID"
// @Param remote_id query string true "目标远端ID"
// @Success 200 {object} response.Response
// @Router /api/v1/users/lookup [get]
func (h *Handler) LookupUser(c *gin.Context) {
	accountID := c.Query("account_id")
	remoteID := c.Query("remote_id")
	if accountID == "" || remoteID == "" {
		response.BadRequest(c, "account_id and remote_id are required")
		return
	}
	user, err := h.timelines.LookupUser(c.Request.Context(), accountID, remoteID)
	if err != nil {
		h.renderActionError(c, err)
		return
	}
	response.Success(c, user)
}
