package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/unifeed/pkg/response"
)

// RefreshHome 拉取最新 home timeline 页
// @Summary 刷新 home timeline
// @Tags timelines
// @Param account_id query string true "账号ID"
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/home/refresh [post]
func (h *Handler) RefreshHome(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "account_id is required")
		return
	}
	n, err := h.timelines.RefreshHomeFor(c.Request.Context(), accountID)
	if err != nil {
		h.renderActionError(c, err)
		return
	}
	response.Success(c, gin.H{"merged": n})
}

// LoadOlder 向下翻页
// @Summary 拉取更旧的 home timeline 内容
// @Tags timelines
// @Param account_id query string true "账号ID"
// @Param max_id query string true "翻页游标（older than）"
// @Param limit query int false "条数" default(40)
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/home/older [get]
func (h *Handler) LoadOlder(c *gin.Context) {
	accountID := c.Query("account_id")
	maxID := c.Query("max_id")
	if accountID == "" || maxID == "" {
		response.BadRequest(c, "account_id and max_id are required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "40"))
	statuses, err := h.timelines.LoadOlder(c.Request.Context(), accountID, maxID, limit)
	if err != nil {
		h.renderActionError(c, err)
		return
	}
	response.Success(c, gin.H{"list": statuses})
}

// LocalTimeline 本地已合并时间线（离线可用）
// @Summary 读取本地时间线
// @Tags timelines
// @Param account_id query string true "账号ID"
// @Param limit query int false "条数" default(50)
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/home [get]
func (h *Handler) LocalTimeline(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "account_id is required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	statuses, err := h.timelines.Local(c.Request.Context(), accountID, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": statuses})
}
