package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/pkg/response"
)

type linkAccountRequest struct {
	Platform    string `json:"platform" binding:"required,platform"`
	Domain      string `json:"domain"`
	RemoteID    string `json:"remote_id" binding:"required"`
	Handle      string `json:"handle" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

// LinkAccount 绑定账号（token 已由 OAuth 流程取得）
// @Summary 绑定账号
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body linkAccountRequest true "账号信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/accounts [post]
func (h *Handler) LinkAccount(c *gin.Context) {
	var req linkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	account, err := h.accounts.Link(c.Request.Context(),
		model.Platform(req.Platform), req.Domain, req.RemoteID, req.Handle, req.AccessToken)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	// token 不回显
	account.SealedToken = ""
	response.Success(c, account)
}

// ListAccounts 列出已绑定账号
// @Summary 账号列表
// @Tags accounts
// @Success 200 {object} response.Response
// @Router /api/v1/accounts [get]
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	for _, a := range accounts {
		a.SealedToken = ""
	}
	response.Success(c, gin.H{"list": accounts})
}

// UnlinkAccount 解绑账号
// @Summary 解绑账号
// @Tags accounts
// @Param account_id path string true "账号ID"
// @Success 200 {object} response.Response
// @Router /api/v1/accounts/{account_id} [delete]
func (h *Handler) UnlinkAccount(c *gin.Context) {
	if err := h.accounts.Unlink(c.Request.Context(), c.Param("account_id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
