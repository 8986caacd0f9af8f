package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"menuboard/apperr"
	"menuboard/config"
	"menuboard/logger"
	"menuboard/middleware"
	"menuboard/models"
	"menuboard/service"

	"github.com/gin-gonic/gin"
)

// Authenticator 管理员账号校验
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.AdminUser, error)
	Session(ctx context.Context, adminID uint) (*models.AdminUser, error)
}

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	log  *logger.Logger
	auth Authenticator
	ttl  time.Duration
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(log *logger.Logger, auth Authenticator, ttl time.Duration) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "auth"), auth: auth, ttl: ttl}
}

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// SessionInfo 当前会话信息
type SessionInfo struct {
	Token   string `json:"token,omitempty"`
	AdminID uint   `json:"admin_id"`
	Email   string `json:"email"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 校验邮箱与密码，成功后写入会话 Cookie，并在响应中返回 token
// @Tags 后台管理
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Result{data=SessionInfo} "登录成功"
// @Failure 400 {object} Result "请求参数错误"
// @Failure 401 {object} Result "邮箱或密码错误"
// @Failure 429 {object} Result "尝试过于频繁"
// @Router /admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误")
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Warn("管理员登录失败", "email", req.Email, "ip", c.ClientIP())
			fail(c, http.StatusUnauthorized, "邮箱或密码错误")
			return
		}
		h.log.Error("管理员登录异常", "error", err)
		fail(c, http.StatusInternalServerError, config.SafeErrorMessage(err, "登录失败，请稍后再试"))
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.ttl)
	if err != nil {
		h.log.Error("生成 token 失败", "error", err)
		fail(c, http.StatusInternalServerError, "生成 token 失败")
		return
	}
	setSessionCookie(c, token, h.ttl)
	h.log.Info("管理员登录", "admin_id", user.ID)

	ok(c, "登录成功", SessionInfo{Token: token, AdminID: user.ID, Email: user.Email})
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 后台管理
// @Produce json
// @Success 200 {object} Result "已退出"
// @Router /admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	setSessionCookie(c, "", 0)
	ok(c, "已退出登录", nil)
}

// Session 当前登录的管理员
// @Summary 当前会话
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Result{data=SessionInfo} "已登录"
// @Failure 401 {object} ErrorResponse "未登录"
// @Router /admin/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	user, err := h.auth.Session(c.Request.Context(), middleware.GetCurrentAdminID(c))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// 账号已被删除，会话作废
			setSessionCookie(c, "", 0)
			fail(c, http.StatusUnauthorized, "账号不存在")
			return
		}
		h.log.Error("读取会话失败", "error", err)
		fail(c, http.StatusInternalServerError, config.SafeErrorMessage(err, "读取会话失败"))
		return
	}
	ok(c, "", SessionInfo{AdminID: user.ID, Email: user.Email})
}
