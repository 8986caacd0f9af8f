package api

import (
	"net/http"
	"time"

	"menuboard/config"
	"menuboard/middleware"

	"github.com/gin-gonic/gin"
)

// getCookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），并设置 SameSite 以防止 CSRF
func getCookieOptions() (secure bool, sameSite http.SameSite) {
	if config.GlobalConfig.IsRelease() {
		secure = true
	}
	// SameSite=Lax: 防止跨站 POST 请求携带 Cookie，同时允许同站导航
	sameSite = http.SameSiteLaxMode
	return
}

// setSessionCookie 写入管理员会话 Cookie；ttl<=0 时清除
func setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	secure, sameSite := getCookieOptions()
	maxAge := int(ttl / time.Second)
	if ttl <= 0 {
		maxAge = -1
	}
	c.SetCookieData(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}
