package api

import (
	"net/http"

	"menuboard/apperr"
	"menuboard/config"

	"github.com/gin-gonic/gin"
)

// ErrorResponse /api/menus 的错误体
type ErrorResponse struct {
	Error string `json:"error" example:"slug \"drinks\" 已存在"`
}

// Result 后台接口的通用响应结构
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// StatusFor 按错误类别映射 HTTP 状态码
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidName, apperr.KindInvalidFile:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateSlug, apperr.KindVersionConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 写出 {"error": ...}；5xx 在 release 模式下隐藏内部细节
func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		fallback := "服务器内部错误"
		if apperr.KindOf(err) == apperr.KindPartialFailure {
			fallback = "存储与数据库不一致，请执行对账"
		}
		msg = config.SafeErrorMessage(err, fallback)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// badRequest 请求格式错误
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// ok 后台接口成功响应
func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Result{Success: true, Message: message, Data: data})
}

// fail 后台接口失败响应
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Result{Success: false, Message: message})
}
