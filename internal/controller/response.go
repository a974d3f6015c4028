package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"card_market_v1/internal/middleware"
	"card_market_v1/internal/service"
)

// CallerResolver 把 JWT 中的用户 ID 解析为调用方身份
type CallerResolver interface {
	ResolveCaller(ctx context.Context, userID int64) (*service.Caller, error)
}

// ==================== 统一响应 ====================

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": msg,
	})
}

// respondError 按业务错误类别映射状态码；服务器错误不向外暴露细节
func respondError(c *gin.Context, err error) {
	status := statusOf(service.KindOf(err))
	msg := "服务器内部错误，请稍后重试"
	var be *service.BizError
	if errors.As(err, &be) {
		msg = be.Message
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": msg,
	})
}

func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindConflict, service.KindInsufficientStock, service.KindInvalidTransition:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ==================== 请求辅助 ====================

// currentCaller 解析当前登录用户，失败时已写回响应
func currentCaller(c *gin.Context, resolver CallerResolver) (*service.Caller, bool) {
	caller, err := resolver.ResolveCaller(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return caller, true
}

// optionalCaller 匿名访问时返回 nil
func optionalCaller(c *gin.Context, resolver CallerResolver) *service.Caller {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return nil
	}
	caller, err := resolver.ResolveCaller(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return caller
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return id, true
}
