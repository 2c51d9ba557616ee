package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/service"
	"rental_listing_v1/internal/smartform"
)

// statusOf 业务错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, smartform.ErrSuggestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, smartform.ErrClosed):
		return http.StatusGone
	case errors.Is(err, service.ErrUnknownStep),
		errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDraftNotEditable):
		return http.StatusConflict
	case errors.Is(err, service.ErrDraftIncomplete),
		errors.Is(err, service.ErrDraftInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, client.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail 统一错误响应
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	c.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
	})
}

// badRequest 参数错误
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    400,
		"message": msg,
	})
}

// success 成功响应
func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}
