package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionHeader 智能表单会话 ID 请求头
const SessionHeader = "X-Session-ID"

// ==================== AI 冷却中间件 ====================

// Cooldown AI 生成类接口冷却中间件
// 按会话 + 功能维度限流，无会话时按客户端 IP
//
// 使用示例:
//
//	ai.POST("/description",
//	    middleware.Cooldown(limiter, middleware.FeatureDescription, 0),
//	    ctl.GenerateDescription,
//	)
//
// 参数:
//   - feature: 功能类型
//   - interval: 冷却间隔，0 表示使用默认值
func Cooldown(limiter *CooldownLimiter, feature Feature, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(feature)
	}

	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}

		var key string
		if sessionID != "" {
			key = SessionKey(sessionID, feature)
		} else {
			key = ClientKey(c.ClientIP(), feature)
		}

		result := limiter.Check(key, interval)
		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", retrySeconds(result.RetryAfter)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retrySeconds(result.RetryAfter),
					"feature":     feature,
				},
			})
			c.Abort()
			return
		}

		c.Next()

		// 服务端失败不消耗冷却
		if c.Writer.Status() >= http.StatusInternalServerError {
			limiter.Reset(key)
		}
	}
}

// ==================== 辅助函数 ====================

func retrySeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	return fmt.Sprintf("请求过于频繁，请 %d 秒后重试", retrySeconds(d))
}
