package middleware

import (
	"context"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHeader 上游网关注入的用户 ID
const UserHeader = "X-User-ID"

// ==================== 请求身份上下文 ====================

type identityContextKey struct{}

// Identity 请求身份
type Identity struct {
	UserID    int64
	SessionID string
}

// WithIdentity 注入身份到 context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &id)
}

// GetIdentity 从 context 获取身份
func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// GetUserID 从 context 获取用户 ID，未知时为 0
func GetUserID(ctx context.Context) int64 {
	if id := GetIdentity(ctx); id != nil {
		return id.UserID
	}
	return 0
}

// ==================== Gin 中间件 ====================

// IdentityContext 将请求头中的用户与会话信息注入 request context
// 供 service 层与 GORM 回调使用
func IdentityContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{SessionID: c.GetHeader(SessionHeader)}
		if v, err := strconv.ParseInt(c.GetHeader(UserHeader), 10, 64); err == nil && v > 0 {
			id.UserID = v
		}

		if id.UserID > 0 || id.SessionID != "" {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		}

		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 注册 GORM 回调
// Create 时自动填充 UserID（仅当字段为零值）
func RegisterAuditCallbacks(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register("audit:user", func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}

		userID := GetUserID(tx.Statement.Context)
		if userID == 0 {
			return
		}
		setAuditField(tx, "UserID", userID)
	})
}

// setAuditField 设置审计字段
func setAuditField(tx *gorm.DB, fieldName string, value int64) {
	if tx.Statement.Schema == nil {
		return
	}

	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(tx.Statement.Context, tx.Statement.ReflectValue); isZero {
			_ = field.Set(tx.Statement.Context, tx.Statement.ReflectValue, value)
		}
	case reflect.Slice:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			rv := tx.Statement.ReflectValue.Index(i)
			if _, isZero := field.ValueOf(tx.Statement.Context, rv); isZero {
				_ = field.Set(tx.Statement.Context, rv, value)
			}
		}
	}
}
