package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

type actorContextKey struct{}

// WithActor 把操作人写入 context，供 GORM 回调读取
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFrom 读取操作人，没有时返回 0
func ActorFrom(ctx context.Context) int64 {
	if id, ok := ctx.Value(actorContextKey{}).(int64); ok {
		return id
	}
	return 0
}

// AuditContext 审计上下文中间件，须放在 JWTAuth 之后
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := GetUserID(c); userID > 0 {
			c.Request = c.Request.WithContext(WithActor(c.Request.Context(), userID))
		}
		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 注册审计回调
// 创建时填充 CreatedBy/UpdatedBy，更新时写 UpdatedBy（包括按 map 更新）
func RegisterAuditCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		actor := actorOf(tx)
		if actor == 0 {
			return
		}
		fillZeroField(tx, "CreatedBy", actor)
		fillZeroField(tx, "UpdatedBy", actor)
	})
	if err != nil {
		return err
	}

	return db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		actor := actorOf(tx)
		if actor == 0 || tx.Statement.Schema == nil {
			return
		}
		if tx.Statement.Schema.LookUpField("UpdatedBy") == nil {
			return
		}
		tx.Statement.SetColumn("UpdatedBy", actor, true)
	})
}

func actorOf(tx *gorm.DB) int64 {
	if tx.Statement.Context == nil {
		return 0
	}
	return ActorFrom(tx.Statement.Context)
}

// fillZeroField 仅在字段为零值时写入，兼容单条与批量插入
func fillZeroField(tx *gorm.DB, fieldName string, value int64) {
	if tx.Statement.Schema == nil {
		return
	}
	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	ctx := tx.Statement.Context
	rv := tx.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(ctx, rv); isZero {
			_ = field.Set(ctx, rv, value)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := reflect.Indirect(rv.Index(i))
			if _, isZero := field.ValueOf(ctx, elem); isZero {
				_ = field.Set(ctx, elem, value)
			}
		}
	}
}
