package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

type ctxKey int

const userCtxKey ctxKey = 1

func WithUserID(ctx context.Context, userID uint64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userCtxKey, userID)
}

func UserIDFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(userCtxKey).(uint64)
	return id, ok && id != 0
}

func UserIDFromGin(c *gin.Context) (uint64, bool) {
	if c == nil || c.Request == nil {
		return 0, false
	}
	return UserIDFromContext(c.Request.Context())
}
