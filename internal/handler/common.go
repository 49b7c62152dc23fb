package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"BitePoints/internal/middleware"
	"BitePoints/pkg/response"
)

// userIDFromContext 从认证上下文取用户 ID，缺失时直接写错误响应
func userIDFromContext(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return "", false
	}
	return userID, true
}
