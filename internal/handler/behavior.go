package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"BitePoints/internal/model"
	"BitePoints/internal/model/dto"
	"BitePoints/internal/service"
	"BitePoints/pkg/response"
)

// GetBehavior 用户行为画像
// GET /v1/behavior
func GetBehavior(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	behavior, err := service.Survey().Behavior(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, behaviorToDTO(behavior))
}

// UpdateBehavior 上报偏好类目与会话时长
// PATCH /v1/behavior
func UpdateBehavior(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	var req dto.UpdateBehaviorRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	behavior, err := service.Survey().UpdateBehavior(ctx, userID, req.PreferredCategories, req.SessionTime)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, behaviorToDTO(behavior))
}

func behaviorToDTO(behavior *model.UserBehavior) dto.BehaviorData {
	tags := make([]string, 0, 2)
	for _, tag := range []string{
		model.BehaviorTagNewUser,
		model.BehaviorTagActiveUser,
		model.BehaviorTagHighEarner,
	} {
		if behavior.MatchesTag(tag) {
			tags = append(tags, tag)
		}
	}

	return dto.BehaviorData{
		UserID:              behavior.UserID,
		CompletedSurveys:    behavior.CompletedSurveys,
		PreferredCategories: behavior.PreferredCategories,
		AverageSessionTime:  behavior.AverageSessionTime,
		LastActivity:        behavior.LastActivity,
		TotalPoints:         behavior.TotalPoints,
		Tags:                tags,
	}
}
