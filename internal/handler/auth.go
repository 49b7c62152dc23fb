package handler

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"BitePoints/internal/cache"
	"BitePoints/internal/model/dto"
	"BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/response"
	"BitePoints/pkg/token"
)

// 设备 ID 允许 UUID 或 32~64 位十六进制
var deviceIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{32,64}$`)

// RegisterDevice 设备注册，无账号体系，设备即用户
// POST /v1/auth/device/register
func RegisterDevice(ctx context.Context, c *app.RequestContext) {
	var req dto.DeviceRegisterRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	} else if !deviceIDPattern.MatchString(deviceID) {
		response.Error(ctx, c, errors.InvalidDeviceID)
		return
	}

	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(deviceID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := cache.SetRefreshToken(ctx, deviceID, refreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token",
			zap.String("user_id", deviceID),
			zap.Error(err),
		)
	}

	logger.Logger.Info("Device registered",
		zap.String("user_id", deviceID),
		zap.String("platform", req.Platform),
	)

	response.Success(ctx, c, dto.DeviceRegisterResponse{
		UserID:       deviceID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	userID, err := token.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, errors.RefreshTokenInvalid)
		return
	}

	// 与 Redis 中存量 token 比对，防止已轮换的 token 复用
	if !cache.ValidateRefreshTokenExists(ctx, userID, req.RefreshToken) {
		response.Error(ctx, c, errors.RefreshTokenInvalid)
		return
	}

	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := cache.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		logger.Logger.Warn("Failed to rotate refresh token",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	response.Success(ctx, c, dto.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// Logout 登出，吊销 refresh token
// POST /v1/auth/logout
func Logout(ctx context.Context, c *app.RequestContext) {
	userID, ok := userIDFromContext(ctx, c)
	if !ok {
		return
	}

	if err := cache.DeleteRefreshToken(ctx, userID); err != nil {
		response.Error(ctx, c, fmt.Errorf("failed to revoke refresh token: %w", err))
		return
	}

	response.NoContent(ctx, c)
}
