package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"BitePoints/internal/handler"
	"BitePoints/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())
	//h.Use(middleware.CSRFMiddleware()) csrf 中间件，移动端 web 视发布渠道决定是否开启

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware()) // 认证接口限流
	{
		auth.POST("/device/register", handler.RegisterDevice)
		auth.POST("/token/refresh", handler.RefreshToken)
		auth.POST("/logout", middleware.AuthMiddleware(), handler.Logout)
	}

	// 问卷路由
	surveys := v1.Group("/surveys")
	surveys.Use(middleware.AuthMiddleware())
	surveys.Use(middleware.GeneralRateLimitMiddleware())
	{
		surveys.GET("", handler.ListSurveys)
		surveys.GET("/available", handler.ListAvailableSurveys)
		surveys.GET("/scheduled", handler.ListScheduledSurveys)
		surveys.GET("/multiplier", handler.GetMultiplier)
		surveys.GET("/:survey_id/estimate", handler.EstimateSurveyPoints)
		surveys.POST("/:survey_id/start", handler.StartSurvey)
		surveys.PUT("/:survey_id/progress", handler.SaveSurveyProgress)
		surveys.DELETE("/:survey_id/progress", handler.ClearSurveyProgress)
		surveys.POST("/:survey_id/complete", middleware.SurveyCompleteRateLimitMiddleware(), handler.CompleteSurvey)
	}

	// 行为画像路由
	behavior := v1.Group("/behavior")
	behavior.Use(middleware.AuthMiddleware())
	{
		behavior.GET("", handler.GetBehavior)
		behavior.PATCH("", handler.UpdateBehavior)
	}

	// 积分路由
	points := v1.Group("/points")
	points.Use(middleware.AuthMiddleware())
	{
		points.GET("/balance", handler.GetPointsBalance)
		points.GET("/transactions", handler.ListPointsTransactions)
		points.POST("/redeem", handler.RedeemPoints)
	}

	// 离线缓存与同步路由
	offline := v1.Group("/offline")
	offline.Use(middleware.AuthMiddleware())
	{
		offline.POST("/surveys", handler.CacheSurveyForOffline)
		offline.GET("/surveys", handler.ListCachedSurveys)
		offline.GET("/surveys/:cache_id", handler.GetCachedSurvey)
		offline.PUT("/surveys/:cache_id", handler.UpdateCachedSurvey)
		offline.POST("/surveys/:cache_id/complete", handler.CompleteCachedSurvey)
		offline.GET("/pending", handler.ListPendingSurveys)
		offline.POST("/sync", middleware.SyncRateLimitMiddleware(), handler.SyncPendingSurveys)
		offline.POST("/status", handler.SetOnlineStatus)
	}
}
