package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/config"
	"BitePoints/pkg/logger"
)

// RawSurvey 上游后台返回的问卷记录，字段保持上游命名
type RawSurvey struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Category      string                 `json:"category"`
	Description   string                 `json:"description"`
	EstimatedTime string                 `json:"estimatedTime"`
	BasePoints    int                    `json:"basePoints"`
	Questions     []RawQuestion          `json:"questions"`
	Schedule      *RawSchedule           `json:"schedule,omitempty"`
	Targeting     *RawTargeting          `json:"targeting,omitempty"`
	IsActive      bool                   `json:"isActive"`
	Multiplier    float64                `json:"multiplier"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

type RawQuestion struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type RawSchedule struct {
	Type          string `json:"type"`
	Frequency     int    `json:"frequency"`
	NextAvailable string `json:"nextAvailable"` // RFC3339，为空表示立即可用
}

type RawTargeting struct {
	UserBehavior        []string       `json:"userBehavior,omitempty"`
	CompletedCategories []string       `json:"completedCategories,omitempty"`
	PointsRange         *RawPointsRange `json:"pointsRange,omitempty"`
}

type RawPointsRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// CompletedSurvey 回传给上游后台的已完成问卷载荷
type CompletedSurvey struct {
	CacheID     string                 `json:"cacheId"`
	UserID      string                 `json:"userId"`
	Category    string                 `json:"category"`
	Answers     map[string]interface{} `json:"answers"`
	CompletedAt time.Time              `json:"completedAt"`
}

// Client 上游订餐后台客户端接口
type Client interface {
	// FetchSurveys 拉取问卷目录
	FetchSurveys(ctx context.Context) ([]RawSurvey, error)

	// SubmitCompleted 回传一份已完成问卷，失败由调用方重试
	SubmitCompleted(ctx context.Context, payload CompletedSurvey) error
}

var (
	backendClient Client
	backendOnce   sync.Once

	errMissingBaseURL = errors.New("backend base url is not configured")
)

// Init 初始化上游后台客户端
// 地址缺失或非法时返回错误并降级为 mock，调用方据此走回退目录
func Init() error {
	var initErr error
	backendOnce.Do(func() {
		baseURL := config.Cfg.BackendBaseURL
		if baseURL == "" {
			backendClient = NewMockClient()
			initErr = errMissingBaseURL
			return
		}
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			backendClient = NewMockClient()
			initErr = fmt.Errorf("invalid backend base url %q: %w", baseURL, err)
			return
		}

		backendClient = NewHTTPClient(
			baseURL,
			time.Duration(config.Cfg.BackendTimeoutSeconds)*time.Second,
		)

		logger.Logger.Info("Backend client initialized successfully",
			zap.String("base_url", baseURL),
		)
	})

	return initErr
}

func GetClient() Client {
	if backendClient == nil {
		panic("backend client not initialized, call backend.Init() first")
	}
	return backendClient
}

// SetClient 注入客户端实现（测试用）
func SetClient(c Client) {
	backendClient = c
}
