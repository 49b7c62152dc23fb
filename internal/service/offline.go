package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/internal/cache"
	"BitePoints/internal/catalog"
	"BitePoints/internal/model"
	"BitePoints/internal/repository"
	"BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/snowflake"
)

const syncLockTTL = 2 * time.Minute

// OfflineStore 离线服务的数据访问依赖，由 repository.Store 实现
type OfflineStore interface {
	ActiveSurveys(ctx context.Context) ([]model.Survey, error)
	SurveyByID(ctx context.Context, surveyID string) (*model.Survey, error)
	CachedByID(ctx context.Context, cacheID string) (*model.CachedSurvey, error)
	CachedForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error)
	UpsertCached(ctx context.Context, cached *model.CachedSurvey) error
	SaveCached(ctx context.Context, cached *model.CachedSurvey) error
	PendingForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error)
	PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.CachedSurvey, error)
	MarkSynced(ctx context.Context, cacheID string, syncedAt time.Time) error
}

// SyncPublisher 同步消息发布依赖，由 queue.Producer 实现
type SyncPublisher interface {
	PublishSurveySync(msg model.SurveySyncMessage) error
}

type OfflineService struct {
	store     OfflineStore
	publisher SyncPublisher
	now       func() time.Time

	// 同步单飞锁，默认走 Redis SetNX
	tryLock func(ctx context.Context, key string, ttl time.Duration) (bool, error)
	unlock  func(ctx context.Context, key string) error
}

var (
	offlineService *OfflineService
	offlineOnce    sync.Once
)

func Offline() *OfflineService {
	offlineOnce.Do(func() {
		offlineService = &OfflineService{
			store:   repository.Default(),
			now:     time.Now,
			tryLock: cache.TryLock,
			unlock:  cache.Unlock,
		}
	})
	return offlineService
}

// NewOfflineService 构造可注入依赖的实例（测试用）
func NewOfflineService(
	store OfflineStore,
	publisher SyncPublisher,
	now func() time.Time,
	tryLock func(ctx context.Context, key string, ttl time.Duration) (bool, error),
	unlock func(ctx context.Context, key string) error,
) *OfflineService {
	return &OfflineService{
		store:     store,
		publisher: publisher,
		now:       now,
		tryLock:   tryLock,
		unlock:    unlock,
	}
}

// SetSyncPublisher 注入同步消息发布器，进程启动时接线
func (s *OfflineService) SetSyncPublisher(publisher SyncPublisher) {
	s.publisher = publisher
}

// CacheSurvey 为离线使用缓存一份问卷
// 指定 surveyID 时取目录问卷，否则按类目选一份，类目无货时落内置兜底问卷
// 同一用户同一类目只保留一份，新缓存覆盖旧缓存
func (s *OfflineService) CacheSurvey(ctx context.Context, userID, category, surveyID string) (*model.CachedSurvey, error) {
	var source *model.Survey

	if surveyID != "" {
		survey, err := s.store.SurveyByID(ctx, surveyID)
		if err != nil {
			return nil, err
		}
		if survey == nil {
			return nil, fmt.Errorf("%w", errors.SurveyNotFound)
		}
		source = survey
	} else {
		surveys, err := s.store.ActiveSurveys(ctx)
		if err != nil {
			return nil, err
		}
		for i := range surveys {
			if surveys[i].Category == category {
				source = &surveys[i]
				break
			}
		}
	}

	if source == nil {
		fallback := catalog.FallbackSurvey()
		source = &fallback
	}

	cacheID, err := snowflake.NextKey("cache")
	if err != nil {
		return nil, fmt.Errorf("failed to generate cache ID: %w", err)
	}

	cached := &model.CachedSurvey{
		CacheID:   cacheID,
		UserID:    userID,
		Category:  category,
		SurveyID:  source.SurveyID,
		Questions: source.Questions,
		Answers:   model.AnswerMap{},
	}
	if err := s.store.UpsertCached(ctx, cached); err != nil {
		return nil, err
	}

	logger.Logger.Info("Survey cached for offline use",
		zap.String("user_id", userID),
		zap.String("category", category),
		zap.String("cache_id", cached.CacheID),
		zap.String("survey_id", cached.SurveyID),
	)
	return cached, nil
}

// GetCachedSurvey 查询缓存问卷，校验归属
func (s *OfflineService) GetCachedSurvey(ctx context.Context, userID, cacheID string) (*model.CachedSurvey, error) {
	cached, err := s.store.CachedByID(ctx, cacheID)
	if err != nil {
		return nil, err
	}
	if cached == nil || cached.UserID != userID {
		return nil, fmt.Errorf("%w", errors.CachedSurveyNotFound)
	}
	return cached, nil
}

// ListCachedSurveys 用户的全部缓存问卷
func (s *OfflineService) ListCachedSurveys(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	return s.store.CachedForUser(ctx, userID)
}

// UpdateCachedSurvey 更新缓存问卷的离线答案，已同步的不可再改
func (s *OfflineService) UpdateCachedSurvey(ctx context.Context, userID, cacheID string, answers model.AnswerMap) (*model.CachedSurvey, error) {
	cached, err := s.GetCachedSurvey(ctx, userID, cacheID)
	if err != nil {
		return nil, err
	}
	if cached.State() == model.CacheStateSynced {
		return nil, fmt.Errorf("%w", errors.CacheAlreadySynced)
	}

	cached.Answers = answers
	if err := s.store.SaveCached(ctx, cached); err != nil {
		return nil, err
	}
	return cached, nil
}

// CompleteCachedSurvey 标记缓存问卷离线完成，等待同步
func (s *OfflineService) CompleteCachedSurvey(ctx context.Context, userID, cacheID string, answers model.AnswerMap, completedAt *time.Time) (*model.CachedSurvey, error) {
	cached, err := s.GetCachedSurvey(ctx, userID, cacheID)
	if err != nil {
		return nil, err
	}
	if cached.State() == model.CacheStateSynced {
		return nil, fmt.Errorf("%w", errors.CacheAlreadySynced)
	}

	when := s.now()
	if completedAt != nil {
		when = *completedAt
	}

	cached.Answers = answers
	cached.CompletedAt = &when
	if err := s.store.SaveCached(ctx, cached); err != nil {
		return nil, err
	}

	logger.Logger.Info("Cached survey completed offline",
		zap.String("user_id", userID),
		zap.String("cache_id", cacheID),
	)
	return cached, nil
}

// PendingSurveys 已完成待同步的缓存问卷
func (s *OfflineService) PendingSurveys(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	return s.store.PendingForUser(ctx, userID)
}

// SyncPendingSurveys 将用户待同步问卷投递到同步队列
// 同一用户同一时刻只允许一次同步在途，重入返回 SyncInProgress
func (s *OfflineService) SyncPendingSurveys(ctx context.Context, userID string) (int, error) {
	lockKey := "sync:" + userID
	acquired, err := s.tryLock(ctx, lockKey, syncLockTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return 0, fmt.Errorf("%w", errors.SyncInProgress)
	}
	defer func() {
		if err := s.unlock(ctx, lockKey); err != nil {
			logger.Logger.Warn("Failed to release sync lock",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}()

	pending, err := s.store.PendingForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, cached := range pending {
		if err := s.enqueueSync(cached); err != nil {
			logger.Logger.Error("Failed to enqueue survey sync",
				zap.String("user_id", userID),
				zap.String("cache_id", cached.CacheID),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	logger.Logger.Info("Pending surveys enqueued for sync",
		zap.String("user_id", userID),
		zap.Int("pending", len(pending)),
		zap.Int("enqueued", enqueued),
	)
	return enqueued, nil
}

// SweepPending 兜底扫描滞留的待同步问卷，调度器周期调用
func (s *OfflineService) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.store.PendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, cached := range stale {
		if err := s.enqueueSync(cached); err != nil {
			logger.Logger.Error("Failed to enqueue stale survey sync",
				zap.String("cache_id", cached.CacheID),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		logger.Logger.Info("Stale pending surveys swept",
			zap.Int("enqueued", enqueued),
		)
	}
	return enqueued, nil
}

// MarkSynced 打同步完成标记，worker 处理完同步消息后调用
func (s *OfflineService) MarkSynced(ctx context.Context, cacheID string) error {
	return s.store.MarkSynced(ctx, cacheID, s.now())
}

// SetOnline 上报在线状态，离线转在线时自动触发一次同步
func (s *OfflineService) SetOnline(ctx context.Context, userID string, online bool) error {
	if !online {
		return cache.SetOffline(ctx, userID)
	}

	wasOnline, err := cache.SetOnline(ctx, userID)
	if err != nil {
		return err
	}
	if wasOnline {
		return nil
	}

	// 上线边沿触发同步，同步已在途时静默跳过
	if _, err := s.SyncPendingSurveys(ctx, userID); err != nil {
		if stderrors.Is(err, errors.SyncInProgress) {
			return nil
		}
		logger.Logger.Warn("Auto sync on reconnect failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *OfflineService) enqueueSync(cached model.CachedSurvey) error {
	if s.publisher == nil {
		return fmt.Errorf("sync publisher not configured")
	}

	messageID, err := snowflake.NextKey("sv_sync")
	if err != nil {
		return fmt.Errorf("failed to generate message ID: %w", err)
	}

	completedAt := s.now()
	if cached.CompletedAt != nil {
		completedAt = *cached.CompletedAt
	}

	return s.publisher.PublishSurveySync(model.SurveySyncMessage{
		MessageID:   messageID,
		CacheID:     cached.CacheID,
		UserID:      cached.UserID,
		SurveyID:    cached.SurveyID,
		Category:    cached.Category,
		Answers:     cached.Answers,
		CompletedAt: completedAt,
	})
}
