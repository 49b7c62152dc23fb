package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"BitePoints/config"
	"BitePoints/internal/model"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/snowflake"
)

func init() {
	logger.Init()
	if err := snowflake.Init(1, 1); err != nil {
		panic(err)
	}
	config.Cfg.WeekendBonusMultiplier = 2
	config.Cfg.FallbackSurveyPoints = 50
}

// memStore 内存版数据层，同时满足 SurveyStore 和 OfflineStore
type memStore struct {
	mu        sync.Mutex
	surveys   map[string]model.Survey
	schedules map[string]map[string]model.SurveySchedule // userID -> surveyID
	behaviors map[string]*model.UserBehavior
	progress  map[string]*model.SurveyProgress // userID+"/"+surveyID
	cached    map[string]*model.CachedSurvey   // cacheID
}

func newMemStore() *memStore {
	return &memStore{
		surveys:   make(map[string]model.Survey),
		schedules: make(map[string]map[string]model.SurveySchedule),
		behaviors: make(map[string]*model.UserBehavior),
		progress:  make(map[string]*model.SurveyProgress),
		cached:    make(map[string]*model.CachedSurvey),
	}
}

func (m *memStore) ActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var surveys []model.Survey
	for _, survey := range m.surveys {
		if survey.IsActive {
			surveys = append(surveys, survey)
		}
	}
	sort.Slice(surveys, func(i, j int) bool { return surveys[i].SurveyID < surveys[j].SurveyID })
	return surveys, nil
}

func (m *memStore) SurveyByID(ctx context.Context, surveyID string) (*model.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if survey, ok := m.surveys[surveyID]; ok {
		copied := survey
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) UpsertSurveys(ctx context.Context, surveys []model.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, survey := range surveys {
		m.surveys[survey.SurveyID] = survey
	}
	return nil
}

func (m *memStore) ScheduleFor(ctx context.Context, userID, surveyID string) (*model.SurveySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if schedule, ok := m.schedules[userID][surveyID]; ok {
		copied := schedule
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) SchedulesForUser(ctx context.Context, userID string) (map[string]model.SurveySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]model.SurveySchedule)
	for surveyID, schedule := range m.schedules[userID] {
		result[surveyID] = schedule
	}
	return result, nil
}

func (m *memStore) UpsertSchedule(ctx context.Context, userID, surveyID string, nextAvailable time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedules[userID] == nil {
		m.schedules[userID] = make(map[string]model.SurveySchedule)
	}
	m.schedules[userID][surveyID] = model.SurveySchedule{
		UserID:        userID,
		SurveyID:      surveyID,
		NextAvailable: nextAvailable,
	}
	return nil
}

func (m *memStore) BehaviorFor(ctx context.Context, userID string) (*model.UserBehavior, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if behavior, ok := m.behaviors[userID]; ok {
		copied := *behavior
		return &copied, nil
	}
	return &model.UserBehavior{
		UserID:              userID,
		CompletedSurveys:    model.StringList{},
		PreferredCategories: model.StringList{},
	}, nil
}

func (m *memStore) SaveBehavior(ctx context.Context, behavior *model.UserBehavior) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *behavior
	m.behaviors[behavior.UserID] = &copied
	return nil
}

func (m *memStore) ProgressFor(ctx context.Context, userID, surveyID string) (*model.SurveyProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if progress, ok := m.progress[userID+"/"+surveyID]; ok {
		copied := *progress
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) SaveProgress(ctx context.Context, progress *model.SurveyProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *progress
	m.progress[progress.UserID+"/"+progress.SurveyID] = &copied
	return nil
}

func (m *memStore) DeleteProgress(ctx context.Context, userID, surveyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.progress, userID+"/"+surveyID)
	return nil
}

func (m *memStore) CachedByID(ctx context.Context, cacheID string) (*model.CachedSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.cached[cacheID]; ok {
		copied := *cached
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) CachedForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.CachedSurvey
	for _, cached := range m.cached {
		if cached.UserID == userID {
			result = append(result, *cached)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

func (m *memStore) UpsertCached(ctx context.Context, cached *model.CachedSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 同一用户同一类目只保留一条
	for id, existing := range m.cached {
		if existing.UserID == cached.UserID && existing.Category == cached.Category {
			delete(m.cached, id)
		}
	}
	copied := *cached
	m.cached[cached.CacheID] = &copied
	return nil
}

func (m *memStore) SaveCached(ctx context.Context, cached *model.CachedSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *cached
	m.cached[cached.CacheID] = &copied
	return nil
}

func (m *memStore) PendingForUser(ctx context.Context, userID string) ([]model.CachedSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.CachedSurvey
	for _, cached := range m.cached {
		if cached.UserID == userID && cached.IsPending() {
			result = append(result, *cached)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CacheID < result[j].CacheID })
	return result, nil
}

func (m *memStore) PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.CachedSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.CachedSurvey
	for _, cached := range m.cached {
		if cached.IsPending() && cached.CompletedAt.Before(cutoff) {
			result = append(result, *cached)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CacheID < result[j].CacheID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStore) MarkSynced(ctx context.Context, cacheID string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.cached[cacheID]; ok && cached.SyncedAt == nil {
		cached.SyncedAt = &syncedAt
	}
	return nil
}

var errFakePublish = errors.New("fake publish failure")

// fakePublisher 记录发布过的消息
type fakePublisher struct {
	mu        sync.Mutex
	completed []model.SurveyCompletedEvent
	synced    []model.SurveySyncMessage
	fail      bool
}

func (p *fakePublisher) PublishSurveyCompleted(event model.SurveyCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errFakePublish
	}
	p.completed = append(p.completed, event)
	return nil
}

func (p *fakePublisher) PublishSurveySync(msg model.SurveySyncMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errFakePublish
	}
	p.synced = append(p.synced, msg)
	return nil
}

// memLock 内存版单飞锁
type memLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLock() *memLock {
	return &memLock{held: make(map[string]bool)}
}

func (l *memLock) tryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLock) unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}
