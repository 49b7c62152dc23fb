package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"BitePoints/internal/catalog"
	"BitePoints/internal/model"
	"BitePoints/internal/repository"
	"BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
	"BitePoints/pkg/snowflake"
)

// SurveyStore 问卷服务的数据访问依赖，由 repository.Store 实现
type SurveyStore interface {
	ActiveSurveys(ctx context.Context) ([]model.Survey, error)
	SurveyByID(ctx context.Context, surveyID string) (*model.Survey, error)
	UpsertSurveys(ctx context.Context, surveys []model.Survey) error
	ScheduleFor(ctx context.Context, userID, surveyID string) (*model.SurveySchedule, error)
	SchedulesForUser(ctx context.Context, userID string) (map[string]model.SurveySchedule, error)
	UpsertSchedule(ctx context.Context, userID, surveyID string, nextAvailable time.Time) error
	BehaviorFor(ctx context.Context, userID string) (*model.UserBehavior, error)
	SaveBehavior(ctx context.Context, behavior *model.UserBehavior) error
	ProgressFor(ctx context.Context, userID, surveyID string) (*model.SurveyProgress, error)
	SaveProgress(ctx context.Context, progress *model.SurveyProgress) error
	DeleteProgress(ctx context.Context, userID, surveyID string) error
}

// CompletionPublisher 问卷完成事件发布依赖，由 queue.Producer 实现
type CompletionPublisher interface {
	PublishSurveyCompleted(event model.SurveyCompletedEvent) error
}

type SurveyService struct {
	store      SurveyStore
	publisher  CompletionPublisher
	multiplier func(ctx context.Context) float64
	now        func() time.Time
}

var (
	surveyService *SurveyService
	surveyOnce    sync.Once
)

func Survey() *SurveyService {
	surveyOnce.Do(func() {
		surveyService = &SurveyService{
			store:      repository.Default(),
			multiplier: Multiplier().Current,
			now:        time.Now,
		}
	})
	return surveyService
}

// NewSurveyService 构造可注入依赖的实例（测试用）
func NewSurveyService(store SurveyStore, publisher CompletionPublisher, multiplier func(ctx context.Context) float64, now func() time.Time) *SurveyService {
	return &SurveyService{
		store:      store,
		publisher:  publisher,
		multiplier: multiplier,
		now:        now,
	}
}

// SetCompletionPublisher 注入事件发布器，进程启动时接线
func (s *SurveyService) SetCompletionPublisher(publisher CompletionPublisher) {
	s.publisher = publisher
}

// LoadCatalog 进程启动时加载一次问卷目录并落库
func (s *SurveyService) LoadCatalog(ctx context.Context) error {
	surveys, first, err := catalog.Load(ctx)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}
	return s.store.UpsertSurveys(ctx, surveys)
}

// RefreshCatalog 强制刷新问卷目录，调度器每日调用
func (s *SurveyService) RefreshCatalog(ctx context.Context) error {
	surveys := catalog.Refresh(ctx)
	return s.store.UpsertSurveys(ctx, surveys)
}

// AvailableSurveys 过滤出当前可答的问卷：在用且调度到期，保持目录顺序
// 定向规则只作用于个性化列表
func (s *SurveyService) AvailableSurveys(ctx context.Context, userID string) ([]model.Survey, error) {
	surveys, err := s.store.ActiveSurveys(ctx)
	if err != nil {
		return nil, err
	}

	schedules, err := s.store.SchedulesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	available := make([]model.Survey, 0, len(surveys))
	for _, survey := range surveys {
		if !s.isDue(survey, schedules, now) {
			continue
		}
		available = append(available, survey)
	}
	return available, nil
}

// PersonalizedSurveys 在可答问卷上叠加定向过滤，
// 再按偏好类目优先、积分降序排列
func (s *SurveyService) PersonalizedSurveys(ctx context.Context, userID string, limit int) ([]model.Survey, error) {
	available, err := s.AvailableSurveys(ctx, userID)
	if err != nil {
		return nil, err
	}

	behavior, err := s.store.BehaviorFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	// completedCategories 反查需要完整目录
	catalog, err := s.store.ActiveSurveys(ctx)
	if err != nil {
		return nil, err
	}

	personalized := make([]model.Survey, 0, len(available))
	for _, survey := range available {
		if !MatchesTargeting(survey.Targeting, behavior, catalog) {
			continue
		}
		personalized = append(personalized, survey)
	}

	sort.SliceStable(personalized, func(i, j int) bool {
		pi := behavior.PreferredCategories.Contains(personalized[i].Category)
		pj := behavior.PreferredCategories.Contains(personalized[j].Category)
		if pi != pj {
			return pi
		}
		return personalized[i].BasePoints > personalized[j].BasePoints
	})

	if limit > 0 && len(personalized) > limit {
		personalized = personalized[:limit]
	}
	return personalized, nil
}

// ScheduledSurveys 带调度且已到期的问卷，及各自的到期时间
func (s *SurveyService) ScheduledSurveys(ctx context.Context, userID string) ([]model.Survey, map[string]time.Time, error) {
	surveys, err := s.store.ActiveSurveys(ctx)
	if err != nil {
		return nil, nil, err
	}

	schedules, err := s.store.SchedulesForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	due := make([]model.Survey, 0)
	dueTimes := make(map[string]time.Time)
	for _, survey := range surveys {
		next := s.nextAvailable(survey, schedules)
		if next != nil && !next.After(now) {
			due = append(due, survey)
			dueTimes[survey.SurveyID] = *next
		}
	}
	return due, dueTimes, nil
}

// StartSurvey 开始答卷，已有进度时覆盖重来
func (s *SurveyService) StartSurvey(ctx context.Context, userID, surveyID string) (*model.SurveyProgress, error) {
	survey, err := s.store.SurveyByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, fmt.Errorf("%w", errors.SurveyNotFound)
	}
	if !survey.IsActive {
		return nil, fmt.Errorf("%w", errors.SurveyNotActive)
	}

	schedules, err := s.store.SchedulesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.isDue(*survey, schedules, s.now()) {
		return nil, fmt.Errorf("%w", errors.SurveyNotDue)
	}

	// 重复 start 覆盖旧进度，从头开始
	now := s.now()
	progress := &model.SurveyProgress{
		UserID:          userID,
		SurveyID:        surveyID,
		Answers:         model.AnswerMap{},
		CurrentQuestion: 0,
		StartedAt:       now,
		LastSaved:       now,
	}
	if err := s.store.SaveProgress(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// SaveProgress 保存答卷进度，要求已 start
func (s *SurveyService) SaveProgress(ctx context.Context, userID, surveyID string, answers model.AnswerMap, currentQuestion int) (*model.SurveyProgress, error) {
	survey, err := s.store.SurveyByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, fmt.Errorf("%w", errors.SurveyNotFound)
	}

	progress, err := s.store.ProgressFor(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w", errors.ProgressNotStarted)
	}

	if err := ValidateAnswers(survey.Questions, answers, false); err != nil {
		return nil, err
	}

	progress.Answers = answers
	progress.CurrentQuestion = currentQuestion
	progress.LastSaved = s.now()
	if err := s.store.SaveProgress(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// ClearProgress 放弃答卷，清除进度
func (s *SurveyService) ClearProgress(ctx context.Context, userID, surveyID string) error {
	return s.store.DeleteProgress(ctx, userID, surveyID)
}

// CompleteSurvey 完成问卷：结算积分、推进个人调度、更新行为画像、发积分事件
// 目录中不存在的问卷按静默处理，返回 0 分且不报错
func (s *SurveyService) CompleteSurvey(ctx context.Context, userID, surveyID string, answers model.AnswerMap) (int, float64, *time.Time, error) {
	survey, err := s.store.SurveyByID(ctx, surveyID)
	if err != nil {
		return 0, 1, nil, err
	}
	if survey == nil {
		logger.Logger.Warn("Completion for unknown survey ignored",
			zap.String("user_id", userID),
			zap.String("survey_id", surveyID),
		)
		return 0, 1, nil, nil
	}

	if err := ValidateAnswers(survey.Questions, answers, true); err != nil {
		return 0, 1, nil, err
	}

	multiplier := s.multiplier(ctx)
	points := AwardPoints(survey.BasePoints, multiplier)
	now := s.now()

	behavior, err := s.store.BehaviorFor(ctx, userID)
	if err != nil {
		return 0, multiplier, nil, err
	}
	if !behavior.CompletedSurveys.Contains(surveyID) {
		behavior.CompletedSurveys = append(behavior.CompletedSurveys, surveyID)
	}
	behavior.TotalPoints += points
	behavior.LastActivity = &now
	if err := s.store.SaveBehavior(ctx, behavior); err != nil {
		return 0, multiplier, nil, err
	}

	next := AdvanceSchedule(survey.Schedule, now)
	if err := s.store.UpsertSchedule(ctx, userID, surveyID, next); err != nil {
		return 0, multiplier, nil, err
	}

	if err := s.store.DeleteProgress(ctx, userID, surveyID); err != nil {
		logger.Logger.Warn("Failed to clear progress after completion",
			zap.String("user_id", userID),
			zap.String("survey_id", surveyID),
			zap.Error(err),
		)
	}

	s.publishCompletion(userID, surveyID, "", points, multiplier, now)

	logger.Logger.Info("Survey completed",
		zap.String("user_id", userID),
		zap.String("survey_id", surveyID),
		zap.Int("points", points),
		zap.Float64("multiplier", multiplier),
	)
	return points, multiplier, &next, nil
}

// CompleteCachedSurvey 离线同步通道的完成结算，携带缓存 ID 供幂等追踪
func (s *SurveyService) CompleteCachedSurvey(ctx context.Context, userID, surveyID, cacheID string, answers model.AnswerMap) (int, error) {
	if surveyID == "" {
		return 0, nil
	}

	survey, err := s.store.SurveyByID(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	if survey == nil {
		return 0, nil
	}

	multiplier := s.multiplier(ctx)
	points := AwardPoints(survey.BasePoints, multiplier)
	now := s.now()

	behavior, err := s.store.BehaviorFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !behavior.CompletedSurveys.Contains(surveyID) {
		behavior.CompletedSurveys = append(behavior.CompletedSurveys, surveyID)
	}
	behavior.TotalPoints += points
	behavior.LastActivity = &now
	if err := s.store.SaveBehavior(ctx, behavior); err != nil {
		return 0, err
	}

	next := AdvanceSchedule(survey.Schedule, now)
	if err := s.store.UpsertSchedule(ctx, userID, surveyID, next); err != nil {
		return 0, err
	}

	s.publishCompletion(userID, surveyID, cacheID, points, multiplier, now)
	return points, nil
}

func (s *SurveyService) publishCompletion(userID, surveyID, cacheID string, points int, multiplier float64, occurredAt time.Time) {
	if s.publisher == nil {
		return
	}

	messageID, err := snowflake.NextKey("sv_completed")
	if err != nil {
		logger.Logger.Error("Failed to generate message ID", zap.Error(err))
		return
	}

	event := model.SurveyCompletedEvent{
		MessageID:  messageID,
		UserID:     userID,
		SurveyID:   surveyID,
		CacheID:    cacheID,
		Points:     points,
		Multiplier: multiplier,
		OccurredAt: occurredAt.Format(time.RFC3339),
	}
	if err := s.publisher.PublishSurveyCompleted(event); err != nil {
		logger.Logger.Error("Failed to publish survey completed event",
			zap.String("user_id", userID),
			zap.String("survey_id", surveyID),
			zap.Error(err),
		)
	}
}

// UpdateBehavior 合并客户端上报的偏好与会话时长
func (s *SurveyService) UpdateBehavior(ctx context.Context, userID string, preferredCategories []string, sessionTime int) (*model.UserBehavior, error) {
	behavior, err := s.store.BehaviorFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, category := range preferredCategories {
		if !behavior.PreferredCategories.Contains(category) {
			behavior.PreferredCategories = append(behavior.PreferredCategories, category)
		}
	}
	if sessionTime > 0 {
		if behavior.AverageSessionTime == 0 {
			behavior.AverageSessionTime = sessionTime
		} else {
			behavior.AverageSessionTime = (behavior.AverageSessionTime + sessionTime) / 2
		}
	}
	now := s.now()
	behavior.LastActivity = &now

	if err := s.store.SaveBehavior(ctx, behavior); err != nil {
		return nil, err
	}
	return behavior, nil
}

// Behavior 查询用户行为画像
func (s *SurveyService) Behavior(ctx context.Context, userID string) (*model.UserBehavior, error) {
	return s.store.BehaviorFor(ctx, userID)
}

// BonusMultiplier 当前生效的积分倍数
func (s *SurveyService) BonusMultiplier(ctx context.Context) float64 {
	return s.multiplier(ctx)
}

// SurveyByID 按目录主键查询问卷
func (s *SurveyService) SurveyByID(ctx context.Context, surveyID string) (*model.Survey, error) {
	survey, err := s.store.SurveyByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, fmt.Errorf("%w", errors.SurveyNotFound)
	}
	return survey, nil
}

// EstimatedPoints 问卷按当前倍数可得的积分
func (s *SurveyService) EstimatedPoints(ctx context.Context, survey model.Survey) int {
	return AwardPoints(survey.BasePoints, s.multiplier(ctx))
}

// isDue 个人调度记录优先，其次目录默认 NextAvailable，都缺省视为可答
func (s *SurveyService) isDue(survey model.Survey, schedules map[string]model.SurveySchedule, now time.Time) bool {
	if schedule, ok := schedules[survey.SurveyID]; ok {
		return !schedule.NextAvailable.After(now)
	}
	if survey.Schedule != nil && survey.Schedule.NextAvailable != nil {
		return !survey.Schedule.NextAvailable.After(now)
	}
	return true
}

func (s *SurveyService) nextAvailable(survey model.Survey, schedules map[string]model.SurveySchedule) *time.Time {
	if schedule, ok := schedules[survey.SurveyID]; ok {
		next := schedule.NextAvailable
		return &next
	}
	if survey.Schedule != nil {
		return survey.Schedule.NextAvailable
	}
	return nil
}

// AwardPoints 积分结算，四舍五入
func AwardPoints(basePoints int, multiplier float64) int {
	if basePoints <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	return int(math.Round(float64(basePoints) * multiplier))
}

// AdvanceSchedule 完成后从当前时刻推进下次可用时间，不做补偿累积
func AdvanceSchedule(policy *model.SurveySchedulePolicy, from time.Time) time.Time {
	scheduleType := model.ScheduleTypeDaily
	frequency := 1
	if policy != nil {
		scheduleType = policy.Type
		if policy.Frequency > 0 {
			frequency = policy.Frequency
		}
	}

	switch scheduleType {
	case model.ScheduleTypeWeekly:
		return from.AddDate(0, 0, 7*frequency)
	case model.ScheduleTypeMonthly:
		return from.AddDate(0, frequency, 0)
	default:
		return from.AddDate(0, 0, frequency)
	}
}

// MatchesTargeting 判断用户是否命中问卷定向规则
// 行为标签为 OR 语义，完成类目要求全部满足，积分区间为闭区间（Max 为 0 视为不设上限）
func MatchesTargeting(targeting *model.SurveyTargeting, behavior *model.UserBehavior, allSurveys []model.Survey) bool {
	if targeting == nil {
		return true
	}

	if len(targeting.UserBehavior) > 0 {
		matched := false
		for _, tag := range targeting.UserBehavior {
			if behavior.MatchesTag(tag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(targeting.CompletedCategories) > 0 {
		completed := completedCategories(behavior, allSurveys)
		for _, category := range targeting.CompletedCategories {
			if !completed[category] {
				return false
			}
		}
	}

	if targeting.PointsRange != nil {
		if behavior.TotalPoints < targeting.PointsRange.Min {
			return false
		}
		if targeting.PointsRange.Max > 0 && behavior.TotalPoints > targeting.PointsRange.Max {
			return false
		}
	}

	return true
}

// completedCategories 由完成问卷列表反查出已覆盖的类目
func completedCategories(behavior *model.UserBehavior, allSurveys []model.Survey) map[string]bool {
	byID := make(map[string]string, len(allSurveys))
	for _, survey := range allSurveys {
		byID[survey.SurveyID] = survey.Category
	}

	completed := make(map[string]bool)
	for _, surveyID := range behavior.CompletedSurveys {
		if category, ok := byID[surveyID]; ok {
			completed[category] = true
		}
	}
	return completed
}

// ValidateAnswers 校验答案与题目对应，complete 时要求必答题全部作答
func ValidateAnswers(questions model.SurveyQuestions, answers model.AnswerMap, complete bool) error {
	known := make(map[string]model.SurveyQuestion, len(questions))
	for _, question := range questions {
		known[question.ID] = question
	}

	for id := range answers {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w", errors.AnswersInvalid)
		}
	}

	if complete {
		for _, question := range questions {
			if !question.Required {
				continue
			}
			if _, ok := answers[question.ID]; !ok {
				return fmt.Errorf("%w", errors.AnswersInvalid)
			}
		}
	}
	return nil
}
