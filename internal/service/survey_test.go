package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"BitePoints/internal/model"
	bperrors "BitePoints/pkg/errors"
)

var testNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) // 周三

func fixedNow() time.Time { return testNow }

func flatMultiplier(ctx context.Context) float64 { return 1 }

func seedSurvey(store *memStore, survey model.Survey) {
	_ = store.UpsertSurveys(context.Background(), []model.Survey{survey})
}

func basicSurvey(id, category string, points int) model.Survey {
	return model.Survey{
		SurveyID:   id,
		Title:      "测试问卷 " + id,
		Category:   category,
		BasePoints: points,
		Questions: model.SurveyQuestions{
			{ID: "q1", Text: "评分", Type: "rating", Required: true},
			{ID: "q2", Text: "补充", Type: "text"},
		},
		IsActive:   true,
		Multiplier: 1,
	}
}

func TestAvailableSurveysFiltersSchedule(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	due := basicSurvey("sv-due", "meal_feedback", 50)
	seedSurvey(store, due)

	future := testNow.Add(24 * time.Hour)
	notDue := basicSurvey("sv-later", "preferences", 80)
	notDue.Schedule = &model.SurveySchedulePolicy{
		Type:          model.ScheduleTypeDaily,
		Frequency:     1,
		NextAvailable: &future,
	}
	seedSurvey(store, notDue)

	inactive := basicSurvey("sv-off", "meal_feedback", 30)
	inactive.IsActive = false
	seedSurvey(store, inactive)

	available, err := svc.AvailableSurveys(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("AvailableSurveys: %v", err)
	}
	if len(available) != 1 || available[0].SurveyID != "sv-due" {
		t.Fatalf("available = %+v, want only sv-due", available)
	}
}

func TestAvailableSurveysPersonalScheduleOverridesCatalog(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	survey := basicSurvey("sv-daily", "meal_feedback", 50)
	seedSurvey(store, survey)

	// 个人记录把下次可用推到未来，目录层面本来立即可用
	_ = store.UpsertSchedule(context.Background(), "user-1", "sv-daily", testNow.Add(time.Hour))

	available, err := svc.AvailableSurveys(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("AvailableSurveys: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("available = %+v, want none", available)
	}

	// 其他用户不受影响
	available, err = svc.AvailableSurveys(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("AvailableSurveys: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("available for user-2 = %+v, want one", available)
	}
}

func TestPersonalizedSurveysTargeting(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	forNewUsers := basicSurvey("sv-new", "onboarding", 100)
	forNewUsers.Targeting = &model.SurveyTargeting{
		UserBehavior: []string{model.BehaviorTagNewUser},
	}
	seedSurvey(store, forNewUsers)

	forHighEarners := basicSurvey("sv-vip", "loyalty", 200)
	forHighEarners.Targeting = &model.SurveyTargeting{
		UserBehavior: []string{model.BehaviorTagHighEarner},
	}
	seedSurvey(store, forHighEarners)

	// 全新用户：命中 new_user，不命中 high_earner
	personalized, err := svc.PersonalizedSurveys(context.Background(), "user-fresh", 0)
	if err != nil {
		t.Fatalf("PersonalizedSurveys: %v", err)
	}
	if len(personalized) != 1 || personalized[0].SurveyID != "sv-new" {
		t.Fatalf("personalized = %+v, want only sv-new", personalized)
	}

	// 高积分老用户
	_ = store.SaveBehavior(context.Background(), &model.UserBehavior{
		UserID:           "user-vip",
		CompletedSurveys: model.StringList{"a", "b", "c"},
		TotalPoints:      500,
	})
	personalized, err = svc.PersonalizedSurveys(context.Background(), "user-vip", 0)
	if err != nil {
		t.Fatalf("PersonalizedSurveys: %v", err)
	}
	if len(personalized) != 1 || personalized[0].SurveyID != "sv-vip" {
		t.Fatalf("personalized = %+v, want only sv-vip", personalized)
	}
}

func TestAvailableSurveysIgnoreTargeting(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	capped := basicSurvey("sv-capped", "lunch", 30)
	capped.Targeting = &model.SurveyTargeting{
		PointsRange: &model.PointsRange{Min: 0, Max: 100},
	}
	seedSurvey(store, capped)
	seedSurvey(store, basicSurvey("sv-open", "dinner", 20))

	_ = store.SaveBehavior(context.Background(), &model.UserBehavior{
		UserID:      "user-rich",
		TotalPoints: 150,
	})

	// 可答列表只看调度，定向不在这里过滤，且保持目录顺序
	available, err := svc.AvailableSurveys(context.Background(), "user-rich")
	if err != nil {
		t.Fatalf("AvailableSurveys: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("available = %+v, want both surveys", available)
	}
	if available[0].SurveyID != "sv-capped" || available[1].SurveyID != "sv-open" {
		t.Fatalf("available order = %s, %s, want catalog order", available[0].SurveyID, available[1].SurveyID)
	}

	// 个性化列表才应用积分区间
	personalized, err := svc.PersonalizedSurveys(context.Background(), "user-rich", 0)
	if err != nil {
		t.Fatalf("PersonalizedSurveys: %v", err)
	}
	if len(personalized) != 1 || personalized[0].SurveyID != "sv-open" {
		t.Fatalf("personalized = %+v, want only sv-open", personalized)
	}
}

func TestMatchesTargetingUnknownTagNeverMatches(t *testing.T) {
	behavior := &model.UserBehavior{UserID: "u"}
	targeting := &model.SurveyTargeting{UserBehavior: []string{"vegetarian"}}

	if MatchesTargeting(targeting, behavior, nil) {
		t.Error("unknown behavior tag should never match")
	}
}

func TestMatchesTargetingCompletedCategories(t *testing.T) {
	surveys := []model.Survey{
		{SurveyID: "sv-1", Category: "meal_feedback"},
		{SurveyID: "sv-2", Category: "preferences"},
	}
	behavior := &model.UserBehavior{
		UserID:           "u",
		CompletedSurveys: model.StringList{"sv-1"},
	}

	hit := &model.SurveyTargeting{CompletedCategories: []string{"meal_feedback"}}
	if !MatchesTargeting(hit, behavior, surveys) {
		t.Error("completed category should match")
	}

	miss := &model.SurveyTargeting{CompletedCategories: []string{"meal_feedback", "preferences"}}
	if MatchesTargeting(miss, behavior, surveys) {
		t.Error("all listed categories must be completed")
	}
}

func TestMatchesTargetingPointsRange(t *testing.T) {
	behavior := &model.UserBehavior{UserID: "u", TotalPoints: 150}

	inRange := &model.SurveyTargeting{PointsRange: &model.PointsRange{Min: 100, Max: 200}}
	if !MatchesTargeting(inRange, behavior, nil) {
		t.Error("points within range should match")
	}

	below := &model.SurveyTargeting{PointsRange: &model.PointsRange{Min: 200}}
	if MatchesTargeting(below, behavior, nil) {
		t.Error("points below range should not match")
	}

	// Max 为 0 视为不设上限
	open := &model.SurveyTargeting{PointsRange: &model.PointsRange{Min: 100}}
	if !MatchesTargeting(open, behavior, nil) {
		t.Error("zero max should mean unbounded")
	}
}

func TestPersonalizedSurveysOrdering(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	seedSurvey(store, basicSurvey("sv-a", "meal_feedback", 50))
	seedSurvey(store, basicSurvey("sv-b", "preferences", 200))
	seedSurvey(store, basicSurvey("sv-c", "meal_feedback", 100))

	_ = store.SaveBehavior(context.Background(), &model.UserBehavior{
		UserID:              "user-1",
		PreferredCategories: model.StringList{"meal_feedback"},
	})

	personalized, err := svc.PersonalizedSurveys(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("PersonalizedSurveys: %v", err)
	}
	if len(personalized) != 3 {
		t.Fatalf("got %d surveys, want 3", len(personalized))
	}
	// 偏好类目优先，类目内积分降序
	wantOrder := []string{"sv-c", "sv-a", "sv-b"}
	for i, want := range wantOrder {
		if personalized[i].SurveyID != want {
			t.Errorf("position %d = %s, want %s", i, personalized[i].SurveyID, want)
		}
	}

	limited, err := svc.PersonalizedSurveys(context.Background(), "user-1", 2)
	if err != nil {
		t.Fatalf("PersonalizedSurveys: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored, got %d surveys", len(limited))
	}
}

func TestStartAndSaveProgress(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	progress, err := svc.StartSurvey(context.Background(), "user-1", "sv-1")
	if err != nil {
		t.Fatalf("StartSurvey: %v", err)
	}
	if progress.CurrentQuestion != 0 || !progress.StartedAt.Equal(testNow) {
		t.Fatalf("progress = %+v", progress)
	}

	saved, err := svc.SaveProgress(context.Background(), "user-1", "sv-1",
		model.AnswerMap{"q1": 5}, 1)
	if err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}
	if saved.CurrentQuestion != 1 {
		t.Errorf("CurrentQuestion = %d, want 1", saved.CurrentQuestion)
	}

	// 重新 start 覆盖旧进度，从头开始
	restarted, err := svc.StartSurvey(context.Background(), "user-1", "sv-1")
	if err != nil {
		t.Fatalf("StartSurvey restart: %v", err)
	}
	if restarted.CurrentQuestion != 0 || len(restarted.Answers) != 0 {
		t.Errorf("restart kept old progress: %+v", restarted)
	}

	stored, err := store.ProgressFor(context.Background(), "user-1", "sv-1")
	if err != nil {
		t.Fatalf("ProgressFor: %v", err)
	}
	if stored.CurrentQuestion != 0 || len(stored.Answers) != 0 {
		t.Errorf("stored progress not overwritten: %+v", stored)
	}
}

func TestSaveProgressWithoutStart(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	_, err := svc.SaveProgress(context.Background(), "user-1", "sv-1", model.AnswerMap{"q1": 5}, 1)
	if !errors.Is(err, bperrors.ProgressNotStarted) {
		t.Errorf("err = %v, want ProgressNotStarted", err)
	}
}

func TestSaveProgressRejectsUnknownQuestion(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	if _, err := svc.StartSurvey(context.Background(), "user-1", "sv-1"); err != nil {
		t.Fatalf("StartSurvey: %v", err)
	}

	_, err := svc.SaveProgress(context.Background(), "user-1", "sv-1", model.AnswerMap{"q99": "x"}, 0)
	if !errors.Is(err, bperrors.AnswersInvalid) {
		t.Errorf("err = %v, want AnswersInvalid", err)
	}
}

func TestStartSurveyNotDue(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))
	_ = store.UpsertSchedule(context.Background(), "user-1", "sv-1", testNow.Add(time.Hour))

	_, err := svc.StartSurvey(context.Background(), "user-1", "sv-1")
	if !errors.Is(err, bperrors.SurveyNotDue) {
		t.Errorf("err = %v, want SurveyNotDue", err)
	}
}

func TestCompleteSurvey(t *testing.T) {
	store := newMemStore()
	publisher := &fakePublisher{}
	svc := NewSurveyService(store, publisher, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	if _, err := svc.StartSurvey(context.Background(), "user-1", "sv-1"); err != nil {
		t.Fatalf("StartSurvey: %v", err)
	}

	points, multiplier, next, err := svc.CompleteSurvey(context.Background(), "user-1", "sv-1",
		model.AnswerMap{"q1": 5, "q2": "好吃"})
	if err != nil {
		t.Fatalf("CompleteSurvey: %v", err)
	}
	if points != 50 || multiplier != 1 {
		t.Errorf("points = %d multiplier = %v, want 50 / 1", points, multiplier)
	}

	// daily 默认 +1 天
	wantNext := testNow.AddDate(0, 0, 1)
	if next == nil || !next.Equal(wantNext) {
		t.Errorf("next = %v, want %v", next, wantNext)
	}

	// 行为画像更新
	behavior, _ := store.BehaviorFor(context.Background(), "user-1")
	if !behavior.CompletedSurveys.Contains("sv-1") {
		t.Error("completed survey not recorded in behavior")
	}
	if behavior.TotalPoints != 50 {
		t.Errorf("TotalPoints = %d, want 50", behavior.TotalPoints)
	}

	// 进度已清除
	progress, _ := store.ProgressFor(context.Background(), "user-1", "sv-1")
	if progress != nil {
		t.Error("progress should be cleared after completion")
	}

	// 事件已发布
	if len(publisher.completed) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.completed))
	}
	event := publisher.completed[0]
	if event.UserID != "user-1" || event.SurveyID != "sv-1" || event.Points != 50 {
		t.Errorf("event = %+v", event)
	}
	if event.MessageID == "" {
		t.Error("event missing message id")
	}

	// 完成后当日不再可答
	available, _ := svc.AvailableSurveys(context.Background(), "user-1")
	if len(available) != 0 {
		t.Errorf("survey still available after completion: %+v", available)
	}
}

func TestCompleteSurveyWithWeekendMultiplier(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, func(ctx context.Context) float64 { return 2 }, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	points, multiplier, _, err := svc.CompleteSurvey(context.Background(), "user-1", "sv-1",
		model.AnswerMap{"q1": 5})
	if err != nil {
		t.Fatalf("CompleteSurvey: %v", err)
	}
	if points != 100 || multiplier != 2 {
		t.Errorf("points = %d multiplier = %v, want 100 / 2", points, multiplier)
	}
}

func TestCompleteUnknownSurveyIsSilentNoop(t *testing.T) {
	store := newMemStore()
	publisher := &fakePublisher{}
	svc := NewSurveyService(store, publisher, flatMultiplier, fixedNow)

	points, _, next, err := svc.CompleteSurvey(context.Background(), "user-1", "sv-ghost",
		model.AnswerMap{})
	if err != nil {
		t.Fatalf("CompleteSurvey: %v", err)
	}
	if points != 0 || next != nil {
		t.Errorf("points = %d next = %v, want 0 / nil", points, next)
	}
	if len(publisher.completed) != 0 {
		t.Error("no event should be published for unknown survey")
	}
}

func TestCompleteSurveyRequiresRequiredAnswers(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)
	seedSurvey(store, basicSurvey("sv-1", "meal_feedback", 50))

	_, _, _, err := svc.CompleteSurvey(context.Background(), "user-1", "sv-1",
		model.AnswerMap{"q2": "只答了选答题"})
	if !errors.Is(err, bperrors.AnswersInvalid) {
		t.Errorf("err = %v, want AnswersInvalid", err)
	}
}

func TestAdvanceSchedule(t *testing.T) {
	from := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		policy *model.SurveySchedulePolicy
		want   time.Time
	}{
		{"nil defaults to daily", nil, from.AddDate(0, 0, 1)},
		{"daily", &model.SurveySchedulePolicy{Type: model.ScheduleTypeDaily, Frequency: 1}, from.AddDate(0, 0, 1)},
		{"weekly", &model.SurveySchedulePolicy{Type: model.ScheduleTypeWeekly, Frequency: 1}, from.AddDate(0, 0, 7)},
		{"monthly", &model.SurveySchedulePolicy{Type: model.ScheduleTypeMonthly, Frequency: 1}, from.AddDate(0, 1, 0)},
		{"every 2 days", &model.SurveySchedulePolicy{Type: model.ScheduleTypeDaily, Frequency: 2}, from.AddDate(0, 0, 2)},
		{"zero frequency treated as 1", &model.SurveySchedulePolicy{Type: model.ScheduleTypeWeekly}, from.AddDate(0, 0, 7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdvanceSchedule(tc.policy, from)
			if !got.Equal(tc.want) {
				t.Errorf("AdvanceSchedule = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAwardPoints(t *testing.T) {
	cases := []struct {
		base       int
		multiplier float64
		want       int
	}{
		{50, 1, 50},
		{50, 2, 100},
		{75, 1.5, 113}, // 四舍五入
		{0, 2, 0},
		{-10, 2, 0},
		{50, 0, 50}, // 非法倍数回退为 1
	}
	for _, tc := range cases {
		if got := AwardPoints(tc.base, tc.multiplier); got != tc.want {
			t.Errorf("AwardPoints(%d, %v) = %d, want %d", tc.base, tc.multiplier, got, tc.want)
		}
	}
}

func TestScheduledSurveys(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	// 无调度的问卷不进列表
	seedSurvey(store, basicSurvey("sv-plain", "meal_feedback", 50))
	seedSurvey(store, basicSurvey("sv-due", "dinner", 40))
	seedSurvey(store, basicSurvey("sv-later", "preferences", 80))

	past := testNow.Add(-time.Hour)
	future := testNow.Add(48 * time.Hour)
	_ = store.UpsertSchedule(context.Background(), "user-1", "sv-due", past)
	_ = store.UpsertSchedule(context.Background(), "user-1", "sv-later", future)

	due, dueTimes, err := svc.ScheduledSurveys(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ScheduledSurveys: %v", err)
	}
	// 只返回带调度且已到期的，未到期的 sv-later 不出现
	if len(due) != 1 || due[0].SurveyID != "sv-due" {
		t.Fatalf("due = %+v, want only sv-due", due)
	}
	if !dueTimes["sv-due"].Equal(past) {
		t.Errorf("due time = %v, want %v", dueTimes["sv-due"], past)
	}
}

func TestUpdateBehavior(t *testing.T) {
	store := newMemStore()
	svc := NewSurveyService(store, nil, flatMultiplier, fixedNow)

	behavior, err := svc.UpdateBehavior(context.Background(), "user-1", []string{"meal_feedback"}, 120)
	if err != nil {
		t.Fatalf("UpdateBehavior: %v", err)
	}
	if !behavior.PreferredCategories.Contains("meal_feedback") {
		t.Error("preferred category not merged")
	}
	if behavior.AverageSessionTime != 120 {
		t.Errorf("AverageSessionTime = %d, want 120", behavior.AverageSessionTime)
	}

	// 再次上报取滑动平均，重复类目不重复追加
	behavior, err = svc.UpdateBehavior(context.Background(), "user-1", []string{"meal_feedback"}, 60)
	if err != nil {
		t.Fatalf("UpdateBehavior: %v", err)
	}
	if behavior.AverageSessionTime != 90 {
		t.Errorf("AverageSessionTime = %d, want 90", behavior.AverageSessionTime)
	}
	if len(behavior.PreferredCategories) != 1 {
		t.Errorf("duplicate category appended: %v", behavior.PreferredCategories)
	}
	if behavior.LastActivity == nil || !behavior.LastActivity.Equal(testNow) {
		t.Errorf("LastActivity = %v, want %v", behavior.LastActivity, testNow)
	}
}
