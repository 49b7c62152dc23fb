package catalog

import (
	"context"
	"testing"
	"time"

	"BitePoints/config"
	"BitePoints/internal/model"
	"BitePoints/pkg/backend"
	"BitePoints/pkg/logger"
)

func init() {
	logger.Init()
	config.Cfg.FallbackSurveyPoints = 50
}

func TestConvert(t *testing.T) {
	raw := backend.RawSurvey{
		ID:            "sv-101",
		Title:         "午餐偏好调查",
		Category:      "preferences",
		EstimatedTime: "3 min",
		BasePoints:    80,
		Questions: []backend.RawQuestion{
			{ID: "q1", Text: "最常点的品类？", Type: "single_choice", Options: []string{"中餐", "西餐"}, Required: true},
		},
		Schedule: &backend.RawSchedule{
			Type:          "weekly",
			Frequency:     1,
			NextAvailable: "2026-09-07T00:00:00Z",
		},
		Targeting: &backend.RawTargeting{
			UserBehavior: []string{model.BehaviorTagActiveUser},
			PointsRange:  &backend.RawPointsRange{Min: 0, Max: 500},
		},
		IsActive: true,
	}

	survey := Convert(raw)

	if survey.SurveyID != "sv-101" {
		t.Errorf("SurveyID = %q, want sv-101", survey.SurveyID)
	}
	if survey.BasePoints != 80 {
		t.Errorf("BasePoints = %d, want 80", survey.BasePoints)
	}
	if len(survey.Questions) != 1 || survey.Questions[0].ID != "q1" {
		t.Fatalf("Questions not converted: %+v", survey.Questions)
	}
	if survey.Schedule == nil || survey.Schedule.Type != model.ScheduleTypeWeekly {
		t.Fatalf("Schedule not converted: %+v", survey.Schedule)
	}
	want := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	if survey.Schedule.NextAvailable == nil || !survey.Schedule.NextAvailable.Equal(want) {
		t.Errorf("NextAvailable = %v, want %v", survey.Schedule.NextAvailable, want)
	}
	if survey.Targeting == nil || len(survey.Targeting.UserBehavior) != 1 {
		t.Fatalf("Targeting not converted: %+v", survey.Targeting)
	}
	if survey.Targeting.PointsRange == nil || survey.Targeting.PointsRange.Max != 500 {
		t.Errorf("PointsRange not converted: %+v", survey.Targeting.PointsRange)
	}
	// 上游未给权重时回退为 1
	if survey.Multiplier != 1 {
		t.Errorf("Multiplier = %v, want 1", survey.Multiplier)
	}
}

func TestConvertInvalidNextAvailable(t *testing.T) {
	raw := backend.RawSurvey{
		ID: "sv-bad-time",
		Schedule: &backend.RawSchedule{
			Type:          "daily",
			Frequency:     1,
			NextAvailable: "not-a-timestamp",
		},
	}

	survey := Convert(raw)

	if survey.Schedule == nil {
		t.Fatal("Schedule dropped")
	}
	if survey.Schedule.NextAvailable != nil {
		t.Errorf("NextAvailable = %v, want nil for invalid timestamp", survey.Schedule.NextAvailable)
	}
}

func TestLoadFallbackOnFetchFailure(t *testing.T) {
	mock := backend.NewMockClient()
	mock.FailFetch = true
	backend.SetClient(mock)
	ResetForTest()

	surveys, first, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !first {
		t.Fatal("first Load should report loaded=true")
	}
	if len(surveys) != 1 || !surveys[0].Fallback {
		t.Fatalf("expected single fallback survey, got %+v", surveys)
	}
	if surveys[0].BasePoints != 50 {
		t.Errorf("fallback BasePoints = %d, want 50", surveys[0].BasePoints)
	}
	if surveys[0].Targeting != nil {
		t.Errorf("fallback survey should have open targeting, got %+v", surveys[0].Targeting)
	}
}

func TestLoadOncePerProcess(t *testing.T) {
	mock := backend.NewMockClient()
	mock.Surveys = []backend.RawSurvey{{ID: "sv-1", IsActive: true}}
	backend.SetClient(mock)
	ResetForTest()

	surveys, first, err := Load(context.Background())
	if err != nil || !first || len(surveys) != 1 {
		t.Fatalf("first Load = (%v, %v, %v)", surveys, first, err)
	}

	surveys, first, err = Load(context.Background())
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if first || surveys != nil {
		t.Errorf("second Load should be a no-op, got (%v, %v)", surveys, first)
	}

	// Refresh 强制重新拉取
	mock.Surveys = append(mock.Surveys, backend.RawSurvey{ID: "sv-2", IsActive: true})
	refreshed := Refresh(context.Background())
	if len(refreshed) != 2 {
		t.Errorf("Refresh returned %d surveys, want 2", len(refreshed))
	}
}

func TestLoadFallbackOnEmptyCatalog(t *testing.T) {
	backend.SetClient(backend.NewMockClient())
	ResetForTest()

	surveys, _, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(surveys) != 1 || surveys[0].SurveyID != FallbackSurveyID {
		t.Fatalf("expected fallback survey for empty catalog, got %+v", surveys)
	}
}
