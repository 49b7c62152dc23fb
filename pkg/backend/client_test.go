package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BitePoints/config"
)

func TestFetchSurveysEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/surveys" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"sv-1","title":"午餐反馈","category":"lunch","basePoints":30,"isActive":true,"multiplier":1}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	surveys, err := client.FetchSurveys(context.Background())
	if err != nil {
		t.Fatalf("FetchSurveys failed: %v", err)
	}
	if len(surveys) != 1 {
		t.Fatalf("expected 1 survey, got %d", len(surveys))
	}
	if surveys[0].ID != "sv-1" || surveys[0].BasePoints != 30 {
		t.Errorf("unexpected survey %+v", surveys[0])
	}
}

func TestFetchSurveysBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"sv-2","category":"dinner","isActive":true}]`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	surveys, err := client.FetchSurveys(context.Background())
	if err != nil {
		t.Fatalf("FetchSurveys failed: %v", err)
	}
	if len(surveys) != 1 || surveys[0].ID != "sv-2" {
		t.Fatalf("unexpected surveys %+v", surveys)
	}
}

func TestFetchSurveysNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	if _, err := client.FetchSurveys(context.Background()); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestSubmitCompleted(t *testing.T) {
	var got CompletedSurvey
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/surveys/completed" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	payload := CompletedSurvey{
		CacheID:     "cache_1",
		UserID:      "user-1",
		Category:    "lunch",
		Answers:     map[string]interface{}{"q1": 5},
		CompletedAt: time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC),
	}
	if err := client.SubmitCompleted(context.Background(), payload); err != nil {
		t.Fatalf("SubmitCompleted failed: %v", err)
	}
	if got.CacheID != "cache_1" || got.UserID != "user-1" {
		t.Errorf("unexpected payload received upstream: %+v", got)
	}
}

func TestInitInvalidBaseURLFallsBackToMock(t *testing.T) {
	config.Cfg.BackendBaseURL = "://not-a-url"
	if err := Init(); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	if _, ok := GetClient().(*MockClient); !ok {
		t.Fatalf("expected mock fallback client, got %T", GetClient())
	}
}
