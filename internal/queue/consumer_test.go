package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"BitePoints/internal/model"
	"BitePoints/pkg/backend"
	apperrors "BitePoints/pkg/errors"
	"BitePoints/pkg/logger"
)

func init() {
	logger.Init()
}

type syncCalls struct {
	submitted  int
	markSynced int
	settled    int
	markedDone int
	unmarked   int
}

func newSyncDeps(calls *syncCalls, submitErr error) surveySyncDeps {
	return surveySyncDeps{
		tryMark: func(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
			return true, nil
		},
		unmark: func(ctx context.Context, messageID string) error {
			calls.unmarked++
			return nil
		},
		markDone: func(ctx context.Context, messageID string, ttl time.Duration) error {
			calls.markedDone++
			return nil
		},
		submit: func(ctx context.Context, payload backend.CompletedSurvey) error {
			calls.submitted++
			return submitErr
		},
		markSynced: func(ctx context.Context, cacheID string) error {
			calls.markSynced++
			return nil
		},
		settle: func(ctx context.Context, userID, surveyID, cacheID string, answers model.AnswerMap) (int, error) {
			calls.settled++
			return 50, nil
		},
	}
}

func syncMessageBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(model.SurveySyncMessage{
		MessageID:   "msg-1",
		CacheID:     "cache-1",
		UserID:      "u1",
		SurveyID:    "sv-a",
		Category:    "lunch",
		Answers:     map[string]interface{}{"q1": 5},
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal sync message: %v", err)
	}
	return body
}

func TestSurveySyncHandlerSubmitFailureRequeues(t *testing.T) {
	calls := &syncCalls{}
	deps := newSyncDeps(calls, stderrors.New("upstream unavailable"))
	handler := surveySyncHandler(context.Background(), deps)

	err := handler(syncMessageBody(t))
	if err == nil {
		t.Fatal("expected error so the message is requeued, got nil")
	}
	if apperrors.IsSkipMessageError(err) {
		t.Fatal("submit failure must not be acked as skip")
	}
	if calls.markSynced != 0 {
		t.Fatalf("markSynced called %d times on submit failure, want 0", calls.markSynced)
	}
	if calls.settled != 0 {
		t.Fatalf("settle called %d times on submit failure, want 0", calls.settled)
	}
	if calls.unmarked != 1 {
		t.Fatalf("unmark called %d times, want 1", calls.unmarked)
	}
}

func TestSurveySyncHandlerSuccess(t *testing.T) {
	calls := &syncCalls{}
	deps := newSyncDeps(calls, nil)
	handler := surveySyncHandler(context.Background(), deps)

	if err := handler(syncMessageBody(t)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if calls.submitted != 1 || calls.markSynced != 1 || calls.settled != 1 || calls.markedDone != 1 {
		t.Fatalf("calls = %+v, want one submit, markSynced, settle, markDone", *calls)
	}
	if calls.unmarked != 0 {
		t.Fatalf("unmark called %d times on success, want 0", calls.unmarked)
	}
}

func TestSurveySyncHandlerDuplicateSkips(t *testing.T) {
	calls := &syncCalls{}
	deps := newSyncDeps(calls, nil)
	deps.tryMark = func(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
		return false, nil
	}
	handler := surveySyncHandler(context.Background(), deps)

	err := handler(syncMessageBody(t))
	if !apperrors.IsSkipMessageError(err) {
		t.Fatalf("expected skip for duplicate message, got %v", err)
	}
	if calls.submitted != 0 {
		t.Fatalf("submit called %d times for duplicate, want 0", calls.submitted)
	}
}
