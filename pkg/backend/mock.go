package backend

import (
	"context"
	"errors"
	"sync"
)

// MockClient 可配置的上游后台 mock，实现 Client 接口
type MockClient struct {
	mu        sync.Mutex
	Surveys   []RawSurvey
	Submitted []CompletedSurvey

	// FailFetch / FailSubmit 置为 true 时对应调用返回 mock 错误
	FailFetch  bool
	FailSubmit bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Submitted: make([]CompletedSurvey, 0),
	}
}

func (m *MockClient) FetchSurveys(ctx context.Context) ([]RawSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFetch {
		return nil, errors.New("mock catalog fetch failure")
	}
	return m.Surveys, nil
}

func (m *MockClient) SubmitCompleted(ctx context.Context, payload CompletedSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSubmit {
		return errors.New("mock submit failure")
	}
	m.Submitted = append(m.Submitted, payload)
	return nil
}

// SubmittedCount 已提交条数（测试用）
func (m *MockClient) SubmittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submitted)
}
