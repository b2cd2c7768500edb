package match

import (
	"sync"

	"github.com/tkvist/courtkeeper/internal/rating"
)

// MockNotifier is a mock implementation of Notifier for testing.
// It is safe for concurrent use.
type MockNotifier struct {
	mu sync.Mutex

	SendLineupFunc  func(view *View) error
	SendResultsFunc func(results []Result, updates map[string]rating.Rating) error

	LineupCalls  []*View
	ResultsCalls []ResultsCall
}

// ResultsCall holds the arguments for a call to SendResults.
type ResultsCall struct {
	Results []Result
	Updates map[string]rating.Rating
}

// NewMockNotifier creates a new mock Notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendLineup(view *View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LineupCalls = append(m.LineupCalls, view)
	if m.SendLineupFunc != nil {
		return m.SendLineupFunc(view)
	}
	return nil
}

func (m *MockNotifier) SendResults(results []Result, updates map[string]rating.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResultsCalls = append(m.ResultsCalls, ResultsCall{Results: results, Updates: updates})
	if m.SendResultsFunc != nil {
		return m.SendResultsFunc(results, updates)
	}
	return nil
}
