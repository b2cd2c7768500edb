package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                    sync.Mutex
	matchesStarted        int
	matchesFinished       int
	preconditionConflicts int
	scoresSubmitted       int
	pairingDurations      []float64
	slackNotifSent        int
	slackNotifFailed      int
	startupTime           float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		pairingDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchesStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesStarted++
}

func (m *Mock) IncMatchesFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesFinished++
}

func (m *Mock) IncPreconditionConflicts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preconditionConflicts++
}

func (m *Mock) IncScoresSubmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoresSubmitted++
}

func (m *Mock) ObservePairingDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairingDurations = append(m.pairingDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesStarted returns the number of times IncMatchesStarted was called.
func (m *Mock) MatchesStarted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesStarted
}

// MatchesFinished returns the number of times IncMatchesFinished was called.
func (m *Mock) MatchesFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesFinished
}

// PreconditionConflicts returns the number of recorded conflicts.
func (m *Mock) PreconditionConflicts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preconditionConflicts
}

// ScoresSubmitted returns the number of times IncScoresSubmitted was called.
func (m *Mock) ScoresSubmitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoresSubmitted
}

// SlackNotifSent returns the number of successful notification sends.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of failed notification sends.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
