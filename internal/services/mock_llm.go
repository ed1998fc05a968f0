package services

import (
	"context"
	"sync"
	"time"
)

// MockLLM is a scripted Provider for tests. Replies and errors are keyed by
// purpose; CompleteFunc, when set, overrides both.
type MockLLM struct {
	CompleteFunc func(ctx context.Context, req CompletionRequest) (string, error)
	Replies      map[Purpose]string
	Errors       map[Purpose]error
	Delay        time.Duration // honoured against the call context

	// Track calls for testing
	Calls []CompletionRequest

	mu sync.Mutex // protects all fields above
}

// NewMockLLM creates a mock that approves input, classifies everything with
// label and narrates a fixed line.
func NewMockLLM(label string) *MockLLM {
	return &MockLLM{
		Replies: map[Purpose]string{
			PurposeGuardRail:  "YES",
			PurposeClassify:   `{"classification": "` + label + `"}`,
			PurposeNarrate:    "The team springs into action.",
			PurposeConclusion: "PARAGRAPH1: It works out.\nPARAGRAPH2: Lessons are learned.",
			PurposeDebrief:    "You moved with intent.\n\nYou kept your team informed.",
		},
		Errors: make(map[Purpose]error),
		Calls:  make([]CompletionRequest, 0),
	}
}

func (m *MockLLM) Name() string { return "mock" }

// Complete mocks a provider call
func (m *MockLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.CompleteFunc
	delay := m.Delay
	reply, err := m.Replies[req.Purpose], m.Errors[req.Purpose]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// SetReply scripts the reply for one purpose.
func (m *MockLLM) SetReply(p Purpose, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Replies == nil {
		m.Replies = make(map[Purpose]string)
	}
	m.Replies[p] = reply
}

// SetError makes calls for one purpose fail.
func (m *MockLLM) SetError(p Purpose, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Errors == nil {
		m.Errors = make(map[Purpose]error)
	}
	m.Errors[p] = err
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLM) GetCalls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]CompletionRequest, len(m.Calls))
	copy(calls, m.Calls)
	return calls
}

// CallCount returns how many calls were made for a purpose.
func (m *MockLLM) CallCount(p Purpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Purpose == p {
			n++
		}
	}
	return n
}

// Reset clears all call tracking
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]CompletionRequest, 0)
}
