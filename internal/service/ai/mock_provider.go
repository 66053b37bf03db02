package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sadat-shakeeb/gemini-partner/backend/internal/model/catalog"
)

// MockTurn scripts one upstream call: Fragments are emitted, then Err is returned.
type MockTurn struct {
	Fragments []string
	Err       error
	Delay     time.Duration // wait before the first fragment
}

// MockProvider is a scripted Provider for tests. It records every request.
type MockProvider struct {
	mu       sync.Mutex
	name     string
	turns    []MockTurn
	requests []Request
	models   []catalog.Model
}

// NewMockProvider returns a provider that plays turns in order, one per call.
func NewMockProvider(turns ...MockTurn) *MockProvider {
	return &MockProvider{name: "Gemini", turns: turns, models: catalog.Seed("mock-model")}
}

// WithModels sets the catalog returned by ListModels.
func (m *MockProvider) WithModels(models []catalog.Model) *MockProvider {
	m.models = models
	return m
}

func (m *MockProvider) Name() string { return m.name }

// Generate implements Provider.
func (m *MockProvider) Generate(ctx context.Context, req Request, emit func(string) error) error {
	m.mu.Lock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	if idx >= len(m.turns) {
		m.mu.Unlock()
		return fmt.Errorf("mock provider: no turn configured for call %d", idx+1)
	}
	turn := m.turns[idx]
	m.mu.Unlock()

	if turn.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(turn.Delay):
		}
	}

	for _, fragment := range turn.Fragments {
		if err := emit(fragment); err != nil {
			return err
		}
	}
	return turn.Err
}

// ListModels implements Provider.
func (m *MockProvider) ListModels(context.Context) ([]catalog.Model, error) {
	return append([]catalog.Model(nil), m.models...), nil
}

// Calls returns how many upstream calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
