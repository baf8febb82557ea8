// Package mocks provides test doubles for the llm interfaces.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/schemaflow/llm"
)

// scripted is one queued mock outcome.
type scripted struct {
	resp *llm.ChatResponse
	err  error
}

// MockProvider is a scriptable llm.Provider. Outcomes queued with the
// WillReturn builders are served in order; once the script runs out the
// last outcome repeats, so a single queued failure models a provider
// that keeps failing.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	script    []scripted
	requests  []*llm.ChatRequest
	healthErr error
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{name: "mock"}
}

// WithName overrides the provider name.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WillReturnText queues a response carrying text in the choices layout.
func (m *MockProvider) WillReturnText(text string) *MockProvider {
	return m.WillReturnResponse(&llm.ChatResponse{
		Model: "mock-model",
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
		}},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	})
}

// WillReturnFlatText queues a response carrying text only in the legacy
// flat field.
func (m *MockProvider) WillReturnFlatText(text string) *MockProvider {
	return m.WillReturnResponse(&llm.ChatResponse{Model: "mock-model", Text: text})
}

// WillReturnEmpty queues a response with no usable text in either
// layout.
func (m *MockProvider) WillReturnEmpty() *MockProvider {
	return m.WillReturnResponse(&llm.ChatResponse{Model: "mock-model"})
}

// WillReturnResponse queues an arbitrary response.
func (m *MockProvider) WillReturnResponse(resp *llm.ChatResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{resp: resp})
	return m
}

// WillReturnError queues a failure.
func (m *MockProvider) WillReturnError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// WillFailHealthCheck makes HealthCheck report the given error.
func (m *MockProvider) WillFailHealthCheck(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
	return m
}

// Completion serves the next scripted outcome.
func (m *MockProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return nil, errors.New("mock provider has no scripted responses")
	}

	next := m.script[0]
	if len(m.script) > 1 {
		m.script = m.script[1:]
	}
	return next.resp, next.err
}

// HealthCheck reports healthy unless a failure was scripted with
// WillFailHealthCheck.
func (m *MockProvider) HealthCheck(_ context.Context) (*llm.HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.healthErr != nil {
		return &llm.HealthStatus{Healthy: false, Message: m.healthErr.Error()}, m.healthErr
	}
	return &llm.HealthStatus{Healthy: true}, nil
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Calls returns how many times Completion was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests in call order.
func (m *MockProvider) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
