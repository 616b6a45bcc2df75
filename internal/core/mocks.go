package core

import (
	"context"
	"sync"
	"time"

	"rootle/internal/types"
)

// MockCredentialResolver implements CredentialResolver for tests.
//
//	mock := &MockCredentialResolver{
//	    Profiles: map[string]types.AWSCredentials{"p1": creds},
//	    ActiveID: "p1",
//	}
type MockCredentialResolver struct {
	// Profiles maps profile IDs to credentials.
	Profiles map[string]types.AWSCredentials
	// ActiveID names the active profile; empty means none.
	ActiveID string
	// Err, when set, is returned by every call.
	Err error
}

// ProfileCredentials implements CredentialResolver.
func (m *MockCredentialResolver) ProfileCredentials(_ context.Context, id string) (types.AWSCredentials, error) {
	if m.Err != nil {
		return types.AWSCredentials{}, m.Err
	}
	creds, ok := m.Profiles[id]
	if !ok {
		return types.AWSCredentials{}, types.NewAppError(types.ErrCodeNotFoundProfile, "Profile not found: "+id, nil)
	}
	return creds, nil
}

// ActiveCredentials implements CredentialResolver.
func (m *MockCredentialResolver) ActiveCredentials(_ context.Context) (types.AWSCredentials, bool, error) {
	if m.Err != nil {
		return types.AWSCredentials{}, false, m.Err
	}
	if m.ActiveID == "" {
		return types.AWSCredentials{}, false, nil
	}
	creds, ok := m.Profiles[m.ActiveID]
	return creds, ok, nil
}

// MetricsCall is one recorded RecordRequest invocation.
type MetricsCall struct {
	Method, Route, Status string
	Duration              time.Duration
}

// MockMetricsCollector records every RecordRequest call.
type MockMetricsCollector struct {
	mu    sync.Mutex
	Calls []MetricsCall
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(method, route, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MetricsCall{Method: method, Route: route, Status: status, Duration: duration})
}

// Snapshot returns a copy of the recorded calls.
func (m *MockMetricsCollector) Snapshot() []MetricsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetricsCall(nil), m.Calls...)
}
