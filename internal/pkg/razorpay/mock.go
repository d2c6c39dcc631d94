package razorpay

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Provider for tests.
type MockClient struct {
	mu            sync.Mutex
	subscriptions map[string]*SubscriptionState
	nextID        int

	// Set to make the matching call fail.
	CreateErr error
	FetchErr  error
	CancelErr error

	// Now is the unix time recorded as ended_at on cancel.
	Now int64

	CancelCalls []MockCancelCall
}

type MockCancelCall struct {
	ID        string
	Immediate bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		subscriptions: make(map[string]*SubscriptionState),
		Now:           1700000000,
	}
}

func (m *MockClient) KeyID() string {
	return "rzp_test_mock"
}

func (m *MockClient) CreateSubscription(ctx context.Context, planID string, quantity, totalCount int) (*SubscriptionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, &ProviderError{Op: "create", Err: m.CreateErr}
	}

	m.nextID++
	q, tc, paid := quantity, totalCount, 0
	state := &SubscriptionState{
		ID:         fmt.Sprintf("sub_mock_%d", m.nextID),
		PlanID:     planID,
		Status:     "created",
		ShortURL:   fmt.Sprintf("https://rzp.io/i/mock%d", m.nextID),
		Quantity:   &q,
		TotalCount: &tc,
		PaidCount:  &paid,
	}
	m.subscriptions[state.ID] = state
	return m.snapshot(state), nil
}

func (m *MockClient) FetchSubscription(ctx context.Context, id string) (*SubscriptionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FetchErr != nil {
		return nil, &ProviderError{Op: "fetch", Err: m.FetchErr}
	}
	state, ok := m.subscriptions[id]
	if !ok {
		return nil, &ProviderError{Op: "fetch", Err: fmt.Errorf("subscription %s does not exist", id)}
	}
	return m.snapshot(state), nil
}

func (m *MockClient) CancelSubscription(ctx context.Context, id string, immediate bool) (*SubscriptionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelCalls = append(m.CancelCalls, MockCancelCall{ID: id, Immediate: immediate})
	if m.CancelErr != nil {
		return nil, &ProviderError{Op: "cancel", Err: m.CancelErr}
	}
	state, ok := m.subscriptions[id]
	if !ok {
		return nil, &ProviderError{Op: "cancel", Err: fmt.Errorf("subscription %s does not exist", id)}
	}
	state.Status = "cancelled"
	now := m.Now
	state.EndedAt = &now
	if immediate {
		state.EndAt = &now
	}
	return m.snapshot(state), nil
}

// Put stores or replaces the provider-side state, simulating changes made by the provider.
func (m *MockClient) Put(state *SubscriptionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.subscriptions[state.ID] = &cp
}

// snapshot copies state and fills Raw the way the real client does.
func (m *MockClient) snapshot(state *SubscriptionState) *SubscriptionState {
	cp := *state
	cp.Raw = map[string]interface{}{
		"id":      cp.ID,
		"plan_id": cp.PlanID,
		"status":  cp.Status,
	}
	if cp.ShortURL != "" {
		cp.Raw["short_url"] = cp.ShortURL
	}
	return &cp
}
