package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// --- Settlement Store Mock ---

// MockSettlementStore is an in-memory audit store enforcing the same
// first-writer-wins semantics as the real one.
type MockSettlementStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]payment.SettlementRecord

	RecordSettlementFunc func(ctx context.Context, rec payment.SettlementRecord) (payment.RecordOutcome, error)
}

func NewMockSettlementStore() *MockSettlementStore {
	return &MockSettlementStore{
		records: make(map[uuid.UUID]payment.SettlementRecord),
	}
}

func (m *MockSettlementStore) RecordSettlement(ctx context.Context, rec payment.SettlementRecord) (payment.RecordOutcome, error) {
	if m.RecordSettlementFunc != nil {
		return m.RecordSettlementFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.CorrelationID]; exists {
		return payment.RecordAlreadyExists, nil
	}
	m.records[rec.CorrelationID] = rec
	return payment.RecordInserted, nil
}

// Records returns a copy of all stored settlement records.
func (m *MockSettlementStore) Records() []payment.SettlementRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]payment.SettlementRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out
}

// Record returns the stored record for a correlation ID, if any.
func (m *MockSettlementStore) Record(id uuid.UUID) (payment.SettlementRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// --- Abandonment Store Mock ---

type MockAbandonmentStore struct {
	mu          sync.Mutex
	abandonment []payment.Abandonment

	RecordAbandonmentFunc func(ctx context.Context, a payment.Abandonment) error
}

func (m *MockAbandonmentStore) RecordAbandonment(ctx context.Context, a payment.Abandonment) error {
	if m.RecordAbandonmentFunc != nil {
		return m.RecordAbandonmentFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandonment = append(m.abandonment, a)
	return nil
}

func (m *MockAbandonmentStore) Abandoned() []payment.Abandonment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]payment.Abandonment, len(m.abandonment))
	copy(out, m.abandonment)
	return out
}

// --- Lock Mocks ---

// MockLock is an always-acquirable lock unless Held is set.
type MockLock struct {
	Held bool

	AcquireFunc func(ctx context.Context) (bool, error)
}

func (l *MockLock) Acquire(ctx context.Context) (bool, error) {
	if l.AcquireFunc != nil {
		return l.AcquireFunc(ctx)
	}
	return !l.Held, nil
}

func (l *MockLock) Release(ctx context.Context) error { return nil }

// MockLockFactory hands out MockLocks, one per key.
type MockLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockLock
}

func NewMockLockFactory() *MockLockFactory {
	return &MockLockFactory{locks: make(map[string]*MockLock)}
}

func (f *MockLockFactory) SetHeld(key string, held bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lock(key).Held = held
}

// PaymentLock returns the lock for a key, creating it on first use.
func (f *MockLockFactory) PaymentLock(key string) *MockLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lock(key)
}

func (f *MockLockFactory) lock(key string) *MockLock {
	if l, ok := f.locks[key]; ok {
		return l
	}
	l := &MockLock{}
	f.locks[key] = l
	return l
}
