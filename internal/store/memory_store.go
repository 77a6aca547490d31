package store

import (
	"context"
	"sync"
	"time"

	"github.com/matheuscscp/integration-auth/internal/pairing"
)

type recordKey struct {
	configurationID  string
	applicationToken string
}

type record struct {
	token     pairing.AppToken
	expiresAt time.Time
}

// MemoryStore keeps token pairs in process. Session tokens are not checked
// since there is no platform to present them to.
type MemoryStore struct {
	maxSize       int
	ttl           time.Duration
	records       map[recordKey]*record
	evictionQueue []recordKey
	mu            sync.Mutex

	nowFunc func() time.Time
}

func NewMemoryStore(maxSize int, ttl time.Duration, nowFunc func() time.Time) *MemoryStore {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &MemoryStore{
		maxSize: maxSize,
		ttl:     ttl,
		records: make(map[recordKey]*record),
		nowFunc: nowFunc,
	}
}

func (m *MemoryStore) Save(_ context.Context, _, configurationID string, token *pairing.AppToken) error {
	key := recordKey{configurationID, token.ApplicationToken}

	m.mu.Lock()
	defer func() { m.collectGarbage(); m.mu.Unlock() }()

	r := &record{
		token:     *token,
		expiresAt: m.nowFunc().Add(m.ttl),
	}
	if _, ok := m.records[key]; ok {
		m.records[key] = r
		return nil
	}

	// Enforce maximum size.
	for m.maxSize > 0 && len(m.records) >= m.maxSize && len(m.evictionQueue) > 0 {
		oldest := m.evictionQueue[0]
		m.evictionQueue = m.evictionQueue[1:]
		delete(m.records, oldest)
	}

	m.records[key] = r
	m.evictionQueue = append(m.evictionQueue, key)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, _, configurationID, applicationToken string) (*pairing.AppToken, bool, error) {
	m.mu.Lock()
	r, ok := m.records[recordKey{configurationID, applicationToken}]
	m.collectGarbage()
	m.mu.Unlock()

	if !ok || !m.nowFunc().Before(r.expiresAt) {
		return nil, false, nil
	}
	t := r.token
	return &t, true, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) collectGarbage() {
	now := m.nowFunc()
	var evictionQueue []recordKey
	for _, key := range m.evictionQueue {
		r, ok := m.records[key]
		if !ok {
			continue
		}
		if now.Before(r.expiresAt) {
			evictionQueue = append(evictionQueue, key)
		} else {
			delete(m.records, key)
		}
	}
	m.evictionQueue = evictionQueue
}
