package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/shared/interfaces"
	"storefront/shared/models"
)

type memorySession struct {
	meta      models.SessionMetadata
	expiresAt time.Time
}

// MemorySessions is an in-memory SessionRepository with expiry driven by Clock.
// Set Err to make every call fail.
type MemorySessions struct {
	mu       sync.Mutex
	clock    *Clock
	sessions map[string]memorySession
	Err      error
}

var _ interfaces.SessionRepository = (*MemorySessions)(nil)

func NewMemorySessions(clock *Clock) *MemorySessions {
	return &MemorySessions{clock: clock, sessions: make(map[string]memorySession)}
}

func key(userID, tokenID string) string {
	return "session:" + userID + ":" + tokenID
}

func (m *MemorySessions) Save(_ context.Context, userID, tokenID string, meta models.SessionMetadata, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sessions[key(userID, tokenID)] = memorySession{meta: meta, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemorySessions) Get(_ context.Context, userID, tokenID string) (*models.SessionMetadata, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	s, ok := m.live(key(userID, tokenID))
	if !ok {
		return nil, false, nil
	}
	meta := s.meta
	return &meta, true, nil
}

func (m *MemorySessions) Delete(_ context.Context, userID, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	k := key(userID, tokenID)
	_, removed := m.live(k)
	delete(m.sessions, k)
	return removed, nil
}

func (m *MemorySessions) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	prefix := key(userID, "")
	for k := range m.sessions {
		if strings.HasPrefix(k, prefix) {
			if _, ok := m.live(k); ok {
				n++
			}
			delete(m.sessions, k)
		}
	}
	return n, nil
}

func (m *MemorySessions) List(_ context.Context, userID string) ([]models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	prefix := key(userID, "")
	var out []models.SessionRecord
	for k := range m.sessions {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		s, ok := m.live(k)
		if !ok {
			continue
		}
		out = append(out, models.SessionRecord{
			UserID:   userID,
			TokenID:  strings.TrimPrefix(k, prefix),
			Metadata: s.meta,
			TTL:      s.expiresAt.Sub(m.clock.Now()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.CreatedAt.After(out[j].Metadata.CreatedAt) })
	return out, nil
}

// Count returns the number of live sessions of the user.
func (m *MemorySessions) Count(userID string) int {
	records, _ := m.List(context.Background(), userID)
	return len(records)
}

// live must be called with mu held.
func (m *MemorySessions) live(k string) (memorySession, bool) {
	s, ok := m.sessions[k]
	if !ok {
		return memorySession{}, false
	}
	if !m.clock.Now().Before(s.expiresAt) {
		delete(m.sessions, k)
		return memorySession{}, false
	}
	return s, true
}
