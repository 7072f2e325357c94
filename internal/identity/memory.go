package identity

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store used for local runs without an identity
// provider and as a test double. It enforces the same uniqueness and
// existence semantics as the real provider.
type Memory struct {
	mu        sync.Mutex
	records   map[string]*Record
	passwords map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		records:   make(map[string]*Record),
		passwords: make(map[string]string),
	}
}

func (m *Memory) FindByID(ctx context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w (find %s)", ErrNotFound, id)
	}
	cp := cloneRecord(r)
	return &cp, nil
}

func (m *Memory) Create(ctx context.Context, id, email, password, displayName string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(password) < 8 {
		return nil, fmt.Errorf("%w (create %s)", ErrInvalidCredential, id)
	}
	for otherID, r := range m.records {
		if r.Email == email && otherID != id {
			return nil, fmt.Errorf("%w (create %s)", ErrDuplicateEmail, id)
		}
	}
	rec := &Record{ID: id, Email: email, DisplayName: displayName}
	m.records[id] = rec
	m.passwords[id] = password
	cp := cloneRecord(rec)
	return &cp, nil
}

func (m *Memory) Update(ctx context.Context, id, email, password, displayName string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w (update %s)", ErrNotFound, id)
	}
	rec.Email = email
	rec.DisplayName = displayName
	m.passwords[id] = password
	cp := cloneRecord(rec)
	return &cp, nil
}

func (m *Memory) SetClaims(ctx context.Context, id string, claims map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w (set claims %s)", ErrNotFound, id)
	}
	cp := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		cp[k] = v
	}
	rec.Claims = cp
	return nil
}

// Len returns the number of stored identities.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func cloneRecord(r *Record) Record {
	cp := *r
	if r.Claims != nil {
		cp.Claims = make(map[string]interface{}, len(r.Claims))
		for k, v := range r.Claims {
			cp.Claims[k] = v
		}
	}
	return cp
}
