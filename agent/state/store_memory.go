package state

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps session records in process. Records hold raw JSON so
// tests can seed corrupt entries.
type MemoryStore struct {
	mu      sync.Mutex
	opts    storeOptions
	records map[string]*record
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	return &MemoryStore{
		opts:    buildOptions(opts),
		records: make(map[string]*record),
	}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Session, error) {
	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return NewSession(sessionID, m.opts.now()), nil
	}
	return rec.toSession(m.opts.logger), nil
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, msgs []Message) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var current *record
	if rec, ok := m.records[sessionID]; ok {
		cp := *rec
		cp.Messages = append([]json.RawMessage(nil), rec.Messages...)
		current = &cp
	}
	next, err := appendToRecord(current, sessionID, msgs, m.opts)
	if err != nil {
		return err
	}
	m.records[sessionID] = next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}

// SeedRaw appends raw stored messages without validation.
func (m *MemoryStore) SeedRaw(sessionID string, raws ...json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		now := m.opts.now()
		rec = &record{ID: sessionID, PartitionKey: m.opts.partitionKey, CreatedAt: now, UpdatedAt: now}
		m.records[sessionID] = rec
	}
	rec.Messages = append(rec.Messages, raws...)
}
