package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps records in process memory. Stored and returned
// records are copies, so callers never share resume slices with it.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]ResumeRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]ResumeRecord)}
}

func (m *MemoryRepository) SaveResume(_ context.Context, rec *ResumeRecord) error {
	prepare(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = clone(*rec)
	return nil
}

func (m *MemoryRepository) GetResume(_ context.Context, id uuid.UUID) (ResumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return ResumeRecord{}, ErrNotFound
	}
	return clone(rec), nil
}

func (m *MemoryRepository) ListResumes(_ context.Context, limit int) ([]ResumeRecord, error) {
	m.mu.RLock()
	out := make([]ResumeRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, clone(rec))
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b ResumeRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) DeleteResume(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func clone(rec ResumeRecord) ResumeRecord {
	rec.Original = rec.Original.Clone()
	rec.Tailored = rec.Tailored.Clone()
	return rec
}
