// Package repository persists submitted inspections.
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vistoria/inspection/internal/models"
)

// ErrNotFound is returned when no inspection has the requested id.
var ErrNotFound = errors.New("inspection not found")

// Repository stores submitted inspections. Save assigns the id.
type Repository interface {
	Save(ctx context.Context, record models.Inspection) (string, error)
	Get(ctx context.Context, id string) (*models.Inspection, error)
	List(ctx context.Context, limit int) ([]models.Inspection, error)
	Close() error
}

// MemoryRepository keeps inspections in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]models.Inspection
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]models.Inspection)}
}

func (r *MemoryRepository) Save(ctx context.Context, record models.Inspection) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	record = record.Clone()
	record.ID = uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return record.ID, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := record.Clone()
	return &out, nil
}

// List returns up to limit inspections, most recently submitted first.
// A non-positive limit returns all of them.
func (r *MemoryRepository) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]models.Inspection, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Close() error { return nil }
