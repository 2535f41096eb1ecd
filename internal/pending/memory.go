package pending

import (
	"context"
	"sync"
	"time"

	"pos-service/internal/models"
)

// MemoryStore is an in-memory Store for development and tests. It satisfies
// the same contract as the Redis store minus durability across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.SaleRecord
	failed  map[string]models.FailedSale
}

// NewMemoryStore creates an empty in-memory pending store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.SaleRecord),
		failed:  make(map[string]models.FailedSale),
	}
}

// Put stores a sale record keyed by bill ID
func (s *MemoryStore) Put(ctx context.Context, record *models.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.BillID] = *record
	return nil
}

// ListAll returns every record put and not yet removed
func (s *MemoryStore) ListAll(ctx context.Context) ([]models.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SaleRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Remove deletes a record by bill ID. Removing an absent ID is a no-op.
func (s *MemoryStore) Remove(ctx context.Context, billID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, billID)
	return nil
}

// Fail moves a record from the pending queue to the dead letter
func (s *MemoryStore) Fail(ctx context.Context, record *models.SaleRecord, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, record.BillID)
	s.failed[record.BillID] = models.FailedSale{
		Record:   *record,
		Reason:   reason,
		FailedAt: time.Now(),
	}
	return nil
}

// ListFailed returns all dead-lettered sales
func (s *MemoryStore) ListFailed(ctx context.Context) ([]models.FailedSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FailedSale, 0, len(s.failed))
	for _, f := range s.failed {
		out = append(out, f)
	}
	return out, nil
}

// Requeue moves a dead-lettered sale back into the pending queue
func (s *MemoryStore) Requeue(ctx context.Context, billID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failed[billID]
	if !ok {
		return ErrNotFound
	}
	delete(s.failed, billID)
	s.records[billID] = f.Record
	return nil
}

// Dismiss drops a dead-lettered sale for good
func (s *MemoryStore) Dismiss(ctx context.Context, billID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.failed[billID]; !ok {
		return ErrNotFound
	}
	delete(s.failed, billID)
	return nil
}
