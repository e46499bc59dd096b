// Package memory holds in-process implementations of the domain stores, used for the
// memory storage driver and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

type Repository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	disputes     map[string]*domain.Dispute
}

func NewRepository() *Repository {
	return &Repository{
		transactions: make(map[string]*domain.Transaction),
		disputes:     make(map[string]*domain.Dispute),
	}
}

// ============= TRANSACTIONS =============

func (r *Repository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

func (r *Repository) GetTransactionsByParticipant(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Transaction
	for _, tx := range r.transactions {
		if tx.IsParticipant(userID) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkTransactionVersion(tx); err != nil {
		return err
	}
	r.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r *Repository) checkTransactionVersion(tx *domain.Transaction) error {
	stored, ok := r.transactions[tx.ID]
	if tx.Version <= 1 {
		if ok {
			return domain.ErrAlreadyExists
		}
		return nil
	}
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if stored.Version != tx.Version-1 {
		return domain.ErrVersionConflict
	}
	return nil
}

// ============= DISPUTES =============

func (r *Repository) GetDispute(ctx context.Context, id string) (*domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, domain.ErrDisputeNotFound
	}
	return d.Clone(), nil
}

func (r *Repository) GetActiveDisputeByTransaction(ctx context.Context, transactionID string) (*domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.disputes {
		if d.TransactionID == transactionID && d.Status.IsActive() {
			return d.Clone(), nil
		}
	}
	return nil, domain.ErrDisputeNotFound
}

func (r *Repository) GetDisputesByParticipant(ctx context.Context, userID string) ([]*domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Dispute
	for _, d := range r.disputes {
		if d.IsParticipant(userID) {
			out = append(out, d.Clone())
		}
	}
	sortDisputes(out)
	return out, nil
}

func (r *Repository) ListOpenDisputes(ctx context.Context) ([]*domain.Dispute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Dispute
	for _, d := range r.disputes {
		if d.Status != domain.DisputeClosed {
			out = append(out, d.Clone())
		}
	}
	sortDisputes(out)
	return out, nil
}

func (r *Repository) SaveDispute(ctx context.Context, dispute *domain.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkDispute(dispute); err != nil {
		return err
	}
	r.disputes[dispute.ID] = dispute.Clone()
	return nil
}

// ApplyDisputeOperation validates both records before writing either.
func (r *Repository) ApplyDisputeOperation(ctx context.Context, dispute *domain.Dispute, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkDispute(dispute); err != nil {
		return err
	}
	if tx != nil {
		if err := r.checkTransactionVersion(tx); err != nil {
			return err
		}
		r.transactions[tx.ID] = tx.Clone()
	}
	r.disputes[dispute.ID] = dispute.Clone()
	return nil
}

func (r *Repository) checkDispute(d *domain.Dispute) error {
	stored, ok := r.disputes[d.ID]
	if d.Version <= 1 {
		if ok {
			return domain.ErrAlreadyExists
		}
		for _, other := range r.disputes {
			if other.TransactionID == d.TransactionID && other.Status.IsActive() {
				return domain.ErrActiveDisputeExists
			}
		}
		return nil
	}
	if !ok {
		return domain.ErrDisputeNotFound
	}
	if stored.Version != d.Version-1 {
		return domain.ErrVersionConflict
	}
	return nil
}

// oldest first, so a tick walks disputes in arrival order
func sortDisputes(ds []*domain.Dispute) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].ID < ds[j].ID
		}
		return ds[i].CreatedAt.Before(ds[j].CreatedAt)
	})
}
