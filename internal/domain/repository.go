package domain

import "context"

// Saves are optimistic: the caller bumps Version before saving, a record with Version 1 is
// inserted, any other version must replace exactly Version-1 or ErrVersionConflict is returned.

type TransactionRepository interface {
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	GetTransactionsByParticipant(ctx context.Context, userID string) ([]*Transaction, error)
	SaveTransaction(ctx context.Context, tx *Transaction) error
}

type DisputeRepository interface {
	GetDispute(ctx context.Context, id string) (*Dispute, error)
	GetActiveDisputeByTransaction(ctx context.Context, transactionID string) (*Dispute, error)
	GetDisputesByParticipant(ctx context.Context, userID string) ([]*Dispute, error)
	// ListOpenDisputes returns every dispute that is not CLOSED.
	ListOpenDisputes(ctx context.Context) ([]*Dispute, error)
	SaveDispute(ctx context.Context, dispute *Dispute) error
}

type Repository interface {
	TransactionRepository
	DisputeRepository
	// ApplyDisputeOperation persists a dispute and its transaction in one atomic step.
	ApplyDisputeOperation(ctx context.Context, dispute *Dispute, tx *Transaction) error
}

type WorkflowRuleRepository interface {
	ListRules(ctx context.Context) ([]WorkflowRule, error)
	// SaveRule inserts the rule or replaces the stored rule with the same id.
	SaveRule(ctx context.Context, rule *WorkflowRule) error
}

type FiredKeyStore interface {
	// MarkFired records the key and reports whether this call was the one that recorded it.
	MarkFired(ctx context.Context, key FiredKey) (bool, error)
	IsFired(ctx context.Context, key FiredKey) (bool, error)
	// Release forgets one key so the action can run again.
	Release(ctx context.Context, key FiredKey) error
	// Reset forgets every key of a rule for an entity.
	Reset(ctx context.Context, ruleID, entityID string) error
}

type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]AdminWorkload, error)
	// UpdateWorkload adds delta to the admin's load; it fails with ErrAdminAtCapacity
	// when the result would leave [0, maxLoad].
	UpdateWorkload(ctx context.Context, adminID string, delta int) error
}
