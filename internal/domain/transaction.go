package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending                     TransactionStatus = "PENDING"
	StatusActive                      TransactionStatus = "ACTIVE"
	StatusWaitingForDeliveryDetails   TransactionStatus = "WAITING_FOR_DELIVERY_DETAILS"
	StatusDeliveryDetailsImported     TransactionStatus = "DELIVERY_DETAILS_IMPORTED"
	StatusWaitingForPayment           TransactionStatus = "WAITING_FOR_PAYMENT"
	StatusPaymentMade                 TransactionStatus = "PAYMENT_MADE"
	StatusWaitingForShipment          TransactionStatus = "WAITING_FOR_SHIPMENT"
	StatusShipmentConfirmed           TransactionStatus = "SHIPMENT_CONFIRMED"
	StatusWaitingForBuyerConfirmation TransactionStatus = "WAITING_FOR_BUYER_CONFIRMATION"
	StatusCompleted                   TransactionStatus = "COMPLETED"

	// Side states, reachable from any non-terminal status.
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusDisputed  TransactionStatus = "DISPUTED"
)

// orderedPath is the only direction a transaction may move in, apart from the side states.
var orderedPath = []TransactionStatus{
	StatusPending,
	StatusActive,
	StatusWaitingForDeliveryDetails,
	StatusDeliveryDetailsImported,
	StatusWaitingForPayment,
	StatusPaymentMade,
	StatusWaitingForShipment,
	StatusShipmentConfirmed,
	StatusWaitingForBuyerConfirmation,
	StatusCompleted,
}

// Index returns the position of the status on the ordered path, or -1 for side states.
func (s TransactionStatus) Index() int {
	for i, st := range orderedPath {
		if st == s {
			return i
		}
	}
	return -1
}

func (s TransactionStatus) IsSideState() bool {
	return s == StatusCancelled || s == StatusDisputed
}

// IsTerminal reports whether no participant action can move the transaction any more.
// DISPUTED is frozen rather than terminal: only dispute resolution leaves it.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

func (r Role) Opposite() Role {
	if r == RoleBuyer {
		return RoleSeller
	}
	return RoleBuyer
}

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

type Transaction struct {
	ID             string  `json:"id"`
	CreatorID      string  `json:"creatorId"`
	CounterpartyID *string `json:"counterpartyId,omitempty"`
	CreatorRole    Role    `json:"creatorRole"`

	Price    decimal.Decimal `json:"price"`
	Fee      decimal.Decimal `json:"fee"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`

	UseCourier bool              `json:"useCourier"`
	Status     TransactionStatus `json:"status"`
	// StatusBeforeDispute is where a RESUME resolution returns the transaction to.
	StatusBeforeDispute TransactionStatus `json:"statusBeforeDispute,omitempty"`
	Version             int64             `json:"version"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	JoinedAt    *time.Time `json:"joinedAt,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	DisputedAt  *time.Time `json:"disputedAt,omitempty"`
}

// RoleOf resolves the participant role of userID; ok is false for non-members.
func (t *Transaction) RoleOf(userID string) (role Role, ok bool) {
	if userID == "" {
		return "", false
	}
	if userID == t.CreatorID {
		return t.CreatorRole, true
	}
	if t.CounterpartyID != nil && *t.CounterpartyID == userID {
		return t.CreatorRole.Opposite(), true
	}
	return "", false
}

func (t *Transaction) IsParticipant(userID string) bool {
	_, ok := t.RoleOf(userID)
	return ok
}

// OtherParty returns the participant opposite to userID, if joined.
func (t *Transaction) OtherParty(userID string) *string {
	if userID == t.CreatorID {
		return t.CounterpartyID
	}
	if t.CounterpartyID != nil && *t.CounterpartyID == userID {
		creator := t.CreatorID
		return &creator
	}
	return nil
}

func (t *Transaction) BuyerID() string {
	if t.CreatorRole == RoleBuyer {
		return t.CreatorID
	}
	if t.CounterpartyID != nil {
		return *t.CounterpartyID
	}
	return ""
}

func (t *Transaction) SellerID() string {
	if t.CreatorRole == RoleSeller {
		return t.CreatorID
	}
	if t.CounterpartyID != nil {
		return *t.CounterpartyID
	}
	return ""
}

// Clone returns a deep copy so callers can mutate without touching a stored record.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.CounterpartyID = cloneString(t.CounterpartyID)
	c.JoinedAt = cloneTime(t.JoinedAt)
	c.PaidAt = cloneTime(t.PaidAt)
	c.ShippedAt = cloneTime(t.ShippedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.CancelledAt = cloneTime(t.CancelledAt)
	c.DisputedAt = cloneTime(t.DisputedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TransactionAction is a participant request against a transaction.
type TransactionAction string

const (
	ActionJoin                   TransactionAction = "join"
	ActionBegin                  TransactionAction = "begin"
	ActionProvideDeliveryDetails TransactionAction = "provide_delivery_details"
	ActionMakePayment            TransactionAction = "make_payment"
	ActionConfirmShipment        TransactionAction = "confirm_shipment"
	ActionConfirmReceipt         TransactionAction = "confirm_receipt"
	ActionCancel                 TransactionAction = "cancel"
	ActionRaiseDispute           TransactionAction = "raise_dispute"
)

// CanBeDisputed reports whether a dispute may be raised against the transaction in its
// current state.
func (t *Transaction) CanBeDisputed() bool {
	return t.CounterpartyID != nil && !t.Status.IsTerminal() && t.Status != StatusDisputed
}

// EnterDispute freezes the transaction and remembers where it was.
func (t *Transaction) EnterDispute(now time.Time) {
	t.StatusBeforeDispute = t.Status
	t.Status = StatusDisputed
	t.DisputedAt = &now
	t.UpdatedAt = now
	t.Version++
}

// SettleDispute applies a dispute outcome and reports whether the transaction changed.
// Only a DISPUTED transaction is settled.
func (t *Transaction) SettleDispute(outcome ResolutionOutcome, now time.Time) bool {
	if t.Status != StatusDisputed {
		return false
	}
	switch outcome {
	case OutcomeRelease:
		t.Status = StatusCompleted
		t.CompletedAt = &now
	case OutcomeRefund:
		t.Status = StatusCancelled
		t.CancelledAt = &now
	default:
		t.Status = t.StatusBeforeDispute
		if t.Status == "" {
			t.Status = StatusActive
		}
	}
	t.StatusBeforeDispute = ""
	t.UpdatedAt = now
	t.Version++
	return true
}
