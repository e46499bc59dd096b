package transaction

import (
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// guard is one row of the transition table. An empty role means either participant.
type guard struct {
	role domain.Role
	from []domain.TransactionStatus
	// via is the intermediate status the step passes through, recorded on the timeline.
	via   domain.TransactionStatus
	to    func(tx *domain.Transaction) domain.TransactionStatus
	stamp func(tx *domain.Transaction, now time.Time)
}

func fixed(status domain.TransactionStatus) func(*domain.Transaction) domain.TransactionStatus {
	return func(*domain.Transaction) domain.TransactionStatus { return status }
}

// cancellable is every status before PAYMENT_MADE.
var cancellable = []domain.TransactionStatus{
	domain.StatusPending,
	domain.StatusActive,
	domain.StatusWaitingForDeliveryDetails,
	domain.StatusDeliveryDetailsImported,
	domain.StatusWaitingForPayment,
}

var guards = map[domain.TransactionAction]guard{
	domain.ActionBegin: {
		from: []domain.TransactionStatus{domain.StatusActive},
		to: func(tx *domain.Transaction) domain.TransactionStatus {
			if tx.UseCourier {
				return domain.StatusWaitingForDeliveryDetails
			}
			return domain.StatusWaitingForPayment
		},
	},
	domain.ActionProvideDeliveryDetails: {
		role: domain.RoleBuyer,
		from: []domain.TransactionStatus{domain.StatusWaitingForDeliveryDetails},
		via:  domain.StatusDeliveryDetailsImported,
		to:   fixed(domain.StatusWaitingForPayment),
	},
	domain.ActionMakePayment: {
		role: domain.RoleBuyer,
		from: []domain.TransactionStatus{domain.StatusWaitingForPayment},
		via:  domain.StatusPaymentMade,
		to: func(tx *domain.Transaction) domain.TransactionStatus {
			if tx.UseCourier {
				return domain.StatusWaitingForShipment
			}
			return domain.StatusWaitingForBuyerConfirmation
		},
		stamp: func(tx *domain.Transaction, now time.Time) { tx.PaidAt = &now },
	},
	domain.ActionConfirmShipment: {
		role:  domain.RoleSeller,
		from:  []domain.TransactionStatus{domain.StatusWaitingForShipment},
		via:   domain.StatusShipmentConfirmed,
		to:    fixed(domain.StatusWaitingForBuyerConfirmation),
		stamp: func(tx *domain.Transaction, now time.Time) { tx.ShippedAt = &now },
	},
	domain.ActionConfirmReceipt: {
		role:  domain.RoleBuyer,
		from:  []domain.TransactionStatus{domain.StatusWaitingForBuyerConfirmation},
		to:    fixed(domain.StatusCompleted),
		stamp: func(tx *domain.Transaction, now time.Time) { tx.CompletedAt = &now },
	},
	domain.ActionCancel: {
		from:  cancellable,
		to:    fixed(domain.StatusCancelled),
		stamp: func(tx *domain.Transaction, now time.Time) { tx.CancelledAt = &now },
	},
}

func (g guard) allows(status domain.TransactionStatus) bool {
	for _, s := range g.from {
		if s == status {
			return true
		}
	}
	return false
}

// checkGuard validates actor and status for a table action. Role is checked first so a
// non-member learns nothing about the transaction's progress.
func checkGuard(tx *domain.Transaction, actorID string, action domain.TransactionAction) (guard, error) {
	g, ok := guards[action]
	if !ok {
		return guard{}, domain.NewTransitionError(domain.ReasonWrongStatus, tx.ID, string(action), "unknown action")
	}
	role, member := tx.RoleOf(actorID)
	if !member {
		return guard{}, domain.NewTransitionError(domain.ReasonWrongRole, tx.ID, string(action), "actor is not a participant")
	}
	if g.role != "" && role != g.role {
		return guard{}, domain.NewTransitionError(domain.ReasonWrongRole, tx.ID, string(action),
			"requires "+string(g.role)+", actor is "+string(role))
	}
	if !g.allows(tx.Status) {
		return guard{}, domain.NewTransitionError(domain.ReasonWrongStatus, tx.ID, string(action),
			"not allowed from "+string(tx.Status))
	}
	return g, nil
}

// checkJoin validates a join request.
func checkJoin(tx *domain.Transaction, actorID string) error {
	action := string(domain.ActionJoin)
	if actorID == "" || actorID == tx.CreatorID {
		return domain.NewTransitionError(domain.ReasonWrongRole, tx.ID, action, "creator cannot join own transaction")
	}
	if tx.CounterpartyID != nil {
		return domain.NewTransitionError(domain.ReasonAlreadyJoined, tx.ID, action, "counterparty slot is taken")
	}
	if tx.Status != domain.StatusPending {
		return domain.NewTransitionError(domain.ReasonWrongStatus, tx.ID, action, "not allowed from "+string(tx.Status))
	}
	return nil
}

// AvailableActions lists the actions userID may request against tx right now.
func AvailableActions(tx *domain.Transaction, userID string) []domain.TransactionAction {
	var out []domain.TransactionAction
	if checkJoin(tx, userID) == nil {
		out = append(out, domain.ActionJoin)
	}
	for _, action := range actionOrder {
		if _, err := checkGuard(tx, userID, action); err == nil {
			out = append(out, action)
		}
	}
	if tx.IsParticipant(userID) && tx.CanBeDisputed() {
		out = append(out, domain.ActionRaiseDispute)
	}
	return out
}

var actionOrder = []domain.TransactionAction{
	domain.ActionBegin,
	domain.ActionProvideDeliveryDetails,
	domain.ActionMakePayment,
	domain.ActionConfirmShipment,
	domain.ActionConfirmReceipt,
	domain.ActionCancel,
}
