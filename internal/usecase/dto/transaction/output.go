package transactiondto

import "github.com/LavaJover/shvark-escrow-service/internal/domain"

// TransactionOutput is a transaction as seen by one participant.
type TransactionOutput struct {
	Transaction *domain.Transaction
	ViewerRole  domain.Role
	// AvailableActions lists what the viewer may request right now.
	AvailableActions []domain.TransactionAction
}
