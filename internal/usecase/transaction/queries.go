package transaction

import (
	"context"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	transactiondto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/transaction"
)

// GetTransaction returns the transaction as viewerID sees it. Anyone may view a PENDING
// transaction so they can join it; otherwise only participants may.
func (uc *DefaultTransactionUsecase) GetTransaction(ctx context.Context, transactionID, viewerID string) (*transactiondto.TransactionOutput, error) {
	tx, err := uc.Repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusPending && !tx.IsParticipant(viewerID) {
		return nil, domain.ErrTransactionNotFound
	}
	return output(tx, viewerID), nil
}

func (uc *DefaultTransactionUsecase) GetTransactionsByParticipant(ctx context.Context, userID string) ([]*transactiondto.TransactionOutput, error) {
	txs, err := uc.Repo.GetTransactionsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*transactiondto.TransactionOutput, 0, len(txs))
	for _, tx := range txs {
		out = append(out, output(tx, userID))
	}
	return out, nil
}

func output(tx *domain.Transaction, viewerID string) *transactiondto.TransactionOutput {
	role, _ := tx.RoleOf(viewerID)
	return &transactiondto.TransactionOutput{
		Transaction:      tx.Clone(),
		ViewerRole:       role,
		AvailableActions: AvailableActions(tx, viewerID),
	}
}
