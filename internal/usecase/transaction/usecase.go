package transaction

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/metrics"
	transactiondto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/transaction"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/keylock"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/shopspring/decimal"
)

type TransactionUsecase interface {
	CreateTransaction(ctx context.Context, input *transactiondto.CreateTransactionInput) (*domain.Transaction, error)
	// Transition applies a participant action, join included.
	Transition(ctx context.Context, input *transactiondto.TransitionInput) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, transactionID, viewerID string) (*transactiondto.TransactionOutput, error)
	GetTransactionsByParticipant(ctx context.Context, userID string) ([]*transactiondto.TransactionOutput, error)
}

// FeePolicy is the escrow fee: Percent of the price, never below MinFee.
type FeePolicy struct {
	Percent decimal.Decimal
	MinFee  decimal.Decimal
}

type DefaultTransactionUsecase struct {
	Repo      domain.TransactionRepository
	Locks     *keylock.Locker
	Publisher *publish.Publisher
	Clock     domain.Clock
	Fees      FeePolicy
	Metrics   *metrics.EscrowMetrics
	Logger    *slog.Logger
}

func NewDefaultTransactionUsecase(
	repo domain.TransactionRepository,
	locks *keylock.Locker,
	publisher *publish.Publisher,
	clock domain.Clock,
	fees FeePolicy,
	escrowMetrics *metrics.EscrowMetrics,
	logger *slog.Logger,
) *DefaultTransactionUsecase {
	if locks == nil {
		locks = keylock.New()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultTransactionUsecase{
		Repo:      repo,
		Locks:     locks,
		Publisher: publisher,
		Clock:     clock,
		Fees:      fees,
		Metrics:   escrowMetrics,
		Logger:    logger,
	}
}

// LockKey is the per-transaction lock key shared with the dispute usecase.
func LockKey(transactionID string) string {
	return "tx:" + transactionID
}
