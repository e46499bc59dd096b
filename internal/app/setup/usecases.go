package setup

import (
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/admin"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/keylock"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/sla"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/transaction"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/workflow"
	"github.com/shopspring/decimal"
)

type UseCases struct {
	TransactionUsecase *transaction.DefaultTransactionUsecase
	DisputeUsecase     *dispute.DefaultDisputeUsecase
	Balancer           *admin.Balancer
	SLA                *sla.Calculator
	Publisher          *publish.Publisher
	RuleManager        *workflow.RuleManager
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	cfg := deps.Config
	locks := keylock.New()
	publisher := publish.New(deps.Gateway, deps.Logger)
	calculator := sla.NewCalculator(cfg.SLA)
	balancer := admin.NewBalancer(deps.Repositories.Admins, deps.Metrics, deps.Logger)

	transactionUsecase := transaction.NewDefaultTransactionUsecase(
		deps.Repositories.Escrow,
		locks,
		publisher,
		deps.Clock,
		transaction.FeePolicy{
			Percent: decimal.NewFromFloat(cfg.Fees.Percent),
			MinFee:  decimal.NewFromFloat(cfg.Fees.MinFee),
		},
		deps.Metrics,
		deps.Logger,
	)

	disputeUsecase := dispute.NewDefaultDisputeUsecase(
		deps.Repositories.Escrow,
		locks,
		balancer,
		calculator,
		publisher,
		deps.Clock,
		deps.Logger,
	)

	return &UseCases{
		TransactionUsecase: transactionUsecase,
		DisputeUsecase:     disputeUsecase,
		Balancer:           balancer,
		SLA:                calculator,
		Publisher:          publisher,
		RuleManager:        workflow.NewRuleManager(deps.Repositories.Rules, deps.Clock, deps.Logger),
	}
}
