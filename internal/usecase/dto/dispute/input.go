package disputedto

import "github.com/LavaJover/shvark-escrow-service/internal/domain"

type RaiseDisputeInput struct {
	TransactionID string
	RaiserID      string
	DisputeType   string
	Reason        string
	// Priority defaults to MEDIUM.
	Priority domain.DisputePriority
}

type ChangeStatusInput struct {
	DisputeID string
	ActorID   string
	Status    domain.DisputeStatus
	// From, when set, rejects the change unless the dispute is still in that status.
	From    domain.DisputeStatus
	Details map[string]string
}

type ProposeResolutionInput struct {
	DisputeID  string
	AdminID    string
	Resolution string
	Outcome    domain.ResolutionOutcome
}

type GetParticipantDisputesInput struct {
	UserID string
	Page   int32
	Limit  int32
}
