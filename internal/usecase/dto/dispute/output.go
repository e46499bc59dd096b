package disputedto

import "github.com/LavaJover/shvark-escrow-service/internal/domain"

type GetParticipantDisputesOutput struct {
	Disputes   []domain.DisputeView
	Pagination Pagination
}

type Pagination struct {
	CurrentPage  int32
	TotalPages   int32
	TotalItems   int32
	ItemsPerPage int32
}
