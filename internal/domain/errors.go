package domain

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrDisputeNotFound          = errors.New("dispute not found")
	ErrAdminNotFound            = errors.New("admin not found")
	ErrVersionConflict          = errors.New("record was modified concurrently")
	ErrAlreadyExists            = errors.New("record already exists")
	ErrRepositoryUnavailable    = errors.New("repository unavailable")
	ErrActiveDisputeExists      = errors.New("transaction already has an active dispute")
	ErrInvalidDisputeTransition = errors.New("invalid dispute status transition")
	ErrNotDisputeParticipant    = errors.New("user is not a party to the dispute")
	ErrNoResolution             = errors.New("dispute has no proposed resolution")
	ErrNoAdminAvailable         = errors.New("no admin available")
	ErrAdminAtCapacity          = errors.New("admin workload limit reached")
	ErrInvalidInput             = errors.New("invalid input")
)

type TransitionReason string

const (
	ReasonWrongRole     TransitionReason = "wrong_role"
	ReasonWrongStatus   TransitionReason = "wrong_status"
	ReasonAlreadyJoined TransitionReason = "already_joined"
)

// TransitionError is returned for a rejected transaction transition. No state was changed.
type TransitionError struct {
	Reason        TransitionReason
	TransactionID string
	Action        string
	Detail        string
}

func (e *TransitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transition %s on %s rejected: %s: %s", e.Action, e.TransactionID, e.Reason, e.Detail)
	}
	return fmt.Sprintf("transition %s on %s rejected: %s", e.Action, e.TransactionID, e.Reason)
}

// Is lets errors.Is match on the reason alone, e.g. errors.Is(err, &TransitionError{Reason: ReasonWrongRole}).
func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*TransitionError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func (e *TransitionError) GRPCStatus() *status.Status {
	code := codes.FailedPrecondition
	switch e.Reason {
	case ReasonWrongRole:
		code = codes.PermissionDenied
	case ReasonAlreadyJoined:
		code = codes.AlreadyExists
	}
	st := status.New(code, e.Error())
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(e.Reason),
		Domain: "escrow.transaction",
		Metadata: map[string]string{
			"transaction_id": e.TransactionID,
			"action":         e.Action,
		},
	})
	if err != nil {
		return st
	}
	return withDetails
}

func NewTransitionError(reason TransitionReason, txID, action, detail string) *TransitionError {
	return &TransitionError{Reason: reason, TransactionID: txID, Action: action, Detail: detail}
}

// IsTransitionReason reports whether err is a TransitionError with the given reason.
func IsTransitionReason(err error, reason TransitionReason) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Reason == reason
}
