package model

import (
	"time"

	"github.com/google/uuid"
)

type AgreementStatus string

const (
	AgreementStatusDraft    AgreementStatus = "DRAFT"
	AgreementStatusPending  AgreementStatus = "PENDING"
	AgreementStatusApproved AgreementStatus = "APPROVED"
	AgreementStatusRejected AgreementStatus = "REJECTED"
)

// AgreementEvent is an action that moves a supplementary agreement between statuses.
type AgreementEvent string

const (
	AgreementEventSend    AgreementEvent = "send"
	AgreementEventApprove AgreementEvent = "approve"
	AgreementEventReject  AgreementEvent = "reject"
	// AgreementEventReopen is raised by tariff changes on an approved agreement.
	AgreementEventReopen AgreementEvent = "reopen"
)

type AgreementTransition struct {
	Event AgreementEvent
	Src   AgreementStatus
	Dst   AgreementStatus
}

// AgreementTransitions is the complete agreement lifecycle. REJECTED has no
// outgoing edge.
var AgreementTransitions = []AgreementTransition{
	{Event: AgreementEventSend, Src: AgreementStatusDraft, Dst: AgreementStatusPending},
	{Event: AgreementEventApprove, Src: AgreementStatusPending, Dst: AgreementStatusApproved},
	{Event: AgreementEventReject, Src: AgreementStatusPending, Dst: AgreementStatusRejected},
	{Event: AgreementEventReopen, Src: AgreementStatusApproved, Dst: AgreementStatusPending},
}

type SupplementaryAgreement struct {
	ID              uuid.UUID       `json:"id"`
	ContractID      uuid.UUID       `json:"contractId"`
	AgreementNumber string          `json:"agreementNumber"`
	ProposedBy      PartySide       `json:"proposedBy"`
	Status          AgreementStatus `json:"status"`
	ValidFrom       *time.Time      `json:"validFrom,omitempty"`
	ValidTo         *time.Time      `json:"validTo,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedByID     *uuid.UUID      `json:"createdById,omitempty"`
	ApprovedByID    *uuid.UUID      `json:"approvedById,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time      `json:"rejectedAt,omitempty"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Tariffs         []RouteTariff   `json:"tariffs" gorm:"-"`
}

// AgreementWithParties is an agreement joined with the parties of its contract.
type AgreementWithParties struct {
	Agreement SupplementaryAgreement
	Parties   ContractParties
}
