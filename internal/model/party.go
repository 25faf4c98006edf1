package model

import "github.com/google/uuid"

// PartySide names one side of a contract. It doubles as the proposedBy
// value of a supplementary agreement.
type PartySide string

const (
	PartySideForwarder PartySide = "FORWARDER"
	PartySideCustomer  PartySide = "CUSTOMER"
)

func (s PartySide) Opposite() PartySide {
	if s == PartySideForwarder {
		return PartySideCustomer
	}
	return PartySideForwarder
}

// ContractParties is the customer/forwarder pair owning a contract and
// everything nested under it.
type ContractParties struct {
	ContractID         uuid.UUID
	CustomerCompanyID  uuid.UUID
	ForwarderCompanyID uuid.UUID
}

// SideOf reports which side companyID is on, if any.
func (p ContractParties) SideOf(companyID uuid.UUID) (PartySide, bool) {
	switch {
	case companyID == uuid.Nil:
		return "", false
	case companyID == p.ForwarderCompanyID:
		return PartySideForwarder, true
	case companyID == p.CustomerCompanyID:
		return PartySideCustomer, true
	default:
		return "", false
	}
}
