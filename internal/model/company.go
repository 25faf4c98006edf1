package model

import "github.com/google/uuid"

type CompanyType string

const (
	CompanyTypeCustomer  CompanyType = "CUSTOMER"
	CompanyTypeForwarder CompanyType = "FORWARDER"
)

// CompanySummary is the slice of a company record embedded into contracts.
type CompanySummary struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	BIN         string      `json:"bin,omitempty"`
	CompanyType CompanyType `json:"companyType,omitempty"`
}

type City struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Region  string    `json:"region,omitempty"`
	Country string    `json:"country,omitempty"`
}

type PartnershipStatus string

const (
	PartnershipStatusPending  PartnershipStatus = "PENDING"
	PartnershipStatusAccepted PartnershipStatus = "ACCEPTED"
	PartnershipStatusRejected PartnershipStatus = "REJECTED"
)
