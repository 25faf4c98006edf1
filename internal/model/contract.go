package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusActive ContractStatus = "ACTIVE"
)

type Contract struct {
	ID                 uuid.UUID                `json:"id"`
	ContractNumber     string                   `json:"contractNumber"`
	CustomerCompanyID  uuid.UUID                `json:"customerCompanyId"`
	ForwarderCompanyID uuid.UUID                `json:"forwarderCompanyId"`
	StartDate          *time.Time               `json:"startDate,omitempty"`
	EndDate            *time.Time               `json:"endDate,omitempty"`
	Notes              *string                  `json:"notes,omitempty"`
	Status             ContractStatus           `json:"status"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
	Customer           CompanySummary           `json:"customerCompany" gorm:"-"`
	Forwarder          CompanySummary           `json:"forwarderCompany" gorm:"-"`
	Agreements         []SupplementaryAgreement `json:"agreements" gorm:"-"`
}

// Parties returns the ownership pair used by every authorization check.
func (c Contract) Parties() ContractParties {
	return ContractParties{
		ContractID:         c.ID,
		CustomerCompanyID:  c.CustomerCompanyID,
		ForwarderCompanyID: c.ForwarderCompanyID,
	}
}
