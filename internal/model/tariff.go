package model

import (
	"time"

	"github.com/google/uuid"
)

type RouteTariff struct {
	ID                uuid.UUID `json:"id"`
	AgreementID       uuid.UUID `json:"agreementId"`
	OriginCityID      uuid.UUID `json:"originCityId"`
	DestinationCityID uuid.UUID `json:"destinationCityId"`
	Price             float64   `json:"price"`
	VehicleType       *string   `json:"vehicleType"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	OriginCity        *City     `json:"originCity,omitempty" gorm:"-"`
	DestinationCity   *City     `json:"destinationCity,omitempty" gorm:"-"`
}

// TariffWithParties is a tariff joined with its agreement status and contract parties.
type TariffWithParties struct {
	Tariff          RouteTariff
	AgreementStatus AgreementStatus
	Parties         ContractParties
}

// ResolvedTariff is the outcome of a price lookup: the winning tariff and
// where it came from.
type ResolvedTariff struct {
	RouteTariff
	AgreementNumber    string    `json:"agreementNumber"`
	ContractID         uuid.UUID `json:"contractId"`
	ContractNumber     string    `json:"contractNumber"`
	CustomerCompanyID  uuid.UUID `json:"customerCompanyId"`
	ForwarderCompanyID uuid.UUID `json:"forwarderCompanyId"`
}
