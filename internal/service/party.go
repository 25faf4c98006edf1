package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nurpe/freight-contracts/internal/config"
	"github.com/nurpe/freight-contracts/internal/model"
)

// ContractParty resolves which side of a contract the calling company is on.
// Every operation under a contract authorizes through it.
func ContractParty(parties model.ContractParties, companyID uuid.UUID) (model.PartySide, error) {
	side, ok := parties.SideOf(companyID)
	if !ok {
		return "", fmt.Errorf("%w: company is not a party to the contract", ErrPermissionDenied)
	}
	return side, nil
}

// Counterparty requires the caller to be the side opposite to the proposer.
func Counterparty(parties model.ContractParties, companyID uuid.UUID, proposedBy model.PartySide) (model.PartySide, error) {
	side, err := ContractParty(parties, companyID)
	if err != nil {
		return "", err
	}
	if side == proposedBy {
		return "", fmt.Errorf("%w: agreement must be decided by the %s side", ErrPermissionDenied, proposedBy.Opposite())
	}
	return side, nil
}

// TariffEditPolicy decides who may update or remove existing tariffs.
type TariffEditPolicy string

const (
	TariffEditForwarderOnly TariffEditPolicy = config.TariffEditForwarderOnly
	TariffEditAnyParty      TariffEditPolicy = config.TariffEditAnyParty
)

func (p TariffEditPolicy) Authorize(parties model.ContractParties, companyID uuid.UUID) error {
	side, err := ContractParty(parties, companyID)
	if err != nil {
		return err
	}
	if p == TariffEditAnyParty {
		return nil
	}
	if side != model.PartySideForwarder {
		return fmt.Errorf("%w: only the forwarder may change tariffs", ErrPermissionDenied)
	}
	return nil
}
