package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

// TariffService is the tariff book. Any change to the tariffs of an APPROVED
// agreement sends it back to PENDING for renegotiation.
type TariffService struct {
	agreements *repository.AgreementRepository
	tariffs    *repository.TariffRepository
	directory  *repository.DirectoryRepository
	validator  *workflow.Validator
	policy     TariffEditPolicy
	now        Clock
}

// OptionalString distinguishes "leave unchanged" from "set to null".
type OptionalString struct {
	Set   bool
	Value *string
}

type UpdateTariffInput struct {
	Price       *float64
	VehicleType OptionalString
	IsActive    *bool
}

func NewTariffService(
	agreements *repository.AgreementRepository,
	tariffs *repository.TariffRepository,
	directory *repository.DirectoryRepository,
	validator *workflow.Validator,
	policy TariffEditPolicy,
) *TariffService {
	if policy == "" {
		policy = TariffEditForwarderOnly
	}
	return &TariffService{
		agreements: agreements,
		tariffs:    tariffs,
		directory:  directory,
		validator:  validator,
		policy:     policy,
		now:        systemClock,
	}
}

func (s *TariffService) WithClock(now Clock) *TariffService {
	s.now = now
	return s
}

// AddTariff adds a route tariff to a DRAFT or APPROVED agreement. Either
// contract party may add.
func (s *TariffService) AddTariff(ctx context.Context, agreementID, companyID uuid.UUID, input TariffInput) (*model.RouteTariff, error) {
	found, err := s.agreements.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, notFound(err, "agreement")
	}
	if _, err := ContractParty(found.Parties, companyID); err != nil {
		return nil, err
	}

	status := found.Agreement.Status
	if status != model.AgreementStatusDraft && status != model.AgreementStatusApproved {
		return nil, fmt.Errorf("%w: tariffs cannot be added to a %s agreement", ErrInvalidInput, status)
	}
	if err := validateTariff(input); err != nil {
		return nil, err
	}
	if err := requireCities(ctx, s.directory, input.OriginCityID, input.DestinationCityID); err != nil {
		return nil, err
	}

	now := s.now()
	guard, err := s.guard(ctx, agreementID, status)
	if err != nil {
		return nil, err
	}

	tariff := newTariff(agreementID, input, now)
	if err := s.tariffs.AddTariff(ctx, tariff, guard); err != nil {
		return nil, transitionFailed(err)
	}
	return &tariff, nil
}

// UpdateTariff changes price, vehicle type or the active flag of a tariff.
func (s *TariffService) UpdateTariff(ctx context.Context, tariffID, companyID uuid.UUID, input UpdateTariffInput) (*model.RouteTariff, error) {
	found, err := s.tariffs.GetTariff(ctx, tariffID)
	if err != nil {
		return nil, notFound(err, "tariff")
	}
	if err := s.policy.Authorize(found.Parties, companyID); err != nil {
		return nil, err
	}

	tariff := found.Tariff
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		tariff.Price = *input.Price
	}
	if input.VehicleType.Set {
		tariff.VehicleType = normalizeVehicleType(input.VehicleType.Value)
	}
	if input.IsActive != nil {
		tariff.IsActive = *input.IsActive
	}
	tariff.UpdatedAt = s.now()

	guard, err := s.guard(ctx, tariff.AgreementID, found.AgreementStatus)
	if err != nil {
		return nil, err
	}
	if err := s.tariffs.UpdateTariff(ctx, tariff, guard); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(err, "tariff")
		}
		return nil, transitionFailed(err)
	}
	return &tariff, nil
}

// RemoveTariff deletes a tariff and returns the deleted record.
func (s *TariffService) RemoveTariff(ctx context.Context, tariffID, companyID uuid.UUID) (*model.RouteTariff, error) {
	found, err := s.tariffs.GetTariff(ctx, tariffID)
	if err != nil {
		return nil, notFound(err, "tariff")
	}
	if err := s.policy.Authorize(found.Parties, companyID); err != nil {
		return nil, err
	}

	guard, err := s.guard(ctx, found.Tariff.AgreementID, found.AgreementStatus)
	if err != nil {
		return nil, err
	}
	if err := s.tariffs.DeleteTariff(ctx, tariffID, guard); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(err, "tariff")
		}
		return nil, transitionFailed(err)
	}
	return &found.Tariff, nil
}

// guard pins the agreement at its current status for the tariff write and
// reopens it when it was APPROVED.
func (s *TariffService) guard(ctx context.Context, agreementID uuid.UUID, current model.AgreementStatus) (repository.AgreementGuard, error) {
	guard := repository.AgreementGuard{
		AgreementID: agreementID,
		Expected:    current,
		Next:        current,
		At:          s.now(),
	}
	if current != model.AgreementStatusApproved {
		return guard, nil
	}

	next, err := s.validator.Apply(ctx, current, model.AgreementEventReopen)
	if err != nil {
		return repository.AgreementGuard{}, transitionFailed(err)
	}
	guard.Next = next
	// Reopening withdraws the previous sign-off.
	guard.Patch = &repository.StatusPatch{}
	return guard, nil
}
