package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

// AgreementService runs the supplementary agreement workflow.
type AgreementService struct {
	contracts  *repository.ContractRepository
	agreements *repository.AgreementRepository
	directory  *repository.DirectoryRepository
	validator  *workflow.Validator
	now        Clock
}

type TariffInput struct {
	OriginCityID      uuid.UUID
	DestinationCityID uuid.UUID
	Price             float64
	VehicleType       *string
}

type CreateAgreementInput struct {
	ContractID      uuid.UUID
	CompanyID       uuid.UUID
	UserID          uuid.UUID
	AgreementNumber string
	ValidFrom       *time.Time
	ValidTo         *time.Time
	Notes           *string
	Tariffs         []TariffInput
}

func NewAgreementService(
	contracts *repository.ContractRepository,
	agreements *repository.AgreementRepository,
	directory *repository.DirectoryRepository,
	validator *workflow.Validator,
) *AgreementService {
	return &AgreementService{
		contracts:  contracts,
		agreements: agreements,
		directory:  directory,
		validator:  validator,
		now:        systemClock,
	}
}

func (s *AgreementService) WithClock(now Clock) *AgreementService {
	s.now = now
	return s
}

// CreateAgreement opens a DRAFT agreement proposed by the caller's side,
// together with its initial tariffs.
func (s *AgreementService) CreateAgreement(ctx context.Context, input CreateAgreementInput) (*model.SupplementaryAgreement, error) {
	contract, err := s.contracts.GetContract(ctx, input.ContractID)
	if err != nil {
		return nil, notFound(err, "contract")
	}
	side, err := ContractParty(contract.Parties(), input.CompanyID)
	if err != nil {
		return nil, err
	}

	number := strings.TrimSpace(input.AgreementNumber)
	if number == "" {
		return nil, fmt.Errorf("%w: agreement number is required", ErrInvalidInput)
	}
	if input.ValidFrom != nil && input.ValidTo != nil && input.ValidFrom.After(*input.ValidTo) {
		return nil, fmt.Errorf("%w: validFrom must not be after validTo", ErrInvalidInput)
	}
	cityIDs := make([]uuid.UUID, 0, len(input.Tariffs)*2)
	for _, tariff := range input.Tariffs {
		if err := validateTariff(tariff); err != nil {
			return nil, err
		}
		cityIDs = append(cityIDs, tariff.OriginCityID, tariff.DestinationCityID)
	}
	if err := s.requireCities(ctx, cityIDs...); err != nil {
		return nil, err
	}

	now := s.now()
	agreement := model.SupplementaryAgreement{
		ID:              uuid.New(),
		ContractID:      contract.ID,
		AgreementNumber: number,
		ProposedBy:      side,
		Status:          model.AgreementStatusDraft,
		ValidFrom:       utcPtr(input.ValidFrom),
		ValidTo:         utcPtr(input.ValidTo),
		Notes:           trimmedPtr(input.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.UserID != uuid.Nil {
		userID := input.UserID
		agreement.CreatedByID = &userID
	}

	// Creation times are spaced so the list order survives newest-first lookups.
	tariffs := make([]model.RouteTariff, 0, len(input.Tariffs))
	for i, tariff := range input.Tariffs {
		tariffs = append(tariffs, newTariff(agreement.ID, tariff, now.Add(time.Duration(i)*time.Microsecond)))
	}

	if err := s.agreements.CreateAgreement(ctx, agreement, tariffs); err != nil {
		return nil, err
	}
	return s.reload(ctx, agreement.ID)
}

// GetAgreement returns the agreement with its tariffs to a contract party.
func (s *AgreementService) GetAgreement(ctx context.Context, agreementID, companyID uuid.UUID) (*model.SupplementaryAgreement, error) {
	found, err := s.agreements.GetAgreementWithTariffs(ctx, agreementID)
	if err != nil {
		return nil, notFound(err, "agreement")
	}
	if _, err := ContractParty(found.Parties, companyID); err != nil {
		return nil, err
	}
	return &found.Agreement, nil
}

// SendAgreement submits a DRAFT agreement with at least one tariff for approval.
func (s *AgreementService) SendAgreement(ctx context.Context, agreementID, companyID uuid.UUID) (*model.SupplementaryAgreement, error) {
	found, err := s.agreements.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, notFound(err, "agreement")
	}
	if _, err := ContractParty(found.Parties, companyID); err != nil {
		return nil, err
	}

	current := found.Agreement.Status
	next, err := s.validator.Apply(ctx, current, model.AgreementEventSend)
	if err != nil {
		return nil, transitionFailed(err)
	}

	count, err := s.agreements.CountTariffs(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: agreement has no tariffs", ErrInvalidInput)
	}

	if err := s.agreements.TransitionStatus(ctx, agreementID, current, next, nil, true, s.now()); err != nil {
		return nil, transitionFailed(err)
	}
	return s.reload(ctx, agreementID)
}

// ApproveAgreement records the counterparty's sign-off on a PENDING agreement.
func (s *AgreementService) ApproveAgreement(ctx context.Context, agreementID, companyID, approvedByID uuid.UUID) (*model.SupplementaryAgreement, error) {
	now := s.now()
	patch := &repository.StatusPatch{ApprovedAt: &now}
	if approvedByID != uuid.Nil {
		patch.ApprovedByID = &approvedByID
	}
	return s.decide(ctx, agreementID, companyID, model.AgreementEventApprove, patch, now)
}

// RejectAgreement closes a PENDING agreement for good.
func (s *AgreementService) RejectAgreement(ctx context.Context, agreementID, companyID uuid.UUID, reason *string) (*model.SupplementaryAgreement, error) {
	now := s.now()
	patch := &repository.StatusPatch{
		RejectedAt:      &now,
		RejectionReason: trimmedPtr(reason),
	}
	return s.decide(ctx, agreementID, companyID, model.AgreementEventReject, patch, now)
}

func (s *AgreementService) decide(
	ctx context.Context,
	agreementID, companyID uuid.UUID,
	event model.AgreementEvent,
	patch *repository.StatusPatch,
	now time.Time,
) (*model.SupplementaryAgreement, error) {
	found, err := s.agreements.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, notFound(err, "agreement")
	}
	if _, err := ContractParty(found.Parties, companyID); err != nil {
		return nil, err
	}

	current := found.Agreement.Status
	next, err := s.validator.Apply(ctx, current, event)
	if err != nil {
		return nil, transitionFailed(err)
	}
	if _, err := Counterparty(found.Parties, companyID, found.Agreement.ProposedBy); err != nil {
		return nil, err
	}

	if err := s.agreements.TransitionStatus(ctx, agreementID, current, next, patch, false, now); err != nil {
		return nil, transitionFailed(err)
	}
	return s.reload(ctx, agreementID)
}

// ListPendingAgreements returns PENDING agreements awaiting the company's decision.
func (s *AgreementService) ListPendingAgreements(ctx context.Context, companyID uuid.UUID) ([]model.SupplementaryAgreement, error) {
	agreements, err := s.agreements.ListPendingForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if agreements == nil {
		agreements = []model.SupplementaryAgreement{}
	}
	return agreements, nil
}

func (s *AgreementService) reload(ctx context.Context, agreementID uuid.UUID) (*model.SupplementaryAgreement, error) {
	found, err := s.agreements.GetAgreementWithTariffs(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	return &found.Agreement, nil
}

func (s *AgreementService) requireCities(ctx context.Context, ids ...uuid.UUID) error {
	return requireCities(ctx, s.directory, ids...)
}

func requireCities(ctx context.Context, directory *repository.DirectoryRepository, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ok, err := directory.CitiesExist(ctx, ids...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: city", ErrNotFound)
	}
	return nil
}

func validateTariff(input TariffInput) error {
	if input.OriginCityID == uuid.Nil || input.DestinationCityID == uuid.Nil {
		return fmt.Errorf("%w: origin and destination cities are required", ErrInvalidInput)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	return nil
}

func newTariff(agreementID uuid.UUID, input TariffInput, now time.Time) model.RouteTariff {
	return model.RouteTariff{
		ID:                uuid.New(),
		AgreementID:       agreementID,
		OriginCityID:      input.OriginCityID,
		DestinationCityID: input.DestinationCityID,
		Price:             input.Price,
		VehicleType:       normalizeVehicleType(input.VehicleType),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// normalizeVehicleType treats a blank vehicle type as the generic tariff.
func normalizeVehicleType(value *string) *string {
	return trimmedPtr(value)
}
