package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
)

// PartnershipGate confirms an accepted partnership between two companies.
type PartnershipGate interface {
	HasAcceptedPartnership(ctx context.Context, companyA, companyB uuid.UUID) (bool, error)
}

// ExcelGenerator renders a contract with its agreements into a spreadsheet.
type ExcelGenerator interface {
	Generate(contract model.Contract) ([]byte, error)
}

// ContractService is the contract registry.
type ContractService struct {
	contracts   *repository.ContractRepository
	directory   *repository.DirectoryRepository
	partnership PartnershipGate
	excel       ExcelGenerator
	now         Clock
}

type ExportResult struct {
	FileName string
	Content  []byte
}

type CreateContractInput struct {
	ForwarderCompanyID uuid.UUID
	CustomerCompanyID  uuid.UUID
	ContractNumber     string
	StartDate          *time.Time
	EndDate            *time.Time
	Notes              *string
}

func NewContractService(
	contracts *repository.ContractRepository,
	directory *repository.DirectoryRepository,
	partnership PartnershipGate,
	excel ExcelGenerator,
) *ContractService {
	return &ContractService{
		contracts:   contracts,
		directory:   directory,
		partnership: partnership,
		excel:       excel,
		now:         systemClock,
	}
}

func (s *ContractService) WithClock(now Clock) *ContractService {
	s.now = now
	return s
}

func (s *ContractService) CreateContract(ctx context.Context, input CreateContractInput) (*model.Contract, error) {
	number := strings.TrimSpace(input.ContractNumber)
	if number == "" {
		return nil, fmt.Errorf("%w: contract number is required", ErrInvalidInput)
	}
	if input.CustomerCompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer company is required", ErrInvalidInput)
	}
	if input.CustomerCompanyID == input.ForwarderCompanyID {
		return nil, fmt.Errorf("%w: a company cannot contract with itself", ErrInvalidInput)
	}
	if input.StartDate != nil && input.EndDate != nil && input.StartDate.After(*input.EndDate) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrInvalidInput)
	}

	if _, err := s.directory.GetCompany(ctx, input.CustomerCompanyID); err != nil {
		return nil, notFound(err, "customer company")
	}

	// Answers the caller with a clear Forbidden; the repository re-checks
	// inside the insert transaction to close the race with a revoked partnership.
	ok, err := s.partnership.HasAcceptedPartnership(ctx, input.ForwarderCompanyID, input.CustomerCompanyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no accepted partnership with the customer", ErrPermissionDenied)
	}

	now := s.now()
	contract := model.Contract{
		ID:                 uuid.New(),
		ContractNumber:     number,
		CustomerCompanyID:  input.CustomerCompanyID,
		ForwarderCompanyID: input.ForwarderCompanyID,
		StartDate:          utcPtr(input.StartDate),
		EndDate:            utcPtr(input.EndDate),
		Notes:              trimmedPtr(input.Notes),
		Status:             model.ContractStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.contracts.CreateContract(ctx, contract); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, fmt.Errorf("%w: no accepted partnership with the customer", ErrPermissionDenied)
		}
		return nil, err
	}

	created, err := s.contracts.GetContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	created.Agreements = []model.SupplementaryAgreement{}
	return created, nil
}

// GetContract returns the contract with agreements and tariffs to one of its parties.
func (s *ContractService) GetContract(ctx context.Context, contractID, companyID uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetContract(ctx, contractID)
	if err != nil {
		return nil, notFound(err, "contract")
	}
	if _, err := ContractParty(contract.Parties(), companyID); err != nil {
		return nil, err
	}

	if err := s.contracts.LoadAgreements(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// ListContracts returns the company's contracts on either side, newest first.
func (s *ContractService) ListContracts(ctx context.Context, companyID uuid.UUID) ([]model.Contract, error) {
	return s.contracts.ListContractsForCompany(ctx, companyID)
}

// ExportTariffs renders the contract's agreements and tariffs as xlsx.
func (s *ContractService) ExportTariffs(ctx context.Context, contractID, companyID uuid.UUID) (*ExportResult, error) {
	contract, err := s.GetContract(ctx, contractID, companyID)
	if err != nil {
		return nil, err
	}

	content, err := s.excel.Generate(*contract)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildFileName(*contract, s.now()),
		Content:  content,
	}, nil
}

func buildFileName(contract model.Contract, now time.Time) string {
	number := sanitizeFileName(contract.ContractNumber)
	if number == "" {
		number = contract.ID.String()
	}
	return fmt.Sprintf("tariffs-%s-%s.xlsx", number, now.Format("20060102"))
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
