package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

type contractRow struct {
	ID                 uuid.UUID
	ContractNumber     string
	CustomerCompanyID  uuid.UUID
	ForwarderCompanyID uuid.UUID
	StartDate          *time.Time
	EndDate            *time.Time
	Notes              *string
	Status             model.ContractStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CustomerName       string
	CustomerBIN        string
	CustomerType       model.CompanyType
	ForwarderName      string
	ForwarderBIN       string
	ForwarderType      model.CompanyType
}

const contractSelect = `
	SELECT
		c.id,
		c.contract_number,
		c.customer_company_id,
		c.forwarder_company_id,
		c.start_date,
		c.end_date,
		c.notes,
		c.status,
		c.created_at,
		c.updated_at,
		customer.name AS customer_name,
		COALESCE(customer.bin, '') AS customer_bin,
		customer.company_type AS customer_type,
		forwarder.name AS forwarder_name,
		COALESCE(forwarder.bin, '') AS forwarder_bin,
		forwarder.company_type AS forwarder_type
	FROM contracts c
	JOIN companies customer ON customer.id = c.customer_company_id
	JOIN companies forwarder ON forwarder.id = c.forwarder_company_id
`

func (row contractRow) toModel() model.Contract {
	return model.Contract{
		ID:                 row.ID,
		ContractNumber:     row.ContractNumber,
		CustomerCompanyID:  row.CustomerCompanyID,
		ForwarderCompanyID: row.ForwarderCompanyID,
		StartDate:          row.StartDate,
		EndDate:            row.EndDate,
		Notes:              row.Notes,
		Status:             row.Status,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		Customer: model.CompanySummary{
			ID:          row.CustomerCompanyID,
			Name:        row.CustomerName,
			BIN:         row.CustomerBIN,
			CompanyType: row.CustomerType,
		},
		Forwarder: model.CompanySummary{
			ID:          row.ForwarderCompanyID,
			Name:        row.ForwarderName,
			BIN:         row.ForwarderBIN,
			CompanyType: row.ForwarderType,
		},
	}
}

// CreateContract inserts the contract provided an accepted partnership
// between its parties exists. The partnership check and the insert share a
// transaction; ErrConditionFailed means there was no such partnership.
func (r *ContractRepository) CreateContract(ctx context.Context, contract model.Contract) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := hasAcceptedPartnership(tx, contract.CustomerCompanyID, contract.ForwarderCompanyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConditionFailed
		}

		return tx.Exec(`
			INSERT INTO contracts (
				id,
				contract_number,
				customer_company_id,
				forwarder_company_id,
				start_date,
				end_date,
				notes,
				status,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			contract.ID,
			contract.ContractNumber,
			contract.CustomerCompanyID,
			contract.ForwarderCompanyID,
			contract.StartDate,
			contract.EndDate,
			contract.Notes,
			contract.Status,
			contract.CreatedAt,
			contract.UpdatedAt,
		).Error
	})
}

// GetContract returns the contract with both company summaries, without
// agreements.
func (r *ContractRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var row contractRow
	if err := r.db.WithContext(ctx).Raw(contractSelect+`
		WHERE c.id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	contract := row.toModel()
	return &contract, nil
}

// LoadAgreements fills the contract's agreements and their tariffs.
func (r *ContractRepository) LoadAgreements(ctx context.Context, contract *model.Contract) error {
	contracts := []model.Contract{*contract}
	if err := attachAgreements(r.db.WithContext(ctx), contracts); err != nil {
		return err
	}
	contract.Agreements = contracts[0].Agreements
	return nil
}

// ListContractsForCompany returns every contract the company is a party to,
// newest first, with agreements and tariffs.
func (r *ContractRepository) ListContractsForCompany(ctx context.Context, companyID uuid.UUID) ([]model.Contract, error) {
	var rows []contractRow
	if err := r.db.WithContext(ctx).Raw(contractSelect+`
		WHERE c.customer_company_id = ? OR c.forwarder_company_id = ?
		ORDER BY c.created_at DESC
	`, companyID, companyID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	contracts := make([]model.Contract, 0, len(rows))
	for _, row := range rows {
		contracts = append(contracts, row.toModel())
	}
	if err := attachAgreements(r.db.WithContext(ctx), contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func attachAgreements(db *gorm.DB, contracts []model.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(contracts))
	for _, contract := range contracts {
		ids = append(ids, contract.ID)
	}

	agreements, err := listAgreementsByContracts(db, ids)
	if err != nil {
		return err
	}
	if err := attachTariffs(db, agreements); err != nil {
		return err
	}

	byContract := make(map[uuid.UUID][]model.SupplementaryAgreement, len(contracts))
	for _, agreement := range agreements {
		byContract[agreement.ContractID] = append(byContract[agreement.ContractID], agreement)
	}
	for i := range contracts {
		contracts[i].Agreements = byContract[contracts[i].ID]
		if contracts[i].Agreements == nil {
			contracts[i].Agreements = []model.SupplementaryAgreement{}
		}
	}
	return nil
}
