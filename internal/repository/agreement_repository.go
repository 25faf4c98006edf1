package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

type AgreementRepository struct {
	db *gorm.DB
}

func NewAgreementRepository(db *gorm.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

const agreementColumns = `
	a.id,
	a.contract_id,
	a.agreement_number,
	a.proposed_by,
	a.status,
	a.valid_from,
	a.valid_to,
	a.notes,
	a.created_by_id,
	a.approved_by_id,
	a.approved_at,
	a.rejected_at,
	a.rejection_reason,
	a.created_at,
	a.updated_at
`

// StatusPatch carries the approval bookkeeping written together with a
// status change. A nil patch leaves those columns untouched.
type StatusPatch struct {
	ApprovedByID    *uuid.UUID
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
}

// CreateAgreement inserts the agreement and its initial tariffs atomically.
func (r *AgreementRepository) CreateAgreement(ctx context.Context, agreement model.SupplementaryAgreement, tariffs []model.RouteTariff) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO supplementary_agreements (
				id,
				contract_id,
				agreement_number,
				proposed_by,
				status,
				valid_from,
				valid_to,
				notes,
				created_by_id,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			agreement.ID,
			agreement.ContractID,
			agreement.AgreementNumber,
			agreement.ProposedBy,
			agreement.Status,
			agreement.ValidFrom,
			agreement.ValidTo,
			agreement.Notes,
			agreement.CreatedByID,
			agreement.CreatedAt,
			agreement.UpdatedAt,
		).Error; err != nil {
			return err
		}

		for _, tariff := range tariffs {
			if err := insertTariff(tx, tariff); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAgreement returns the agreement joined with the parties of its contract.
func (r *AgreementRepository) GetAgreement(ctx context.Context, id uuid.UUID) (*model.AgreementWithParties, error) {
	var row struct {
		model.SupplementaryAgreement
		CustomerCompanyID  uuid.UUID
		ForwarderCompanyID uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+agreementColumns+`,
			c.customer_company_id,
			c.forwarder_company_id
		FROM supplementary_agreements a
		JOIN contracts c ON c.id = a.contract_id
		WHERE a.id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	return &model.AgreementWithParties{
		Agreement: row.SupplementaryAgreement,
		Parties: model.ContractParties{
			ContractID:         row.ContractID,
			CustomerCompanyID:  row.CustomerCompanyID,
			ForwarderCompanyID: row.ForwarderCompanyID,
		},
	}, nil
}

// GetAgreementWithTariffs is GetAgreement with the tariff list filled in.
func (r *AgreementRepository) GetAgreementWithTariffs(ctx context.Context, id uuid.UUID) (*model.AgreementWithParties, error) {
	found, err := r.GetAgreement(ctx, id)
	if err != nil {
		return nil, err
	}

	agreements := []model.SupplementaryAgreement{found.Agreement}
	if err := attachTariffs(r.db.WithContext(ctx), agreements); err != nil {
		return nil, err
	}
	found.Agreement = agreements[0]
	return found, nil
}

func (r *AgreementRepository) CountTariffs(ctx context.Context, agreementID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM route_tariffs WHERE agreement_id = ?
	`, agreementID).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TransitionStatus moves the agreement from expected to next in a single
// conditional update. With requireTariffs the update also demands at least
// one tariff on the agreement. ErrConditionFailed means no row matched.
func (r *AgreementRepository) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	expected model.AgreementStatus,
	next model.AgreementStatus,
	patch *StatusPatch,
	requireTariffs bool,
	at time.Time,
) error {
	return compareAndSetStatus(r.db.WithContext(ctx), id, expected, next, patch, requireTariffs, at)
}

// ListPendingForCompany returns PENDING agreements the company is expected
// to approve or reject: those proposed by the other side of the contract.
func (r *AgreementRepository) ListPendingForCompany(ctx context.Context, companyID uuid.UUID) ([]model.SupplementaryAgreement, error) {
	var agreements []model.SupplementaryAgreement
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+agreementColumns+`
		FROM supplementary_agreements a
		JOIN contracts c ON c.id = a.contract_id
		WHERE a.status = ?
			AND (
				(a.proposed_by = ? AND c.customer_company_id = ?)
				OR (a.proposed_by = ? AND c.forwarder_company_id = ?)
			)
		ORDER BY a.created_at DESC
	`,
		model.AgreementStatusPending,
		model.PartySideForwarder, companyID,
		model.PartySideCustomer, companyID,
	).Scan(&agreements).Error; err != nil {
		return nil, err
	}

	if err := attachTariffs(r.db.WithContext(ctx), agreements); err != nil {
		return nil, err
	}
	return agreements, nil
}

func compareAndSetStatus(
	db *gorm.DB,
	id uuid.UUID,
	expected model.AgreementStatus,
	next model.AgreementStatus,
	patch *StatusPatch,
	requireTariffs bool,
	at time.Time,
) error {
	query := `UPDATE supplementary_agreements SET status = ?, updated_at = ?`
	args := []interface{}{next, at}

	if patch != nil {
		query += `, approved_by_id = ?, approved_at = ?, rejected_at = ?, rejection_reason = ?`
		args = append(args, patch.ApprovedByID, patch.ApprovedAt, patch.RejectedAt, patch.RejectionReason)
	}

	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, expected)

	if requireTariffs {
		query += ` AND EXISTS (SELECT 1 FROM route_tariffs t WHERE t.agreement_id = ?)`
		args = append(args, id)
	}

	result := db.Exec(query, args...)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func listAgreementsByContracts(db *gorm.DB, contractIDs []uuid.UUID) ([]model.SupplementaryAgreement, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}

	var agreements []model.SupplementaryAgreement
	if err := db.Raw(`
		SELECT `+agreementColumns+`
		FROM supplementary_agreements a
		WHERE a.contract_id IN ?
		ORDER BY a.created_at DESC
	`, contractIDs).Scan(&agreements).Error; err != nil {
		return nil, err
	}
	return agreements, nil
}
