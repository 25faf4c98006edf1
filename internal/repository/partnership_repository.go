package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

// PartnershipRepository answers the partnership precondition. Partnerships
// are created and decided elsewhere; this side never writes them.
type PartnershipRepository struct {
	db *gorm.DB
}

func NewPartnershipRepository(db *gorm.DB) *PartnershipRepository {
	return &PartnershipRepository{db: db}
}

// HasAcceptedPartnership checks for an ACCEPTED partnership between the two
// companies in either direction.
func (r *PartnershipRepository) HasAcceptedPartnership(ctx context.Context, companyA, companyB uuid.UUID) (bool, error) {
	return hasAcceptedPartnership(r.db.WithContext(ctx), companyA, companyB)
}

func hasAcceptedPartnership(db *gorm.DB, companyA, companyB uuid.UUID) (bool, error) {
	var count int64
	if err := db.Raw(`
		SELECT COUNT(*)
		FROM partnerships
		WHERE status = ?
			AND (
				(requester_company_id = ? AND recipient_company_id = ?)
				OR (requester_company_id = ? AND recipient_company_id = ?)
			)
	`, model.PartnershipStatusAccepted, companyA, companyB, companyB, companyA).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
