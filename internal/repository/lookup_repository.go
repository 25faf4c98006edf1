package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

// LookupRepository runs the read-only price resolution queries.
type LookupRepository struct {
	db *gorm.DB
}

func NewLookupRepository(db *gorm.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// TariffFilter selects tariffs that are currently in force for a route.
type TariffFilter struct {
	CustomerCompanyID uuid.UUID
	// ForwarderCompanyID narrows the search to one forwarder when set.
	ForwarderCompanyID *uuid.UUID
	OriginCityIDs      []uuid.UUID
	DestinationCityIDs []uuid.UUID
	// VehicleType selects an exact vehicle type; nil selects generic tariffs.
	VehicleType *string
	// At is the instant agreement validity is checked against.
	At time.Time
}

// FindNewestTariff returns the most recently created tariff matching the
// filter, or nil when there is none.
func (r *LookupRepository) FindNewestTariff(ctx context.Context, filter TariffFilter) (*model.ResolvedTariff, error) {
	if len(filter.OriginCityIDs) == 0 || len(filter.DestinationCityIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			t.id,
			t.agreement_id,
			t.origin_city_id,
			t.destination_city_id,
			t.price,
			t.vehicle_type,
			t.is_active,
			t.created_at,
			t.updated_at,
			a.agreement_number,
			c.id AS contract_id,
			c.contract_number,
			c.customer_company_id,
			c.forwarder_company_id
		FROM route_tariffs t
		JOIN supplementary_agreements a ON a.id = t.agreement_id
		JOIN contracts c ON c.id = a.contract_id
		WHERE t.is_active = ?
			AND a.status = ?
			AND (a.valid_to IS NULL OR a.valid_to >= ?)
			AND c.status = ?
			AND c.customer_company_id = ?
			AND t.origin_city_id IN ?
			AND t.destination_city_id IN ?
	`
	args := []interface{}{
		true,
		model.AgreementStatusApproved,
		filter.At,
		model.ContractStatusActive,
		filter.CustomerCompanyID,
		filter.OriginCityIDs,
		filter.DestinationCityIDs,
	}

	if filter.ForwarderCompanyID != nil {
		query += ` AND c.forwarder_company_id = ?`
		args = append(args, *filter.ForwarderCompanyID)
	}

	if filter.VehicleType != nil {
		query += ` AND t.vehicle_type = ?`
		args = append(args, *filter.VehicleType)
	} else {
		query += ` AND t.vehicle_type IS NULL`
	}

	query += ` ORDER BY t.created_at DESC LIMIT 1`

	var row model.ResolvedTariff
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
