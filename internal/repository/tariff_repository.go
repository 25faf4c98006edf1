package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

type TariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// AgreementGuard is the compare-and-set applied to the owning agreement in
// the same transaction as a tariff write. Expected == Next only pins the
// status; Patch is written when the status actually changes.
type AgreementGuard struct {
	AgreementID uuid.UUID
	Expected    model.AgreementStatus
	Next        model.AgreementStatus
	Patch       *StatusPatch
	At          time.Time
}

func (g AgreementGuard) apply(tx *gorm.DB) error {
	return compareAndSetStatus(tx, g.AgreementID, g.Expected, g.Next, g.Patch, false, g.At)
}

// GetTariff returns the tariff with the status of its agreement and the
// parties of the owning contract.
func (r *TariffRepository) GetTariff(ctx context.Context, id uuid.UUID) (*model.TariffWithParties, error) {
	var row struct {
		model.RouteTariff
		AgreementStatus    model.AgreementStatus
		ContractID         uuid.UUID
		CustomerCompanyID  uuid.UUID
		ForwarderCompanyID uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
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
			a.status AS agreement_status,
			c.id AS contract_id,
			c.customer_company_id,
			c.forwarder_company_id
		FROM route_tariffs t
		JOIN supplementary_agreements a ON a.id = t.agreement_id
		JOIN contracts c ON c.id = a.contract_id
		WHERE t.id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	return &model.TariffWithParties{
		Tariff:          row.RouteTariff,
		AgreementStatus: row.AgreementStatus,
		Parties: model.ContractParties{
			ContractID:         row.ContractID,
			CustomerCompanyID:  row.CustomerCompanyID,
			ForwarderCompanyID: row.ForwarderCompanyID,
		},
	}, nil
}

// AddTariff inserts the tariff after the guard on its agreement succeeds.
func (r *TariffRepository) AddTariff(ctx context.Context, tariff model.RouteTariff, guard AgreementGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.apply(tx); err != nil {
			return err
		}
		return insertTariff(tx, tariff)
	})
}

// UpdateTariff writes price, vehicle type and active flag of the tariff.
func (r *TariffRepository) UpdateTariff(ctx context.Context, tariff model.RouteTariff, guard AgreementGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.apply(tx); err != nil {
			return err
		}

		result := tx.Exec(`
			UPDATE route_tariffs
			SET price = ?, vehicle_type = ?, is_active = ?, updated_at = ?
			WHERE id = ? AND agreement_id = ?
		`, tariff.Price, tariff.VehicleType, tariff.IsActive, tariff.UpdatedAt, tariff.ID, guard.AgreementID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *TariffRepository) DeleteTariff(ctx context.Context, id uuid.UUID, guard AgreementGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.apply(tx); err != nil {
			return err
		}

		result := tx.Exec(`
			DELETE FROM route_tariffs WHERE id = ? AND agreement_id = ?
		`, id, guard.AgreementID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func insertTariff(tx *gorm.DB, tariff model.RouteTariff) error {
	return tx.Exec(`
		INSERT INTO route_tariffs (
			id,
			agreement_id,
			origin_city_id,
			destination_city_id,
			price,
			vehicle_type,
			is_active,
			created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tariff.ID,
		tariff.AgreementID,
		tariff.OriginCityID,
		tariff.DestinationCityID,
		tariff.Price,
		tariff.VehicleType,
		tariff.IsActive,
		tariff.CreatedAt,
		tariff.UpdatedAt,
	).Error
}

type tariffCityRow struct {
	model.RouteTariff
	OriginName         string
	OriginRegion       *string
	OriginCountry      *string
	DestinationName    string
	DestinationRegion  *string
	DestinationCountry *string
}

// attachTariffs fills Tariffs of every agreement, with city summaries,
// oldest tariff first.
func attachTariffs(db *gorm.DB, agreements []model.SupplementaryAgreement) error {
	if len(agreements) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(agreements))
	for _, agreement := range agreements {
		ids = append(ids, agreement.ID)
	}

	var rows []tariffCityRow
	if err := db.Raw(`
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
			origin.name AS origin_name,
			origin.region AS origin_region,
			origin.country AS origin_country,
			destination.name AS destination_name,
			destination.region AS destination_region,
			destination.country AS destination_country
		FROM route_tariffs t
		JOIN cities origin ON origin.id = t.origin_city_id
		JOIN cities destination ON destination.id = t.destination_city_id
		WHERE t.agreement_id IN ?
		ORDER BY t.created_at ASC
	`, ids).Scan(&rows).Error; err != nil {
		return err
	}

	byAgreement := make(map[uuid.UUID][]model.RouteTariff, len(agreements))
	for _, row := range rows {
		tariff := row.RouteTariff
		tariff.OriginCity = &model.City{
			ID:      row.OriginCityID,
			Name:    row.OriginName,
			Region:  deref(row.OriginRegion),
			Country: deref(row.OriginCountry),
		}
		tariff.DestinationCity = &model.City{
			ID:      row.DestinationCityID,
			Name:    row.DestinationName,
			Region:  deref(row.DestinationRegion),
			Country: deref(row.DestinationCountry),
		}
		byAgreement[tariff.AgreementID] = append(byAgreement[tariff.AgreementID], tariff)
	}

	for i := range agreements {
		agreements[i].Tariffs = byAgreement[agreements[i].ID]
		if agreements[i].Tariffs == nil {
			agreements[i].Tariffs = []model.RouteTariff{}
		}
	}
	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
