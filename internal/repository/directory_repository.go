package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/model"
)

// DirectoryRepository reads the company and city reference data owned by
// other services.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetCompany(ctx context.Context, id uuid.UUID) (*model.CompanySummary, error) {
	var company model.CompanySummary
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, COALESCE(bin, '') AS bin, company_type
		FROM companies
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&company).Error; err != nil {
		return nil, err
	}
	if company.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &company, nil
}

// CitiesExist reports whether every id refers to a known city.
func (r *DirectoryRepository) CitiesExist(ctx context.Context, ids ...uuid.UUID) (bool, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM cities WHERE id IN ?
	`, unique).Scan(&count).Error; err != nil {
		return false, err
	}
	return count == int64(len(unique)), nil
}

// FindCityIDsByName returns every city whose name matches case-insensitively.
// City names repeat across regions, so callers get all of them.
func (r *DirectoryRepository) FindCityIDsByName(ctx context.Context, name string) ([]uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id
		FROM cities
		WHERE LOWER(name) = LOWER(?)
		ORDER BY id
	`, name).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
