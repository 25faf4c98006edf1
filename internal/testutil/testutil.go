// Package testutil builds an in-memory database with the reference data the
// contract workflow reads but never writes.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/config"
	"github.com/nurpe/freight-contracts/internal/db"
	"github.com/nurpe/freight-contracts/internal/model"
)

// NewDB opens a migrated in-memory sqlite database closed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		DB: config.DBConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}

	database, err := db.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}

// SeedCompany inserts a company of the given type and returns its id.
func SeedCompany(t *testing.T, database *gorm.DB, name string, companyType model.CompanyType) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := database.Exec(`
		INSERT INTO companies (id, name, bin, company_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, "1234567890", companyType, time.Now().UTC()).Error
	require.NoError(t, err)
	return id
}

// SeedCity inserts a city and returns its id.
func SeedCity(t *testing.T, database *gorm.DB, name, region string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := database.Exec(`
		INSERT INTO cities (id, name, region, country)
		VALUES (?, ?, ?, ?)
	`, id, name, region, "KZ").Error
	require.NoError(t, err)
	return id
}

// SeedPartnership records a partnership requested by the first company.
func SeedPartnership(t *testing.T, database *gorm.DB, requester, recipient uuid.UUID, status model.PartnershipStatus) {
	t.Helper()

	err := database.Exec(`
		INSERT INTO partnerships (id, requester_company_id, recipient_company_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New(), requester, recipient, status, time.Now().UTC()).Error
	require.NoError(t, err)
}

// Fixture is a forwarder and a customer in an accepted partnership plus two cities.
type Fixture struct {
	DB          *gorm.DB
	ForwarderID uuid.UUID
	CustomerID  uuid.UUID
	AlmatyID    uuid.UUID
	AstanaID    uuid.UUID
}

func NewFixture(t *testing.T) Fixture {
	t.Helper()

	database := NewDB(t)
	f := Fixture{
		DB:          database,
		ForwarderID: SeedCompany(t, database, "Trans Logistic", model.CompanyTypeForwarder),
		CustomerID:  SeedCompany(t, database, "Steppe Grain", model.CompanyTypeCustomer),
		AlmatyID:    SeedCity(t, database, "Almaty", "Almaty Region"),
		AstanaID:    SeedCity(t, database, "Astana", "Akmola Region"),
	}
	SeedPartnership(t, database, f.ForwarderID, f.CustomerID, model.PartnershipStatusAccepted)
	return f
}

// Clock is a manual clock. Every call advances it by Step so creation order
// is strictly increasing.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	Step    time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{current: start.UTC(), Step: time.Second}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}
