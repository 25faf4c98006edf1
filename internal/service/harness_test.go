package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freight-contracts/internal/excel"
	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/testutil"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

var startTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	testutil.Fixture
	clock      *testutil.Clock
	contracts  *ContractService
	agreements *AgreementService
	tariffs    *TariffService
	resolver   *PriceResolver
}

func newHarness(t *testing.T, policy TariffEditPolicy) *harness {
	t.Helper()

	f := testutil.NewFixture(t)
	clock := testutil.NewClock(startTime)

	directory := repository.NewDirectoryRepository(f.DB)
	contractRepo := repository.NewContractRepository(f.DB)
	agreementRepo := repository.NewAgreementRepository(f.DB)
	validator := workflow.New()

	return &harness{
		Fixture: f,
		clock:   clock,
		contracts: NewContractService(contractRepo, directory, repository.NewPartnershipRepository(f.DB), excel.NewGenerator()).
			WithClock(clock.Now),
		agreements: NewAgreementService(contractRepo, agreementRepo, directory, validator).
			WithClock(clock.Now),
		tariffs: NewTariffService(agreementRepo, repository.NewTariffRepository(f.DB), directory, validator, policy).
			WithClock(clock.Now),
		resolver: NewPriceResolver(repository.NewLookupRepository(f.DB), directory).
			WithClock(clock.Now),
	}
}

func (h *harness) contract(t *testing.T) *model.Contract {
	t.Helper()

	contract, err := h.contracts.CreateContract(context.Background(), CreateContractInput{
		ForwarderCompanyID: h.ForwarderID,
		CustomerCompanyID:  h.CustomerID,
		ContractNumber:     "FC-2026/01",
	})
	require.NoError(t, err)
	return contract
}

// approvedAgreement builds the reference agreement: proposed by the forwarder,
// approved by the customer, with a generic 150000 and a Tent 180000 tariff
// for Almaty to Astana.
func (h *harness) approvedAgreement(t *testing.T, contractID uuid.UUID) *model.SupplementaryAgreement {
	t.Helper()
	ctx := context.Background()

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contractID,
		CompanyID:       h.ForwarderID,
		UserID:          uuid.New(),
		AgreementNumber: "1/2026",
		Tariffs: []TariffInput{
			{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 150000},
			{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 180000, VehicleType: strPtr("Tent")},
		},
	})
	require.NoError(t, err)

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)
	approved, err := h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, uuid.New())
	require.NoError(t, err)
	return approved
}

func (h *harness) lookup(t *testing.T, vehicleType *string) *model.ResolvedTariff {
	t.Helper()

	tariff, err := h.resolver.LookupTariff(context.Background(), TariffLookup{
		CustomerCompanyID:  h.CustomerID,
		ForwarderCompanyID: h.ForwarderID,
		OriginCityID:       h.AlmatyID,
		DestinationCityID:  h.AstanaID,
		VehicleType:        vehicleType,
	})
	require.NoError(t, err)
	return tariff
}

func (h *harness) status(t *testing.T, agreementID uuid.UUID) model.AgreementStatus {
	t.Helper()

	agreement, err := h.agreements.GetAgreement(context.Background(), agreementID, h.ForwarderID)
	require.NoError(t, err)
	return agreement.Status
}

func strPtr(value string) *string {
	return &value
}

func floatPtr(value float64) *float64 {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}
