package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freight-contracts/internal/model"
)

func TestCreateAgreementRecordsProposingSide(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)
	userID := uuid.New()

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.CustomerID,
		UserID:          userID,
		AgreementNumber: "2/2026",
		Notes:           strPtr("winter rates"),
		Tariffs: []TariffInput{
			{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 150000, VehicleType: strPtr("  ")},
			{OriginCityID: h.AstanaID, DestinationCityID: h.AlmatyID, Price: 140000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.AgreementStatusDraft, agreement.Status)
	assert.Equal(t, model.PartySideCustomer, agreement.ProposedBy)
	require.NotNil(t, agreement.CreatedByID)
	assert.Equal(t, userID, *agreement.CreatedByID)
	require.Len(t, agreement.Tariffs, 2)
	assert.Nil(t, agreement.Tariffs[0].VehicleType, "blank vehicle type is generic")
	assert.Equal(t, h.AlmatyID, agreement.Tariffs[0].OriginCityID)
	assert.Equal(t, h.AstanaID, agreement.Tariffs[1].OriginCityID)
}

func TestCreateAgreementFailures(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	cases := []struct {
		name  string
		input CreateAgreementInput
		want  error
	}{
		{
			name:  "missing contract",
			input: CreateAgreementInput{ContractID: uuid.New(), CompanyID: h.ForwarderID, AgreementNumber: "1"},
			want:  ErrNotFound,
		},
		{
			name:  "not a party",
			input: CreateAgreementInput{ContractID: contract.ID, CompanyID: uuid.New(), AgreementNumber: "1"},
			want:  ErrPermissionDenied,
		},
		{
			name:  "blank number",
			input: CreateAgreementInput{ContractID: contract.ID, CompanyID: h.ForwarderID},
			want:  ErrInvalidInput,
		},
		{
			name: "inverted validity",
			input: CreateAgreementInput{
				ContractID: contract.ID, CompanyID: h.ForwarderID, AgreementNumber: "1",
				ValidFrom: &from, ValidTo: &to,
			},
			want: ErrInvalidInput,
		},
		{
			name: "non positive price",
			input: CreateAgreementInput{
				ContractID: contract.ID, CompanyID: h.ForwarderID, AgreementNumber: "1",
				Tariffs: []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 0}},
			},
			want: ErrInvalidInput,
		},
		{
			name: "unknown city",
			input: CreateAgreementInput{
				ContractID: contract.ID, CompanyID: h.ForwarderID, AgreementNumber: "1",
				Tariffs: []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: uuid.New(), Price: 10}},
			},
			want: ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.agreements.CreateAgreement(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	found, err := h.contracts.GetContract(ctx, contract.ID, h.ForwarderID)
	require.NoError(t, err)
	assert.Empty(t, found.Agreements, "failed creations leave nothing behind")
}

func TestSendRequiresTariffs(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "3/2026",
	})
	require.NoError(t, err)

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, model.AgreementStatusDraft, h.status(t, agreement.ID))

	_, err = h.tariffs.AddTariff(ctx, agreement.ID, h.CustomerID, TariffInput{
		OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 90000,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusDraft, h.status(t, agreement.ID))

	sent, err := h.agreements.SendAgreement(ctx, agreement.ID, h.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusPending, sent.Status)

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	assert.ErrorIs(t, err, ErrInvalidInput, "only DRAFT can be sent")

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = h.agreements.SendAgreement(ctx, uuid.New(), h.ForwarderID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveAndRejectRequireCounterparty(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "4/2026",
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100}},
	})
	require.NoError(t, err)
	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)

	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.ForwarderID, uuid.New())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = h.agreements.RejectAgreement(ctx, agreement.ID, h.ForwarderID, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, model.AgreementStatusPending, h.status(t, agreement.ID))

	approver := uuid.New()
	approved, err := h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, approver)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedByID)
	assert.Equal(t, approver, *approved.ApprovedByID)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, approver)
	assert.ErrorIs(t, err, ErrInvalidInput, "approving twice is not a transition")
}

func TestCustomerProposedAgreementNeedsForwarderDecision(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.CustomerID,
		AgreementNumber: "5/2026",
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100}},
	})
	require.NoError(t, err)
	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.CustomerID)
	require.NoError(t, err)

	_, err = h.agreements.RejectAgreement(ctx, agreement.ID, h.CustomerID, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	rejected, err := h.agreements.RejectAgreement(ctx, agreement.ID, h.ForwarderID, strPtr(" rates too low "))
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "rates too low", *rejected.RejectionReason)
	assert.NotNil(t, rejected.RejectedAt)
	assert.Nil(t, rejected.ApprovedAt)
}

func TestRejectedAgreementIsTerminal(t *testing.T) {
	h := newHarness(t, TariffEditAnyParty)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "6/2026",
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100}},
	})
	require.NoError(t, err)
	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)
	_, err = h.agreements.RejectAgreement(ctx, agreement.ID, h.CustomerID, nil)
	require.NoError(t, err)

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.agreements.RejectAgreement(ctx, agreement.ID, h.CustomerID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.tariffs.AddTariff(ctx, agreement.ID, h.ForwarderID, TariffInput{
		OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	found, err := h.agreements.GetAgreement(ctx, agreement.ID, h.CustomerID)
	require.NoError(t, err)
	require.Len(t, found.Tariffs, 1)

	_, err = h.tariffs.UpdateTariff(ctx, found.Tariffs[0].ID, h.ForwarderID, UpdateTariffInput{Price: floatPtr(200)})
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusRejected, h.status(t, agreement.ID))
}

func TestDraftCannotBeDecided(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "7/2026",
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100}},
	})
	require.NoError(t, err)

	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.agreements.RejectAgreement(ctx, agreement.ID, h.CustomerID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// The transition is checked before the counterparty rule, so the
	// proposer sees the same error.
	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.ForwarderID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, model.AgreementStatusDraft, h.status(t, agreement.ID))
}

func TestListPendingAgreements(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "8/2026",
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 100}},
	})
	require.NoError(t, err)

	pending, err := h.agreements.ListPendingAgreements(ctx, h.CustomerID)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)

	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)

	pending, err = h.agreements.ListPendingAgreements(ctx, h.CustomerID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, agreement.ID, pending[0].ID)

	pending, err = h.agreements.ListPendingAgreements(ctx, h.ForwarderID)
	require.NoError(t, err)
	assert.Empty(t, pending, "the proposer does not decide")
}
