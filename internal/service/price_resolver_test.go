package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/testutil"
)

func TestLookupPrefersExactVehicleType(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	contract := h.contract(t)
	h.approvedAgreement(t, contract.ID)

	tent := h.lookup(t, strPtr("Tent"))
	require.NotNil(t, tent)
	assert.InDelta(t, 180000, tent.Price, 0.001)
	require.NotNil(t, tent.VehicleType)
	assert.Equal(t, "Tent", *tent.VehicleType)
	assert.Equal(t, "1/2026", tent.AgreementNumber)
	assert.Equal(t, contract.ID, tent.ContractID)

	ref := h.lookup(t, strPtr("Ref"))
	require.NotNil(t, ref)
	assert.InDelta(t, 150000, ref.Price, 0.001)
	assert.Nil(t, ref.VehicleType)

	generic := h.lookup(t, nil)
	require.NotNil(t, generic)
	assert.InDelta(t, 150000, generic.Price, 0.001)
}

func TestLookupNewestTariffWinsWithinTier(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)
	h.approvedAgreement(t, contract.ID)

	second, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.CustomerID,
		AgreementNumber: "2/2026",
		Tariffs: []TariffInput{
			{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 145000},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 150000, h.lookup(t, nil).Price, 0.001, "drafts do not resolve")

	_, err = h.agreements.SendAgreement(ctx, second.ID, h.CustomerID)
	require.NoError(t, err)
	_, err = h.agreements.ApproveAgreement(ctx, second.ID, h.ForwarderID, uuid.New())
	require.NoError(t, err)

	assert.InDelta(t, 145000, h.lookup(t, nil).Price, 0.001)
	assert.InDelta(t, 180000, h.lookup(t, strPtr("Tent")).Price, 0.001, "exact type beats a newer generic")
}

func TestLookupReturnsNilWithoutValidApprovedAgreement(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()
	contract := h.contract(t)

	assert.Nil(t, h.lookup(t, nil))

	validTo := startTime.AddDate(0, 1, 0)
	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "11/2026",
		ValidTo:         &validTo,
		Tariffs:         []TariffInput{{OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID, Price: 99000}},
	})
	require.NoError(t, err)
	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)
	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, uuid.New())
	require.NoError(t, err)

	assert.NotNil(t, h.lookup(t, nil))

	expired, err := h.resolver.LookupTariff(ctx, TariffLookup{
		CustomerCompanyID:  h.CustomerID,
		ForwarderCompanyID: h.ForwarderID,
		OriginCityID:       h.AlmatyID,
		DestinationCityID:  h.AstanaID,
		At:                 validTo.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Nil(t, expired)

	reversed, err := h.resolver.LookupTariff(ctx, TariffLookup{
		CustomerCompanyID:  h.CustomerID,
		ForwarderCompanyID: h.ForwarderID,
		OriginCityID:       h.AstanaID,
		DestinationCityID:  h.AlmatyID,
	})
	require.NoError(t, err)
	assert.Nil(t, reversed)
}

func TestLookupTariffRejectsIncompleteQuery(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()

	_, err := h.resolver.LookupTariff(ctx, TariffLookup{CustomerCompanyID: h.CustomerID, OriginCityID: h.AlmatyID, DestinationCityID: h.AstanaID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{CustomerCompanyID: h.CustomerID, OriginCityName: "Almaty"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLookupTariffForCustomerMatchesCityNames(t *testing.T) {
	h := newHarness(t, TariffEditForwarderOnly)
	ctx := context.Background()

	// A second Almaty in another region carries the tariff.
	otherAlmaty := testutil.SeedCity(t, h.DB, "Almaty", "Other Region")
	contract := h.contract(t)
	agreement, err := h.agreements.CreateAgreement(ctx, CreateAgreementInput{
		ContractID:      contract.ID,
		CompanyID:       h.ForwarderID,
		AgreementNumber: "12/2026",
		Tariffs:         []TariffInput{{OriginCityID: otherAlmaty, DestinationCityID: h.AstanaID, Price: 77000}},
	})
	require.NoError(t, err)
	_, err = h.agreements.SendAgreement(ctx, agreement.ID, h.ForwarderID)
	require.NoError(t, err)
	_, err = h.agreements.ApproveAgreement(ctx, agreement.ID, h.CustomerID, uuid.New())
	require.NoError(t, err)

	found, err := h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{
		CustomerCompanyID:   h.CustomerID,
		OriginCityName:      "ALMATY",
		DestinationCityName: "astana",
		VehicleType:         strPtr("Tent"),
	})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.InDelta(t, 77000, found.Price, 0.001)
	assert.Equal(t, h.ForwarderID, found.ForwarderCompanyID)

	forwarderID := h.ForwarderID
	found, err = h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{
		CustomerCompanyID:   h.CustomerID,
		ForwarderCompanyID:  &forwarderID,
		OriginCityName:      "Almaty",
		DestinationCityName: "Astana",
	})
	require.NoError(t, err)
	assert.NotNil(t, found)

	otherForwarder := uuid.New()
	found, err = h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{
		CustomerCompanyID:   h.CustomerID,
		ForwarderCompanyID:  &otherForwarder,
		OriginCityName:      "Almaty",
		DestinationCityName: "Astana",
	})
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{
		CustomerCompanyID:   h.CustomerID,
		OriginCityName:      "Atlantis",
		DestinationCityName: "Astana",
	})
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = h.resolver.LookupTariffForCustomer(ctx, CustomerTariffLookup{
		CustomerCompanyID:   h.ForwarderID,
		OriginCityName:      "Almaty",
		DestinationCityName: "Astana",
	})
	require.NoError(t, err)
	assert.Nil(t, found, "only the customer's own contracts are searched")
}

func TestPriceResolverRecordsSpansAndLookups(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	prevTracer, prevMeter := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	h := newHarness(t, TariffEditForwarderOnly)
	contract := h.contract(t)
	h.approvedAgreement(t, contract.ID)

	resolver := NewPriceResolver(repository.NewLookupRepository(h.DB), repository.NewDirectoryRepository(h.DB)).
		WithClock(h.clock.Now)
	h.resolver = resolver

	require.NotNil(t, h.lookup(t, strPtr("Ref")))
	_, err := h.resolver.LookupTariff(context.Background(), TariffLookup{
		CustomerCompanyID:  h.CustomerID,
		ForwarderCompanyID: uuid.New(),
		OriginCityID:       h.AlmatyID,
		DestinationCityID:  h.AstanaID,
	})
	require.NoError(t, err)

	var spans []sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if strings.HasPrefix(span.Name(), "PriceResolver.") {
			spans = append(spans, span)
		}
	}
	require.Len(t, spans, 2)
	assert.Equal(t, "PriceResolver.LookupTariff", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "hit", attrs["lookup.result"].AsString())
	assert.True(t, attrs["lookup.generic_fallback"].AsBool())
	assert.InDelta(t, 150000, attrs["tariff.price"].AsFloat64(), 0.001)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	results := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "tariff_lookups_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, point := range sum.DataPoints {
				result, _ := point.Attributes.Value("result")
				results[result.AsString()] += point.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"hit": 1, "miss": 1}, results)
}
