package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
)

const instrumentationName = "github.com/nurpe/freight-contracts/internal/service"

// PriceResolver finds the single tariff in force between two companies for
// a route. It never writes.
type PriceResolver struct {
	lookups   *repository.LookupRepository
	directory *repository.DirectoryRepository
	now       Clock
	tracer    trace.Tracer
	counter   metric.Int64Counter
}

// TariffLookup resolves by exact company pair and city ids.
type TariffLookup struct {
	CustomerCompanyID  uuid.UUID
	ForwarderCompanyID uuid.UUID
	OriginCityID       uuid.UUID
	DestinationCityID  uuid.UUID
	VehicleType        *string
	// At defaults to the resolver clock when zero.
	At time.Time
}

// CustomerTariffLookup resolves by city names across the customer's forwarders.
type CustomerTariffLookup struct {
	CustomerCompanyID uuid.UUID
	// ForwarderCompanyID optionally restricts the search to one forwarder.
	ForwarderCompanyID  *uuid.UUID
	OriginCityName      string
	DestinationCityName string
	VehicleType         *string
	At                  time.Time
}

func NewPriceResolver(lookups *repository.LookupRepository, directory *repository.DirectoryRepository) *PriceResolver {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"tariff_lookups_total",
		metric.WithDescription("Tariff lookups by outcome"),
	)
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &PriceResolver{
		lookups:   lookups,
		directory: directory,
		now:       systemClock,
		tracer:    otel.Tracer(instrumentationName),
		counter:   counter,
	}
}

func (r *PriceResolver) WithClock(now Clock) *PriceResolver {
	r.now = now
	return r
}

// LookupTariff returns the tariff in force or nil. A missing tariff is not an error.
func (r *PriceResolver) LookupTariff(ctx context.Context, q TariffLookup) (*model.ResolvedTariff, error) {
	ctx, span := r.tracer.Start(ctx, "PriceResolver.LookupTariff",
		trace.WithAttributes(
			attribute.String("customer.id", q.CustomerCompanyID.String()),
			attribute.String("forwarder.id", q.ForwarderCompanyID.String()),
			attribute.String("vehicle_type", derefString(q.VehicleType)),
		),
	)
	defer span.End()

	if q.CustomerCompanyID == uuid.Nil || q.ForwarderCompanyID == uuid.Nil {
		return nil, r.fail(span, fmt.Errorf("%w: customer and forwarder are required", ErrInvalidInput))
	}
	if q.OriginCityID == uuid.Nil || q.DestinationCityID == uuid.Nil {
		return nil, r.fail(span, fmt.Errorf("%w: origin and destination cities are required", ErrInvalidInput))
	}

	forwarderID := q.ForwarderCompanyID
	filter := repository.TariffFilter{
		CustomerCompanyID:  q.CustomerCompanyID,
		ForwarderCompanyID: &forwarderID,
		OriginCityIDs:      []uuid.UUID{q.OriginCityID},
		DestinationCityIDs: []uuid.UUID{q.DestinationCityID},
		At:                 r.at(q.At),
	}

	tariff, err := r.resolve(ctx, span, filter, q.VehicleType)
	if err != nil {
		return nil, r.fail(span, err)
	}
	return tariff, nil
}

// LookupTariffForCustomer resolves by city names. Names match case-insensitively
// and may map to several cities; all of them are searched.
func (r *PriceResolver) LookupTariffForCustomer(ctx context.Context, q CustomerTariffLookup) (*model.ResolvedTariff, error) {
	ctx, span := r.tracer.Start(ctx, "PriceResolver.LookupTariffForCustomer",
		trace.WithAttributes(
			attribute.String("customer.id", q.CustomerCompanyID.String()),
			attribute.String("origin.name", q.OriginCityName),
			attribute.String("destination.name", q.DestinationCityName),
			attribute.String("vehicle_type", derefString(q.VehicleType)),
		),
	)
	defer span.End()

	if q.CustomerCompanyID == uuid.Nil {
		return nil, r.fail(span, fmt.Errorf("%w: customer is required", ErrInvalidInput))
	}
	if strings.TrimSpace(q.OriginCityName) == "" || strings.TrimSpace(q.DestinationCityName) == "" {
		return nil, r.fail(span, fmt.Errorf("%w: origin and destination cities are required", ErrInvalidInput))
	}

	originIDs, err := r.directory.FindCityIDsByName(ctx, q.OriginCityName)
	if err != nil {
		return nil, r.fail(span, err)
	}
	destinationIDs, err := r.directory.FindCityIDsByName(ctx, q.DestinationCityName)
	if err != nil {
		return nil, r.fail(span, err)
	}
	span.SetAttributes(
		attribute.Int("origin.matches", len(originIDs)),
		attribute.Int("destination.matches", len(destinationIDs)),
	)
	if len(originIDs) == 0 || len(destinationIDs) == 0 {
		r.record(ctx, span, nil, false)
		return nil, nil
	}

	filter := repository.TariffFilter{
		CustomerCompanyID:  q.CustomerCompanyID,
		ForwarderCompanyID: q.ForwarderCompanyID,
		OriginCityIDs:      originIDs,
		DestinationCityIDs: destinationIDs,
		At:                 r.at(q.At),
	}

	tariff, err := r.resolve(ctx, span, filter, q.VehicleType)
	if err != nil {
		return nil, r.fail(span, err)
	}
	return tariff, nil
}

// resolve prefers an exact vehicle type match and falls back to the generic
// tariff. Within each tier the newest tariff wins.
func (r *PriceResolver) resolve(ctx context.Context, span trace.Span, filter repository.TariffFilter, vehicleType *string) (*model.ResolvedTariff, error) {
	if vt := normalizeVehicleType(vehicleType); vt != nil {
		filter.VehicleType = vt
		tariff, err := r.lookups.FindNewestTariff(ctx, filter)
		if err != nil {
			return nil, err
		}
		if tariff != nil {
			r.record(ctx, span, tariff, false)
			return tariff, nil
		}
	}

	filter.VehicleType = nil
	tariff, err := r.lookups.FindNewestTariff(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.record(ctx, span, tariff, normalizeVehicleType(vehicleType) != nil)
	return tariff, nil
}

func (r *PriceResolver) record(ctx context.Context, span trace.Span, tariff *model.ResolvedTariff, fallback bool) {
	result := "miss"
	if tariff != nil {
		result = "hit"
		span.SetAttributes(
			attribute.String("tariff.id", tariff.ID.String()),
			attribute.Float64("tariff.price", tariff.Price),
		)
	}
	span.SetAttributes(
		attribute.String("lookup.result", result),
		attribute.Bool("lookup.generic_fallback", fallback),
	)
	r.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.Bool("generic_fallback", fallback),
	))
}

func (r *PriceResolver) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *PriceResolver) at(at time.Time) time.Time {
	if at.IsZero() {
		return r.now()
	}
	return at.UTC()
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
