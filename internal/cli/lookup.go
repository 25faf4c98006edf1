package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/service"
)

func LookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve the tariff in force for a customer route",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := lookupQuery(cmd)
			if err != nil {
				return err
			}

			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(database)

			resolver := service.NewPriceResolver(
				repository.NewLookupRepository(database),
				repository.NewDirectoryRepository(database),
			)
			tariff, err := resolver.LookupTariffForCustomer(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			printTariff(cmd, tariff)
			return nil
		},
	}

	cmd.Flags().String("customer", "", "customer company id")
	cmd.Flags().String("forwarder", "", "restrict to one forwarder company id")
	cmd.Flags().String("from", "", "origin city name")
	cmd.Flags().String("to", "", "destination city name")
	cmd.Flags().String("vehicle", "", "vehicle type")
	cmd.Flags().String("at", "", "resolution time, RFC3339 or YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func lookupQuery(cmd *cobra.Command) (service.CustomerTariffLookup, error) {
	customerRaw, _ := cmd.Flags().GetString("customer")
	forwarderRaw, _ := cmd.Flags().GetString("forwarder")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	vehicle, _ := cmd.Flags().GetString("vehicle")
	atRaw, _ := cmd.Flags().GetString("at")

	customerID, err := uuid.Parse(strings.TrimSpace(customerRaw))
	if err != nil {
		return service.CustomerTariffLookup{}, fmt.Errorf("invalid --customer: %w", err)
	}

	query := service.CustomerTariffLookup{
		CustomerCompanyID:   customerID,
		OriginCityName:      from,
		DestinationCityName: to,
	}
	if strings.TrimSpace(forwarderRaw) != "" {
		forwarderID, err := uuid.Parse(strings.TrimSpace(forwarderRaw))
		if err != nil {
			return service.CustomerTariffLookup{}, fmt.Errorf("invalid --forwarder: %w", err)
		}
		query.ForwarderCompanyID = &forwarderID
	}
	if strings.TrimSpace(vehicle) != "" {
		query.VehicleType = &vehicle
	}
	if strings.TrimSpace(atRaw) != "" {
		at, err := parseTime(atRaw)
		if err != nil {
			return service.CustomerTariffLookup{}, fmt.Errorf("invalid --at: %w", err)
		}
		query.At = at
	}
	return query, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", raw)
}

func printTariff(cmd *cobra.Command, tariff *model.ResolvedTariff) {
	out := cmd.OutOrStdout()
	if tariff == nil {
		fmt.Fprintln(out, color.New(color.FgYellow).Sprint("NO TARIFF"))
		return
	}

	vehicle := "any"
	if tariff.VehicleType != nil {
		vehicle = *tariff.VehicleType
	}
	fmt.Fprintf(out, "%s %.2f\n", color.New(color.FgGreen).Sprint("PRICE"), tariff.Price)
	fmt.Fprintf(out, "Tariff: %s\n", tariff.ID)
	fmt.Fprintf(out, "Vehicle: %s\n", vehicle)
	fmt.Fprintf(out, "Agreement: %s (%s)\n", tariff.AgreementNumber, tariff.AgreementID)
	fmt.Fprintf(out, "Contract: %s (%s)\n", tariff.ContractNumber, tariff.ContractID)
	fmt.Fprintf(out, "Forwarder: %s\n", tariff.ForwarderCompanyID)
}
