package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nurpe/freight-contracts/internal/model"
	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/service"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

func PendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending [company-id]",
		Short: "List agreements waiting for a company's decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid company id: %w", err)
			}

			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(database)

			agreements := service.NewAgreementService(
				repository.NewContractRepository(database),
				repository.NewAgreementRepository(database),
				repository.NewDirectoryRepository(database),
				workflow.New(),
			)
			pending, err := agreements.ListPendingAgreements(cmd.Context(), companyID)
			if err != nil {
				return fmt.Errorf("failed to list pending agreements: %w", err)
			}

			printAgreements(cmd, pending)
			return nil
		},
	}
	return cmd
}

func printAgreements(cmd *cobra.Command, agreements []model.SupplementaryAgreement) {
	out := cmd.OutOrStdout()
	if len(agreements) == 0 {
		fmt.Fprintln(out, "No pending agreements.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tCONTRACT\tPROPOSED BY\tTARIFFS\tCREATED")
	fmt.Fprintln(w, "--\t------\t--------\t-----------\t-------\t-------")
	for _, item := range agreements {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			item.ID,
			item.AgreementNumber,
			item.ContractID,
			color.New(color.FgCyan).Sprint(item.ProposedBy),
			len(item.Tariffs),
			item.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
}
