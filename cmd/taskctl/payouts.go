package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/taskhive/backend/internal/services"
)

func payoutsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "payouts", Short: "Inspect payout requests"}
	cmd.AddCommand(payoutsListCmd())
	return cmd
}

func payoutsListCmd() *cobra.Command {
	var status string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payout requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			result, err := services.NewWalletService(db, cfg.Tier).ListPayouts(cmd.Context(), &services.PayoutListRequest{
				Page:     page,
				PageSize: pageSize,
				Status:   status,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"ID", "Reference", "User", "Amount", "Method", "Status", "Requested"})
			for _, p := range result.Items {
				user := ""
				if p.User != nil {
					user = p.User.Username
				}
				tw.AppendRow(table.Row{p.ID, p.Reference, user, p.Amount.StringFixed(2), p.PaymentMethod, p.Status, p.CreatedAt.Format("2006-01-02 15:04")})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "", "Total", result.Total})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (Pending, Completed, Rejected)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "rows per page")
	return cmd
}
