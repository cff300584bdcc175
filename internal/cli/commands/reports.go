package commands

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/metadata-validator/internal/cli/ui"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewReportsCommand creates the reports command
func NewReportsCommand(env *environment) *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "reports [ID]",
		Short: "Show stored validation reports",
		Long: `List stored reports newest first, or show one report by ID.

Reports are stored by validate and serve when store.enabled is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.setup(cmd); err != nil {
				return err
			}

			reports, closeStore, err := env.reportStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			noColor := env.cfg.Output.NoColor

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid report id %q: %w", args[0], err)
				}
				report, err := reports.Get(cmd.Context(), id)
				if errors.Is(err, store.ErrReportNotFound) {
					return fmt.Errorf("report %s: %w", id, err)
				}
				if err != nil {
					return err
				}
				if env.jsonOutput() {
					return writeJSON(out, report)
				}
				ui.RenderReport(out, report, noColor)
				return nil
			}

			list, err := reports.List(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			if env.jsonOutput() {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No reports stored")
				return nil
			}
			ui.RenderReportList(out, list, noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only list reports of this kind")
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Maximum number of reports to list")
	return cmd
}
