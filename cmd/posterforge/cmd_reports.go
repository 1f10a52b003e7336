package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/posterforge/internal/poster"
	"github.com/user/posterforge/internal/report"
	"github.com/user/posterforge/internal/types"
)

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect saved run reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all run reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := report.NewStore(cfg.DataDir)

		ids, err := store.List()
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No reports found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tPOSTER\tLANG\tCREATED\tFAILED\tEXPORT")
		for _, id := range ids {
			var s poster.Summary
			if err := store.Load(id, &s); err != nil {
				fmt.Fprintf(w, "%s\t(unreadable: %v)\n", id, err)
				continue
			}
			export := s.ExportPath
			if export == "" {
				export = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				id, s.Poster, s.Lang, s.Created, s.Failed, export)
		}
		return w.Flush()
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := report.NewStore(cfg.DataDir)

		var s poster.Summary
		if err := store.Load(types.RunID(args[0]), &s); err != nil {
			return fmt.Errorf("load report %s: %w", args[0], err)
		}
		fmt.Fprintln(os.Stdout, s.Text())
		return nil
	},
}
