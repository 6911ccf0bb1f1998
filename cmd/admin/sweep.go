package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitetrack/internal/service/sweep"
)

func sweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Recompute and save every ongoing project once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects()
			if err != nil {
				return err
			}

			report, err := sweep.NewSweeper(projects, a.cfg.Sweep.Hour, false, a.log).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved=%d unchanged=%d failed=%d took=%s\n",
				report.Saved, report.Unchanged, report.Failed, report.Duration)
			return nil
		},
	}
}
