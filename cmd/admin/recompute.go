package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	contractmq "sitetrack/contracts/mq"
	"sitetrack/internal/service/project"
	"sitetrack/pkg/trace"
)

func recomputeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute <project-id>",
		Short: "Recompute one project now, or ask the worker to with --async",
		Long: `Recompute one project.

Examples:
  # Recompute in-process and save if anything moved
  sitetrack-admin recompute 42

  # Publish project.recompute.requested for the worker
  sitetrack-admin recompute 42 --async
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			async, _ := cmd.Flags().GetBool("async")
			ctx := cmd.Context()

			if async {
				publisher, err := a.mq()
				if err != nil {
					return err
				}
				ctx, traceID := trace.Ensure(ctx)
				payload := contractmq.ProjectRecomputeRequestedPayload{
					ProjectID: id,
					RequestID: uuid.NewString(),
					TraceID:   traceID,
				}
				if err := publisher.PublishWithContext(ctx, contractmq.RoutingProjectRecomputeRequested, payload); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requested recompute of project %d (request %s)\n", id, payload.RequestID)
				return nil
			}

			projects, err := a.projects()
			if err != nil {
				return err
			}
			outcome, err := projects.Recompute(ctx, id, project.TriggerRequest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project %d: %s\n", id, outcome)
			return nil
		},
	}
	cmd.Flags().Bool("async", false, "Publish a recompute request instead of running it here")
	return cmd
}
