package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sitetrack/pkg/outbox"
)

func outboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay outbox events",
	}

	replayService := func() (*outbox.ReplayService, error) {
		pool, err := a.db()
		if err != nil {
			return nil, err
		}
		publisher, err := a.mq()
		if err != nil {
			return nil, err
		}
		return outbox.NewReplayService(outbox.NewRepository(pool), publisher, a.log), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "replay <event-id>",
		Short: "Publish one event again, whatever its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			svc, err := replayService()
			if err != nil {
				return err
			}
			if err := svc.ReplayEvent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", id)
			return nil
		},
	})

	replayFailed := &cobra.Command{
		Use:   "replay-failed",
		Short: "Publish failed events again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			svc, err := replayService()
			if err != nil {
				return err
			}
			n, err := svc.ReplayFailedEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
			return nil
		},
	}
	replayFailed.Flags().Int("limit", 100, "Maximum number of events to replay")
	cmd.AddCommand(replayFailed)

	return cmd
}
