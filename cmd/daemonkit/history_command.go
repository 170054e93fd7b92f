package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"daemonkit/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle events from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("lifecycle journal is disabled (set journal.enabled = true)")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			store, err := journal.Open(cmd.Context(), cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(stdout, "No lifecycle events recorded")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				pid := ""
				if ev.PID > 0 {
					pid = strconv.Itoa(ev.PID)
				}
				rows = append(rows, []string{
					humanize.RelTime(ev.CreatedAt, now, "ago", "from now"),
					string(ev.Action),
					string(ev.Outcome),
					pid,
					ev.Detail,
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"When", "Action", "Outcome", "PID", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultListLimit, "Number of events to show")
	return cmd
}
