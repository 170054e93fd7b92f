package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"daemonkit/internal/daemonctl"
	"daemonkit/internal/detach"
	"daemonkit/internal/terminate"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start [-- service args...]",
		Short: "Detach and run the configured service as a daemon",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), daemonctl.StartArgs(ctx.launchOptions(), args))
			if err != nil {
				return err
			}
			defer rt.Close()

			// Only the invoking process reaches stdout, and only when no
			// claim will make Start refuse.
			if detach.IsLauncher() {
				if _, claimed, _ := rt.PIDFile.Read(); !claimed {
					fmt.Fprintf(cmd.OutOrStdout(), "Starting daemon (pid file %s)\n", rt.PIDFile.Path())
				}
			}
			return rt.Controller.Start(cmd.Context(), args)
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Terminate the running daemon and remove its pid file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			pid, _, _ := rt.PIDFile.Read()
			result, err := rt.Controller.Stop(cmd.Context())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result {
			case terminate.NotRunning:
				fmt.Fprintln(stdout, "Daemon is not running")
			case terminate.Terminated:
				fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", pid)
			}
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart [-- service args...]",
		Short: "Stop the daemon if it is running, then start it again",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), daemonctl.StartArgs(ctx.launchOptions(), args))
			if err != nil {
				return err
			}
			defer rt.Close()

			if detach.IsLauncher() {
				fmt.Fprintln(cmd.OutOrStdout(), "Restarting daemon...")
			}
			return rt.Controller.Restart(cmd.Context(), args)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.Controller.Status(cmd.Context())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Daemon Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonctl.BuildStatusLines(st, ctx.config, time.Now()) {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}
