package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aaxsplit/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var path string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the log of the most recent conversion run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path, err = logs.Latest(cfg.Paths.LogDir)
				if errors.Is(err, logs.ErrNoRunLogs) {
					fmt.Fprintf(cmd.OutOrStdout(), "No run logs in %s\n", cfg.Paths.LogDir)
					return nil
				}
				if err != nil {
					return err
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = logs.Tail(runCtx, path, cmd.OutOrStdout(), logs.TailOptions{Lines: lines, Follow: follow})
			if follow && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().StringVar(&path, "file", "", "Read this log file instead of the newest run log")
	return cmd
}
