package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aaxsplit/internal/deps"
	"aaxsplit/internal/history"
	"aaxsplit/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check external tools, directories and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			toolRows := [][]string{}
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				detail := status.Detail
				if status.Available {
					versionCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
					version, verr := deps.Version(versionCtx, status.Path)
					cancel()
					detail = status.Path
					if verr == nil {
						detail = fmt.Sprintf("%s (%s)", status.Path, version)
					}
				}
				toolRows = append(toolRows, []string{status.Name, yesNo(status.Available), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Available", "Detail"}, toolRows, nil))

			checks := []preflight.Result{
				preflight.CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
				preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				preflight.CheckMetadataDir(cfg.Paths.MetadataDir),
			}
			dirRows := make([][]string, 0, len(checks))
			for _, r := range checks {
				dirRows = append(dirRows, []string{r.Name, yesNo(r.Passed), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "OK", "Detail"}, dirRows, nil))

			return ctx.withHistory(func(store *history.Store) error {
				recent, err := store.List(cmd.Context(), 0)
				if err != nil {
					return err
				}
				keys, err := store.KnownKeys(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"History", "Value"},
					[][]string{
						{"Database", store.Path()},
						{"Conversions", strconv.Itoa(len(recent))},
						{"Remembered keys", strconv.Itoa(len(keys))},
						{"Configured keys", strconv.Itoa(len(cfg.Conversion.ActivationBytes))},
					},
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
