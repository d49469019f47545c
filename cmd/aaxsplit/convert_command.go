package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"aaxsplit/internal/config"
	"aaxsplit/internal/conversion"
	"aaxsplit/internal/download"
	"aaxsplit/internal/filetype"
	"aaxsplit/internal/history"
	"aaxsplit/internal/notifications"
	"aaxsplit/internal/preflight"
	"aaxsplit/internal/services/jellyfin"
)

type convertOptions struct {
	activationBytes []string
	bitrate         int
	parallel        int
	noSnip          bool
	introSeconds    float64
	outroSeconds    float64
	libraryDir      string
	acceptMismatch  bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Shelve and split audiobook files into chapters",
		Long: "Convert .aax, .m4b and .m4a containers into one file per chapter.\n" +
			"Catalog-named AAX files and .adh descriptors are shelved into the library\n" +
			"using their metadata record first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cfg, cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			if msg := preflight.Summarize(preflight.RunAll(cmd.Context(), cfg)); msg != "" {
				return fmt.Errorf("preflight failed: %s", msg)
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stderr := cmd.ErrOrStderr()
			sessionOpts := []conversion.Option{
				conversion.WithHistory(store),
				conversion.WithProgress(newBarProgress(stderr)),
			}
			if cmd.Flags().Changed("bitrate") {
				sessionOpts = append(sessionOpts, conversion.WithForcedBitrate(opts.bitrate))
			}
			session := conversion.NewSession(cfg, logger, sessionOpts...)

			var downloadProgress io.Writer
			if isTerminalWriter(stderr) {
				downloadProgress = stderr
			}
			downloader := download.NewHTTPDownloader(cfg.Download.BaseURL, cfg.Download.UserAgent,
				time.Duration(cfg.Download.TimeoutSeconds)*time.Second, downloadProgress, logger)
			registry := filetype.NewRegistry(cfg, session, logger,
				filetype.WithDownloader(downloader),
				filetype.WithAcceptMismatch(cfg.Metadata.AcceptMismatch),
			)

			started := time.Now()
			outcomes := conversion.NewDriver(registry, logger).Run(runCtx, args)
			printOutcomes(cmd.OutOrStdout(), outcomes)

			if err := runCtx.Err(); err != nil {
				return context.Canceled
			}
			announceRun(runCtx, logger, notifications.NewService(cfg), jellyfin.NewConfiguredService(cfg), outcomes, time.Since(started))
			if failed := conversion.FailedCount(outcomes); failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.activationBytes, "activation-bytes", "a", nil, "Activation bytes to try (repeatable)")
	flags.IntVarP(&opts.bitrate, "bitrate", "b", 0, "Force the output bitrate in kb/s")
	flags.IntVarP(&opts.parallel, "parallel", "p", 0, "Chapters to encode at once (default: configured value)")
	flags.BoolVarP(&opts.noSnip, "no-snip", "s", false, "Keep the intro and outro inside the first and last chapters")
	flags.Float64VarP(&opts.introSeconds, "snip-intro-len", "i", 0, "Seconds to split off the start as the intro")
	flags.Float64VarP(&opts.outroSeconds, "snip-outro-len", "o", 0, "Seconds to split off the end as the outro")
	flags.StringVarP(&opts.libraryDir, "library", "l", "", "Library directory for shelved books")
	flags.BoolVar(&opts.acceptMismatch, "accept-mismatch", false, "Use metadata records that describe a different catalog ID")
	return cmd
}

// apply layers explicitly set flags over cfg and re-validates the result.
func (o convertOptions) apply(cfg *config.Config, flags *pflag.FlagSet) error {
	if len(o.activationBytes) > 0 {
		cfg.Conversion.ActivationBytes = config.NormalizeKeys(append(cfg.Conversion.ActivationBytes, o.activationBytes...))
	}
	if flags.Changed("bitrate") {
		if o.bitrate <= 0 {
			return errors.New("--bitrate must be positive")
		}
		cfg.Conversion.Bitrate = o.bitrate
	}
	if flags.Changed("parallel") {
		cfg.Conversion.Parallel = o.parallel
	}
	if o.noSnip {
		cfg.Conversion.Snip = false
	}
	if flags.Changed("snip-intro-len") {
		cfg.Conversion.SnipIntroSeconds = o.introSeconds
	}
	if flags.Changed("snip-outro-len") {
		cfg.Conversion.SnipOutroSeconds = o.outroSeconds
	}
	if flags.Changed("library") {
		expanded, err := config.ExpandPath(o.libraryDir)
		if err != nil {
			return fmt.Errorf("resolve library path: %w", err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return fmt.Errorf("resolve library path: %w", err)
		}
		cfg.Paths.LibraryDir = abs
	}
	if o.acceptMismatch {
		cfg.Metadata.AcceptMismatch = true
	}
	return cfg.Validate()
}
