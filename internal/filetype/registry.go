// Package filetype routes input files to the handler that knows how to turn
// them into a shelved, split book.
package filetype

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"aaxsplit/internal/config"
	"aaxsplit/internal/conversion"
	"aaxsplit/internal/download"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/metadata"
	"aaxsplit/internal/services"
)

// Splitter converts a container that already sits in its book directory.
type Splitter interface {
	Split(ctx context.Context, path string) (*conversion.Report, error)
}

type handler struct {
	name   string
	match  func(path string) bool
	handle func(ctx context.Context, path string) (*conversion.Report, error)
}

// Registry holds the handlers in priority order. The first handler whose
// predicate accepts a path handles it.
type Registry struct {
	cfg            *config.Config
	splitter       Splitter
	prober         conversion.Prober
	resolver       metadata.Resolver
	downloader     download.Downloader
	acceptMismatch bool
	logger         *slog.Logger
	handlers       []handler
}

// Option customizes a Registry.
type Option func(*Registry)

// WithProber replaces the ffprobe invocation used for tag fallbacks.
func WithProber(p conversion.Prober) Option {
	return func(r *Registry) { r.prober = p }
}

// WithResolver replaces the metadata resolver.
func WithResolver(res metadata.Resolver) Option {
	return func(r *Registry) { r.resolver = res }
}

// WithDownloader replaces the descriptor downloader.
func WithDownloader(d download.Downloader) Option {
	return func(r *Registry) { r.downloader = d }
}

// WithAcceptMismatch overrides metadata.accept_mismatch.
func WithAcceptMismatch(accept bool) Option {
	return func(r *Registry) { r.acceptMismatch = accept }
}

// NewRegistry builds the registry. Unless overridden, metadata comes from the
// sidecar directory in the config and downloads go over HTTP.
func NewRegistry(cfg *config.Config, splitter Splitter, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		cfg:            cfg,
		splitter:       splitter,
		acceptMismatch: cfg.Metadata.AcceptMismatch,
		logger:         logging.NewComponentLogger(logger, "filetype"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.prober == nil {
		binary := cfg.FFprobeBinary()
		r.prober = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}
	if r.resolver == nil {
		r.resolver = metadata.NewSidecarResolver(cfg.Paths.MetadataDir)
	}
	if r.downloader == nil {
		r.downloader = download.NewHTTPDownloader(cfg.Download.BaseURL, cfg.Download.UserAgent,
			time.Duration(cfg.Download.TimeoutSeconds)*time.Second, nil, logger)
	}
	r.handlers = []handler{
		{name: "aax", match: isCatalogAAX, handle: r.handleAAX},
		{name: "adh", match: isDescriptor, handle: r.handleADH},
		{name: "container", match: isContainer, handle: r.handleContainer},
	}
	return r
}

// Match returns the name of the handler that would take path.
func (r *Registry) Match(path string) (string, bool) {
	if h, ok := r.lookup(path); ok {
		return h.name, true
	}
	return "", false
}

// Handle dispatches path to its handler.
func (r *Registry) Handle(ctx context.Context, path string) (*conversion.Report, error) {
	h, ok := r.lookup(path)
	if !ok {
		return nil, services.Wrap(services.ErrUnsupportedFile, "dispatch", "match", "cannot handle "+filepath.Base(path), nil)
	}
	r.logger.Debug("dispatching file",
		logging.String(logging.FieldSource, path),
		logging.String("handler", h.name),
	)
	return h.handle(ctx, path)
}

func (r *Registry) lookup(path string) (handler, bool) {
	for _, h := range r.handlers {
		if h.match(path) {
			return h, true
		}
	}
	return handler{}, false
}
