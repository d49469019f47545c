package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"aaxsplit/internal/logging"
	"aaxsplit/internal/services"
)

// Downloader fetches the container a descriptor describes into target.
type Downloader interface {
	Download(ctx context.Context, d Descriptor, target string) error
}

// HTTPDownloader downloads containers over HTTP.
type HTTPDownloader struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	// Progress receives the progress bar; nil hides it.
	Progress io.Writer
	Logger   *slog.Logger
}

// NewHTTPDownloader builds a downloader whose requests time out after timeout.
func NewHTTPDownloader(baseURL, userAgent string, timeout time.Duration, progress io.Writer, logger *slog.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		Client:    &http.Client{Timeout: timeout},
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Progress:  progress,
		Logger:    logging.NewComponentLogger(logger, "download"),
	}
}

// URL returns the request URL for d.
func (h *HTTPDownloader) URL(d Descriptor) string {
	return strings.TrimRight(h.BaseURL, "?") + "?" + d.Encode()
}

// Download streams the container into target. An existing target is refused;
// partial data lives in target+".part" and is renamed only on success.
func (h *HTTPDownloader) Download(ctx context.Context, d Descriptor, target string) error {
	if _, err := os.Stat(target); err == nil {
		return services.Wrap(services.ErrValidation, "download", "target", "already exists: "+target, nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat target: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL(d), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "download", "request", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "download", "request", "unexpected status "+resp.Status, nil)
	}

	partial := target + ".part"
	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create %s: %w", partial, err)
	}

	progress := h.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %q", filepath.Base(target))),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetVisibility(h.Progress != nil),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	written, copyErr := io.Copy(io.MultiWriter(out, bar), resp.Body)
	closeErr := out.Close()
	_ = bar.Finish()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && resp.ContentLength >= 0 && written != resp.ContentLength {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if copyErr != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "download", "stream", target, copyErr)
	}

	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("finalize download: %w", err)
	}
	logging.WithContext(ctx, h.Logger).Info("download complete",
		logging.String("target", target),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
