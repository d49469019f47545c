package filetype

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"aaxsplit/internal/conversion"
	"aaxsplit/internal/download"
	"aaxsplit/internal/library"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/metadata"
	"aaxsplit/internal/services"
)

var catalogAAXPattern = regexp.MustCompile(`^([A-Za-z0-9]{10})(?:_ep[56])?\.(?i:aax)$`)

func isCatalogAAX(path string) bool {
	return catalogAAXPattern.MatchString(filepath.Base(path))
}

func isDescriptor(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".adh")
}

func isContainer(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aax", ".m4b", ".m4a":
		return true
	}
	return false
}

// CatalogID returns the catalog ID encoded in an AAX file name.
func CatalogID(path string) (string, bool) {
	m := catalogAAXPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (r *Registry) handleAAX(ctx context.Context, path string) (*conversion.Report, error) {
	id, _ := CatalogID(path)
	book, err := r.resolve(ctx, r.cfg.Metadata.Domain, id)
	if errors.Is(err, services.ErrNotFound) {
		probe, probeErr := r.prober(services.WithStage(ctx, "metadata"), path)
		if probeErr != nil {
			return nil, probeErr
		}
		logging.WarnWithContext(r.logger, "no metadata record, using container tags", "metadata_fallback",
			logging.String(logging.FieldSource, path),
			logging.String("book_id", id),
			logging.String(logging.FieldImpact, "library folder is named from embedded tags"),
		)
		book = metadata.FromProbe(id, path, probe)
	} else if err != nil {
		return nil, err
	}
	return r.shelveAndSplit(ctx, book, path)
}

func (r *Registry) handleADH(ctx context.Context, path string) (*conversion.Report, error) {
	desc, err := download.ReadDescriptor(path)
	if err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	id := desc.ProductID()
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "descriptor", "product_id",
			"descriptor has no product_id; download it again from the account library", nil)
	}
	// Fail before anything moves.
	if _, err := desc.Extension(); err != nil {
		return nil, err
	}

	book, err := r.resolve(ctx, desc.Domain(), id)
	if errors.Is(err, services.ErrNotFound) {
		title, _ := desc.Get("title")
		book = metadata.Book{ID: id, Title: title}
	} else if err != nil {
		return nil, err
	}

	placement, err := library.Shelve(r.cfg.Paths.LibraryDir, book, path)
	if err != nil {
		return nil, err
	}
	r.logger.Info("descriptor shelved",
		logging.String(logging.FieldSource, path),
		logging.String("book_dir", placement.Dir),
	)
	target, err := download.Target(desc, placement.Container)
	if err != nil {
		return nil, err
	}
	if err := r.downloader.Download(services.WithStage(ctx, "download"), desc, target); err != nil {
		return nil, err
	}
	return r.splitter.Split(ctx, target)
}

func (r *Registry) handleContainer(ctx context.Context, path string) (*conversion.Report, error) {
	probe, err := r.prober(services.WithStage(ctx, "metadata"), path)
	if err != nil {
		return nil, err
	}
	return r.shelveAndSplit(ctx, metadata.FromProbe("", path, probe), path)
}

// resolve looks id up and enforces that the record describes the requested
// book.
func (r *Registry) resolve(ctx context.Context, domain, id string) (metadata.Book, error) {
	book, err := r.resolver.Lookup(ctx, domain, id)
	if err != nil {
		return metadata.Book{}, err
	}
	switch {
	case book.ID == "":
		book.ID = id
	case !strings.EqualFold(book.ID, id):
		if !r.acceptMismatch {
			return metadata.Book{}, services.Wrap(services.ErrValidation, "metadata", "lookup",
				fmt.Sprintf("record for %s describes %s (set metadata.accept_mismatch to use it)", id, book.ID), nil)
		}
		logging.WarnWithContext(r.logger, "metadata record describes a different book", "metadata_mismatch",
			logging.String("requested", id),
			logging.String("resolved", book.ID),
			logging.String(logging.FieldImpact, "book is shelved under the resolved ID"),
		)
	}
	return book, nil
}

func (r *Registry) shelveAndSplit(ctx context.Context, book metadata.Book, path string) (*conversion.Report, error) {
	placement, err := library.Shelve(r.cfg.Paths.LibraryDir, book, path)
	if err != nil {
		return nil, err
	}
	r.logger.Info("book shelved",
		logging.String(logging.FieldSource, path),
		logging.String("container", placement.Container),
	)
	return r.splitter.Split(ctx, placement.Container)
}
