package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"aaxsplit/internal/services"
)

// Resolver maps a catalog identifier issued by the store at domain to a book
// description.
type Resolver interface {
	Lookup(ctx context.Context, domain, id string) (Book, error)
}

// SidecarResolver reads <Dir>/<domain>/<id>.json, falling back to
// <Dir>/<id>.json. A missing record yields an error wrapping
// services.ErrNotFound.
type SidecarResolver struct {
	Dir string
}

func NewSidecarResolver(dir string) *SidecarResolver {
	return &SidecarResolver{Dir: dir}
}

func (r *SidecarResolver) Lookup(ctx context.Context, domain, id string) (Book, error) {
	if err := ctx.Err(); err != nil {
		return Book{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return Book{}, services.Wrap(services.ErrValidation, "metadata", "lookup", fmt.Sprintf("invalid catalog id %q", id), nil)
	}
	if strings.TrimSpace(r.Dir) == "" {
		return Book{}, services.Wrap(services.ErrNotFound, "metadata", "lookup", "no metadata directory configured", nil)
	}
	for _, path := range r.candidates(domain, id) {
		book, err := ReadRecord(path)
		if errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return Book{}, err
		}
		if book.ID == "" {
			book.ID = id
		}
		return book, nil
	}
	return Book{}, services.Wrap(services.ErrNotFound, "metadata", "lookup", "no record for "+id, nil)
}

func (r *SidecarResolver) candidates(domain, id string) []string {
	paths := make([]string, 0, 2)
	if domain = strings.TrimSpace(domain); domain != "" && !strings.ContainsAny(domain, `/\`) {
		paths = append(paths, filepath.Join(r.Dir, domain, id+".json"))
	}
	return append(paths, filepath.Join(r.Dir, id+".json"))
}

// ReadRecord loads a JSON book record.
func ReadRecord(path string) (Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Book{}, services.Wrap(services.ErrNotFound, "metadata", "read record", path, err)
		}
		return Book{}, fmt.Errorf("read book record: %w", err)
	}
	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return Book{}, services.Wrap(services.ErrValidation, "metadata", "decode record", path, err)
	}
	return book, nil
}

// WriteRecord stores book as <dir>/<book.ID>.json and returns the path.
func WriteRecord(dir string, book Book) (string, error) {
	if strings.TrimSpace(book.ID) == "" {
		return "", services.Wrap(services.ErrValidation, "metadata", "write record", "book id is required", nil)
	}
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode book record: %w", err)
	}
	path := filepath.Join(dir, book.ID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write book record: %w", err)
	}
	return path, nil
}
