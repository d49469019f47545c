package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aaxsplit/internal/fileutil"
	"aaxsplit/internal/metadata"
)

// MakeBookDir creates the directory for book under root and returns its
// absolute path.
func MakeBookDir(root string, book metadata.Book) (string, error) {
	dir, err := filepath.Abs(filepath.Join(root, BookDir(book)))
	if err != nil {
		return "", fmt.Errorf("resolve book dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create book dir: %w", err)
	}
	return dir, nil
}

// Placement reports where Shelve put a book.
type Placement struct {
	Dir        string
	Container  string
	RecordPath string
}

// Shelve creates the book directory, writes the book record when the book has
// an ID, and moves src into the directory. The container is renamed to
// <id><ext> when the ID is known.
func Shelve(root string, book metadata.Book, src string) (Placement, error) {
	dir, err := MakeBookDir(root, book)
	if err != nil {
		return Placement{}, err
	}
	placement := Placement{Dir: dir}

	if strings.TrimSpace(book.ID) != "" {
		if placement.RecordPath, err = metadata.WriteRecord(dir, book); err != nil {
			return Placement{}, err
		}
	}

	name := filepath.Base(src)
	if book.ID != "" {
		name = book.ID + filepath.Ext(src)
	}
	placement.Container = filepath.Join(dir, name)

	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return Placement{}, fmt.Errorf("resolve %s: %w", src, err)
	}
	if err := fileutil.MoveFile(srcAbs, placement.Container); err != nil {
		return Placement{}, err
	}
	return placement, nil
}
