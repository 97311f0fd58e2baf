// Package document handles temporary files and text extraction for
// translation jobs.
package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/m3rciful/translatebot/core/logger"
	"log/slog"
)

// Store keeps per-attempt working files under a single directory. Files are
// named with a random prefix so concurrent users never collide.
type Store struct {
	dir string
}

// NewStore prepares the working directory, creating it when missing.
// An empty dir falls back to a subdirectory of the system temp dir.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "translatebot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("document store dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the working directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the reader's content to a uniquely named file and returns its path.
// The original file name survives as a suffix so downloads stay recognisable.
func (s *Store) Save(r io.Reader, name string) (string, error) {
	base := sanitizeName(name)
	path := filepath.Join(s.dir, uuid.NewString()+"_"+base)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// OutputPath derives the path for a translated result next to the input file.
func (s *Store) OutputPath(inputPath, lang string) string {
	base := filepath.Base(inputPath)
	if i := strings.Index(base, "_"); i >= 0 && i+1 < len(base) {
		base = base[i+1:]
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_%s_%s%s", uuid.NewString(), stem, strings.ToLower(lang), ext)
	return filepath.Join(s.dir, name)
}

// Remove deletes working files, logging failures without propagating them.
// Cleanup must not mask the outcome of the attempt itself.
func (s *Store) Remove(paths ...string) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn(logger.Background(), "doc", "doc.cleanup_failed",
				slog.String("doc", filepath.Base(p)),
				slog.String("err", err.Error()),
			)
		}
	}
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "document"
	}
	return out
}
