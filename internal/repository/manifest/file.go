package manifest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/fileutil"
)

// Repository defines persistence operations for the file manifest.
type Repository interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, paths []string) error
}

// FileRepository keeps the manifest in a plain UTF-8 text file.
type FileRepository struct {
	// path is the filesystem location of the manifest.
	path string
}

// ErrNotFound is returned when the manifest file does not exist.
var ErrNotFound = errors.New("manifest not found")

// NewFileRepository creates a repository that reads/writes the manifest at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location on disk.
func (r *FileRepository) Path() string {
	return r.path
}

// Save replaces the manifest with paths, in the given order.
func (r *FileRepository) Save(ctx context.Context, paths []string) error {
	err := fileutil.WriteAtomic(r.path, config.DefaultFilePermissions, func(w io.Writer) error {
		buf := bufio.NewWriter(w)

		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}

			if _, err := buf.WriteString(p + "\n"); err != nil {
				return err
			}
		}

		return buf.Flush()
	})
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Load reads the manifest back, trimming whitespace and skipping blank lines.
func (r *FileRepository) Load(_ context.Context) ([]string, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Parse splits manifest contents into paths.
func Parse(contents []byte) ([]string, error) {
	var (
		paths   []string
		scanner = bufio.NewScanner(bytes.NewReader(contents))
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		paths = append(paths, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return paths, nil
}
