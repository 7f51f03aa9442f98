package packager

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/logger"
)

// Discover returns the slash-separated paths, relative to dir, of every file
// ending in the source extension whose top-level directory is one of the
// configured source directories. The result is sorted by byte order.
func Discover(ctx context.Context, dir string, cfg *config.Config) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates, err := doublestar.Glob(
		os.DirFS(dir),
		"**/*"+cfg.SourceExtension,
		doublestar.WithFilesOnly(),
		doublestar.WithFailOnIOErrors(),
	)
	if err != nil {
		return nil, fmt.Errorf("discover %s files: %w", cfg.SourceExtension, err)
	}

	sources := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		if inSourceDir(candidate, cfg.SourceDirs) {
			sources = append(sources, candidate)
		}
	}

	slices.Sort(sources)
	logger.DebugKV(ctx, "Discovered sources", "candidates", len(candidates), "kept", len(sources))

	return sources, nil
}

// inSourceDir reports whether the first segment of rel is one of dirs.
func inSourceDir(rel string, dirs []string) bool {
	top, _, nested := strings.Cut(rel, "/")
	if !nested {
		return false
	}

	return slices.Contains(dirs, top)
}
