package packager

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/logger"
	"github.com/oshokin/var-packager/internal/repository/manifest"
)

// ErrArchiveMismatch is returned when an archive and its embedded manifest disagree.
var ErrArchiveMismatch = errors.New("archive does not match its manifest")

// maxManifestBytes caps how much of the embedded manifest Verify reads.
const maxManifestBytes = 16 << 20

// Report summarizes a verified archive.
type Report struct {
	// Sources are the paths listed in the embedded manifest.
	Sources []string
	// Entries is the number of entries in the archive.
	Entries int
}

// Verify checks that the archive at path holds exactly the metadata files,
// the manifest and one entry per manifest line, and that every listed source
// sits in an allowed directory with the source extension.
func Verify(ctx context.Context, path string, cfg *config.Config) (report *Report, err error) {
	ctx = logger.WithName(ctx, "var-packager")

	if cfg == nil {
		cfg = config.Default()
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var (
		files    = make(map[string]*zip.File, len(reader.File))
		problems []string
	)

	for _, file := range reader.File {
		if _, seen := files[file.Name]; seen {
			problems = append(problems, "duplicate entry "+file.Name)
		}

		files[file.Name] = file
	}

	manifestEntry := cfg.EntryPath(cfg.ManifestName)

	manifestFile, ok := files[manifestEntry]
	if !ok {
		return nil, fmt.Errorf("%w: missing manifest entry %s", ErrArchiveMismatch, manifestEntry)
	}

	sources, err := readManifestEntry(manifestFile)
	if err != nil {
		return nil, err
	}

	expected := make([]string, 0, len(cfg.MetadataFiles)+1+len(sources))
	expected = append(expected, cfg.MetadataFiles...)
	expected = append(expected, manifestEntry)

	for _, source := range sources {
		if !strings.HasSuffix(source, cfg.SourceExtension) || !inSourceDir(source, cfg.SourceDirs) {
			problems = append(problems, "source outside the allowed directories "+source)
		}

		expected = append(expected, cfg.EntryPath(source))
	}

	for _, name := range expected {
		if _, ok := files[name]; !ok {
			problems = append(problems, "missing entry "+name)
		}
	}

	for name := range files {
		if !slices.Contains(expected, name) {
			problems = append(problems, "unexpected entry "+name)
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return nil, fmt.Errorf("%w: %s", ErrArchiveMismatch, strings.Join(problems, "; "))
	}

	logger.InfoKV(ctx, "Archive verified", "path", path, "entries", len(reader.File), "sources", len(sources))

	return &Report{
		Sources: sources,
		Entries: len(reader.File),
	}, nil
}

// readManifestEntry decodes the manifest stored inside the archive.
func readManifestEntry(file *zip.File) (paths []string, err error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open manifest entry: %w", err)
	}

	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	contents, err := io.ReadAll(io.LimitReader(rc, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("read manifest entry: %w", err)
	}

	return manifest.Parse(contents)
}
