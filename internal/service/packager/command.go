package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/domain/release"
	"github.com/oshokin/var-packager/internal/fileutil"
	"github.com/oshokin/var-packager/internal/logger"
	"github.com/oshokin/var-packager/internal/repository/manifest"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// WorkDir is scanned for sources and receives the manifest and the archive (defaults to ".").
	WorkDir string
	// Version is substituted into the archive name.
	Version release.Version
	// Config is the packaging layout (defaults to config.Default()).
	Config *config.Config
}

// Result describes what a successful run produced.
type Result struct {
	// ManifestPath is the location of the written manifest.
	ManifestPath string
	// ArchivePath is the location of the written archive.
	ArchivePath string
	// Sources are the manifest lines in order.
	Sources []string
	// Entries are the archive entry names in write order.
	Entries []string
	// Checksum is the base64 SHA-512 digest of the archive.
	Checksum string
}

// packager runs one packaging pass. Callers should use Run.
type packager struct {
	// cfg is the validated packaging layout.
	cfg *config.Config
	// dir is the working directory.
	dir string
	// version is the package version being built.
	version release.Version
	// manifest persists the list of packaged sources.
	manifest *manifest.FileRepository
}

var (
	// errOptionsNotSet is returned when Run receives nil options.
	errOptionsNotSet = errors.New("packager options are not set")
	// errNotRegularFile is returned when a listed path is a directory or a device.
	errNotRegularFile = errors.New("not a regular file")
)

// Run discovers sources, writes the manifest and builds the archive.
// The version is validated before anything is written.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "var-packager")

	if opts == nil {
		return nil, errOptionsNotSet
	}

	if err := opts.Version.Validate(); err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	dir := opts.WorkDir
	if dir == "" {
		dir = "."
	}

	p := &packager{
		cfg:      cfg,
		dir:      dir,
		version:  opts.Version,
		manifest: manifest.NewFileRepository(filepath.Join(dir, cfg.ManifestName)),
	}

	result, err := p.Run(logger.WithKV(ctx, "version", opts.Version.String()))
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Packaging completed",
		"archive", result.ArchivePath,
		"sources", len(result.Sources),
		"entries", len(result.Entries),
		"sha512", result.Checksum,
	)

	return result, nil
}

// Run executes discovery, manifest emission and archive construction in order.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	sources, err := Discover(ctx, p.dir, p.cfg)
	if err != nil {
		return nil, err
	}

	if err = p.writeManifest(ctx, sources); err != nil {
		return nil, err
	}

	return p.writeArchive(ctx)
}

// writeManifest replaces the manifest with sources, reporting each line.
func (p *packager) writeManifest(ctx context.Context, sources []string) error {
	logger.Infof(ctx, "Creating %q", p.cfg.ManifestName)

	for _, source := range sources {
		logger.Infof(ctx, "Adding %q", source)
	}

	return p.manifest.Save(ctx, sources)
}

// writeArchive zips the metadata files, the manifest and every path read back
// from the persisted manifest.
func (p *packager) writeArchive(ctx context.Context) (*Result, error) {
	archiveName := p.cfg.ArchiveName(p.version)
	archivePath := filepath.Join(p.dir, archiveName)

	logger.Infof(ctx, "Creating %q", archiveName)

	sources, err := p.manifest.Load(ctx)
	if err != nil {
		return nil, err
	}

	var entries []string

	err = fileutil.WriteAtomic(archivePath, config.DefaultFilePermissions, func(w io.Writer) error {
		archive := newArchiveWriter(w)

		for _, name := range p.cfg.MetadataFiles {
			if err := archive.add(ctx, filepath.Join(p.dir, name), name); err != nil {
				return err
			}
		}

		if err := archive.add(ctx, p.manifest.Path(), p.cfg.EntryPath(p.cfg.ManifestName)); err != nil {
			return err
		}

		for _, source := range sources {
			src := filepath.Join(p.dir, filepath.FromSlash(source))
			if err := archive.add(ctx, src, p.cfg.EntryPath(source)); err != nil {
				return err
			}
		}

		if err := archive.Close(); err != nil {
			return fmt.Errorf("finish archive: %w", err)
		}

		entries = archive.entries

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write archive %s: %w", archiveName, err)
	}

	checksum, err := fileutil.Checksum(archivePath)
	if err != nil {
		return nil, fmt.Errorf("checksum archive %s: %w", archiveName, err)
	}

	return &Result{
		ManifestPath: p.manifest.Path(),
		ArchivePath:  archivePath,
		Sources:      sources,
		Entries:      entries,
		Checksum:     checksum,
	}, nil
}
