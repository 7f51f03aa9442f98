package packager

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/domain/release"
	"github.com/oshokin/var-packager/internal/logger"
	"github.com/oshokin/var-packager/internal/repository/manifest"
)

const prefix = "Custom/Scripts/Yoooi/BusDriver/"

// writeTree creates files (slash-separated names) with their contents under dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
}

// exampleTree is the working tree used by most tests.
func exampleTree() map[string]string {
	return map[string]string{
		"src/A.cs":   "class A {}",
		"lib/B.cs":   "class B {}",
		"other/C.cs": "class C {}",
		"meta.json":  `{"licenseType":"CC BY-SA"}`,
		"LICENSE.md": "license text",
	}
}

// archiveNames returns entry names of the zip at path in stored order.
func archiveNames(t *testing.T, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, r.Close())
	}()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}

	return names
}

// readEntry returns the contents of one archive entry.
func readEntry(t *testing.T, path, name string) string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, r.Close())
	}()

	rc, err := r.Open(name)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, rc.Close())
	}()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(data)
}

// observedContext returns a context whose logger records entries in memory.
func observedContext() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)

	return logger.ToContext(context.Background(), zap.New(core).Sugar()), logs
}

// TestDiscover keeps only source files under the allowed top-level directories, sorted.
func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/A.cs":             "",
		"src/nested/deep/D.cs": "",
		"src/readme.txt":       "",
		"src/Z.csx":            "",
		"lib/B.cs":             "",
		"lib/a.cs":             "",
		"other/C.cs":           "",
		"other/src/E.cs":       "",
		"srcx/F.cs":            "",
		"root.cs":              "",
		"src.cs":               "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "folder.cs"), 0o755))

	got, err := Discover(context.Background(), dir, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{
		"lib/B.cs",
		"lib/a.cs",
		"src/A.cs",
		"src/nested/deep/D.cs",
	}, got)
}

// TestDiscover_Empty returns no sources for a tree without matches.
func TestDiscover_Empty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"other/C.cs": ""})

	got, err := Discover(context.Background(), dir, config.Default())
	require.NoError(t, err)
	require.Empty(t, got)
}

// TestRun_EndToEnd packages the example tree with version 3.
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, exampleTree())

	ctx, logs := observedContext()

	result, err := Run(ctx, &Options{WorkDir: dir, Version: 3})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "ADD_ME.cslist"), result.ManifestPath)
	require.Equal(t, filepath.Join(dir, "Yoooi.BusDriver.3.var"), result.ArchivePath)
	require.Equal(t, []string{"lib/B.cs", "src/A.cs"}, result.Sources)

	contents, err := os.ReadFile(result.ManifestPath)
	require.NoError(t, err)
	require.Equal(t, "lib/B.cs\nsrc/A.cs\n", string(contents))

	want := []string{
		"meta.json",
		"LICENSE.md",
		prefix + "ADD_ME.cslist",
		prefix + "lib/B.cs",
		prefix + "src/A.cs",
	}
	require.Equal(t, want, archiveNames(t, result.ArchivePath))
	require.Equal(t, want, result.Entries)

	require.Equal(t, "class A {}", readEntry(t, result.ArchivePath, prefix+"src/A.cs"))
	require.Equal(t, "lib/B.cs\nsrc/A.cs\n", readEntry(t, result.ArchivePath, prefix+"ADD_ME.cslist"))
	require.Equal(t, "license text", readEntry(t, result.ArchivePath, "LICENSE.md"))

	messages := make([]string, 0, logs.Len())
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}

	require.Equal(t, []string{
		`Creating "ADD_ME.cslist"`,
		`Adding "lib/B.cs"`,
		`Adding "src/A.cs"`,
		`Creating "Yoooi.BusDriver.3.var"`,
		`Adding "meta.json"`,
		`Adding "LICENSE.md"`,
		`Adding "` + prefix + `ADD_ME.cslist"`,
		`Adding "` + prefix + `lib/B.cs"`,
		`Adding "` + prefix + `src/A.cs"`,
		"Packaging completed",
	}, messages)
}

// TestRun_Deterministic produces identical manifests and archives on repeated runs.
func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, exampleTree())

	first, err := Run(context.Background(), &Options{WorkDir: dir, Version: 5})
	require.NoError(t, err)

	manifestBefore, err := os.ReadFile(first.ManifestPath)
	require.NoError(t, err)
	archiveBefore, err := os.ReadFile(first.ArchivePath)
	require.NoError(t, err)

	second, err := Run(context.Background(), &Options{WorkDir: dir, Version: 5})
	require.NoError(t, err)

	manifestAfter, err := os.ReadFile(second.ManifestPath)
	require.NoError(t, err)
	archiveAfter, err := os.ReadFile(second.ArchivePath)
	require.NoError(t, err)

	require.Equal(t, manifestBefore, manifestAfter)
	require.True(t, bytes.Equal(archiveBefore, archiveAfter))
	require.Equal(t, first.Entries, second.Entries)
	require.NotEmpty(t, first.Checksum)
	require.Equal(t, first.Checksum, second.Checksum)
}

// TestRun_InvalidVersion fails before the manifest or archive are created.
func TestRun_InvalidVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, exampleTree())

	for _, v := range []release.Version{0, -1} {
		_, err := Run(context.Background(), &Options{WorkDir: dir, Version: v})
		require.ErrorIs(t, err, release.ErrInvalidVersion)
	}

	_, err := os.Stat(filepath.Join(dir, "ADD_ME.cslist"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	matches, err := filepath.Glob(filepath.Join(dir, "*.var"))
	require.NoError(t, err)
	require.Empty(t, matches)

	_, err = Run(context.Background(), nil)
	require.Error(t, err)
}

// TestRun_MissingMetadata reports a filesystem error and leaves no archive behind.
func TestRun_MissingMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tree := exampleTree()
	delete(tree, "LICENSE.md")
	writeTree(t, dir, tree)

	_, err := Run(context.Background(), &Options{WorkDir: dir, Version: 1})
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = os.Stat(filepath.Join(dir, "Yoooi.BusDriver.1.var"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp")
	}
}

// TestRun_ReplacesStaleManifest overwrites a manifest left by an earlier run.
func TestRun_ReplacesStaleManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tree := exampleTree()
	tree["ADD_ME.cslist"] = "src/Removed.cs\nsrc/Gone.cs\n"
	writeTree(t, dir, tree)

	result, err := Run(context.Background(), &Options{WorkDir: dir, Version: 2})
	require.NoError(t, err)

	contents, err := os.ReadFile(result.ManifestPath)
	require.NoError(t, err)
	require.Equal(t, "lib/B.cs\nsrc/A.cs\n", string(contents))
}

// TestWriteArchive_SourceVanished fails when a listed file disappears after the manifest is written.
func TestWriteArchive_SourceVanished(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, exampleTree())

	cfg := config.Default()
	p := &packager{
		cfg:      cfg,
		dir:      dir,
		version:  4,
		manifest: manifest.NewFileRepository(filepath.Join(dir, cfg.ManifestName)),
	}

	ctx := context.Background()

	sources, err := Discover(ctx, dir, cfg)
	require.NoError(t, err)
	require.NoError(t, p.writeManifest(ctx, sources))
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "A.cs")))

	_, err = p.writeArchive(ctx)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestWriteArchive_UsesPersistedManifest packages what the manifest on disk lists.
func TestWriteArchive_UsesPersistedManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, exampleTree())

	cfg := config.Default()
	p := &packager{
		cfg:      cfg,
		dir:      dir,
		version:  8,
		manifest: manifest.NewFileRepository(filepath.Join(dir, cfg.ManifestName)),
	}

	ctx := context.Background()
	require.NoError(t, p.writeManifest(ctx, []string{"src/A.cs"}))

	result, err := p.writeArchive(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"src/A.cs"}, result.Sources)
	require.Len(t, result.Entries, 4)
}

// TestRun_CustomLayout honours a different vendor, prefix and source directory.
func TestRun_CustomLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Scripts/Main.cs": "",
		"src/Skip.cs":     "",
		"meta.json":       "{}",
	})

	cfg := config.Default()
	cfg.Vendor = "Acme"
	cfg.Package = "Widget"
	cfg.PathPrefix = ""
	cfg.ManifestName = "files.cslist"
	cfg.SourceDirs = []string{"Scripts"}
	cfg.MetadataFiles = []string{"meta.json"}

	result, err := Run(context.Background(), &Options{WorkDir: dir, Version: 10, Config: cfg})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Acme.Widget.10.var"), result.ArchivePath)
	require.Equal(t, []string{"meta.json", "files.cslist", "Scripts/Main.cs"}, archiveNames(t, result.ArchivePath))
}
