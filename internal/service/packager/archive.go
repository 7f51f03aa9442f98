package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/var-packager/internal/logger"
)

// entryTimestamp is stamped on every entry so archives do not depend on file mtimes.
//
//nolint:gochecknoglobals // Read-only.
var entryTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// entryMode is the permission recorded for every entry.
const entryMode os.FileMode = 0o644

// archiveWriter appends files to a zip stream and remembers entry names in order.
type archiveWriter struct {
	// zw is the underlying zip stream.
	zw *zip.Writer
	// entries lists the names written so far.
	entries []string
}

func newArchiveWriter(w io.Writer) *archiveWriter {
	return &archiveWriter{
		zw: zip.NewWriter(w),
	}
}

// add copies the file at src into the archive as name.
func (a *archiveWriter) add(ctx context.Context, src, name string) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	file, err := os.Open(src) //nolint:gosec // Paths come from discovery or the layout.
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("add %s: %w", name, errNotRegularFile)
	}

	//nolint:exhaustruct // Remaining header fields are filled by the zip writer.
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTimestamp,
	}
	header.SetMode(entryMode)

	w, err := a.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}

	if _, err = io.Copy(w, file); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}

	a.entries = append(a.entries, name)
	logger.Infof(ctx, "Adding %q", name)

	return nil
}

// Close finishes the zip stream. It does not close the underlying writer.
func (a *archiveWriter) Close() error {
	return a.zw.Close()
}
