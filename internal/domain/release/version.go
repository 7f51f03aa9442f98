package release

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Version is the positive integer release number of a package.
type Version int

// ErrInvalidVersion is returned when a version token is not a positive integer.
var ErrInvalidVersion = errors.New("version must be a positive integer")

// ParseVersion parses a decimal version token, ignoring surrounding whitespace.
func ParseVersion(s string) (Version, error) {
	token := strings.TrimSpace(s)

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, token)
	}

	v := Version(n)
	if err = v.Validate(); err != nil {
		return 0, err
	}

	return v, nil
}

// Validate reports ErrInvalidVersion for zero and negative values.
func (v Version) Validate() error {
	if v <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, int(v))
	}

	return nil
}

// String renders the version verbatim.
func (v Version) String() string {
	return strconv.Itoa(int(v))
}

// ArchiveName renders "<vendor>.<package>.<version>.<ext>".
func ArchiveName(vendor, pkg string, v Version, ext string) string {
	return fmt.Sprintf("%s.%s.%d.%s", vendor, pkg, int(v), ext)
}

// EntryPath joins an archive path prefix and a slash-separated relative path.
// An empty prefix places the entry at the archive root.
func EntryPath(prefix, rel string) string {
	return path.Join(prefix, rel)
}
