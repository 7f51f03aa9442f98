// Package version exposes build metadata of the var-packager binary.
//
// Version, Commit and BuildTime are injected via -ldflags and keep local
// defaults otherwise. Not to be confused with the package version passed on
// the command line, which lives in internal/domain/release.
package version
