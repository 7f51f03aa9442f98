// Package release models the package version supplied on the command line
// and the names derived from it.
package release
