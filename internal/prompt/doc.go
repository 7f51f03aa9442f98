// Package prompt resolves the package version once at startup, either from
// the positional argument or from a single line read on standard input.
package prompt
