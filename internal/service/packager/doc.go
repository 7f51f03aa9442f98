// Package packager builds a versioned plugin archive.
//
// It discovers source files under the allowed top-level directories, writes
// the sorted file manifest, and zips the metadata files, the manifest and
// every listed source file under the configured path prefix. Archive entries
// carry a fixed timestamp, so identical inputs give identical archives.
package packager
