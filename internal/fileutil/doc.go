// Package fileutil holds filesystem helpers shared by the manifest
// repository and the archive writer.
package fileutil
