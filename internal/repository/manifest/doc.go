// Package manifest persists the list of packaged source files: one
// slash-separated relative path per line, each terminated by a newline.
package manifest
