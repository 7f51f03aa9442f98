// Package config defines the packaging layout (vendor, package, archive path
// prefix, manifest name, source directories, metadata files) and helpers to
// load it with viper, validate it and save it as YAML.
//
// Defaults reproduce the BusDriver plugin layout, so running without a
// configuration file packages a Yoooi.BusDriver.<version>.var archive.
package config
