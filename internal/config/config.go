package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/var-packager/internal/domain/release"
)

// Config holds the layout of a packaged archive.
type Config struct {
	// Vendor is the first component of the archive name.
	Vendor string `yaml:"vendor" mapstructure:"vendor"`
	// Package is the second component of the archive name.
	Package string `yaml:"package" mapstructure:"package"`
	// ArchiveExtension is the archive file extension without the dot.
	ArchiveExtension string `yaml:"archive_extension" mapstructure:"archive_extension"`
	// PathPrefix is the slash-separated directory inside the archive that
	// receives the manifest and the source files.
	PathPrefix string `yaml:"path_prefix" mapstructure:"path_prefix"`
	// ManifestName is the manifest file name, both on disk and inside the archive.
	ManifestName string `yaml:"manifest_name" mapstructure:"manifest_name"`
	// SourceExtension selects candidate files, including the leading dot.
	SourceExtension string `yaml:"source_extension" mapstructure:"source_extension"`
	// SourceDirs are the top-level directories whose candidates are packaged.
	SourceDirs []string `yaml:"source_dirs" mapstructure:"source_dirs"`
	// MetadataFiles are copied from the working directory to the archive root.
	MetadataFiles []string `yaml:"metadata_files" mapstructure:"metadata_files"`
}

const (
	// DefaultConfigFilename is the default filename for the packaging layout.
	DefaultConfigFilename = "var-packager.yaml"

	// DefaultFilePermissions is the file mode used for every file the packager writes.
	DefaultFilePermissions = 0o644

	// envPrefix prefixes environment overrides, e.g. VARPACK_VENDOR.
	envPrefix = "VARPACK"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidConfig is returned by Validate for unusable layouts.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Default returns the BusDriver layout.
func Default() *Config {
	return &Config{
		Vendor:           "Yoooi",
		Package:          "BusDriver",
		ArchiveExtension: "var",
		PathPrefix:       "Custom/Scripts/Yoooi/BusDriver",
		ManifestName:     "ADD_ME.cslist",
		SourceExtension:  ".cs",
		SourceDirs:       []string{"src", "lib"},
		MetadataFiles:    []string{"meta.json", "LICENSE.md"},
	}
}

// Load resolves the layout from defaults, the YAML file at path and
// VARPACK_* environment variables, in increasing precedence.
// An empty path skips the file; a non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(filepath.Clean(path))
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir loads DefaultConfigFilename from dir when it exists and falls
// back to defaults and environment overrides otherwise.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultConfigFilename)

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Load("")
	}

	if err != nil {
		return nil, fmt.Errorf("stat settings: %w", err)
	}

	return Load(path)
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required names and normalizes the path prefix and extensions.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := map[string]string{
		"vendor":            cfg.Vendor,
		"package":           cfg.Package,
		"archive_extension": cfg.ArchiveExtension,
		"manifest_name":     cfg.ManifestName,
		"source_extension":  cfg.SourceExtension,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must be set", ErrInvalidConfig, key)
		}
	}

	if len(cfg.SourceDirs) == 0 {
		return fmt.Errorf("%w: at least one source directory is required", ErrInvalidConfig)
	}

	for _, dir := range cfg.SourceDirs {
		if !isSingleSegment(dir) {
			return fmt.Errorf("%w: source directory %q must be a top-level directory name", ErrInvalidConfig, dir)
		}
	}

	for _, name := range cfg.MetadataFiles {
		if !isSingleSegment(name) {
			return fmt.Errorf("%w: metadata file %q must be a file name in the working directory", ErrInvalidConfig, name)
		}
	}

	if !isSingleSegment(cfg.ManifestName) {
		return fmt.Errorf("%w: manifest name %q must be a plain file name", ErrInvalidConfig, cfg.ManifestName)
	}

	prefix := strings.Trim(strings.ReplaceAll(cfg.PathPrefix, `\`, "/"), "/")
	if prefix != "" && (path.Clean(prefix) != prefix || prefix == ".." || strings.HasPrefix(prefix, "../")) {
		return fmt.Errorf("%w: path prefix %q must be a clean relative path", ErrInvalidConfig, cfg.PathPrefix)
	}

	cfg.PathPrefix = prefix
	cfg.ArchiveExtension = strings.TrimPrefix(cfg.ArchiveExtension, ".")

	if !strings.HasPrefix(cfg.SourceExtension, ".") {
		cfg.SourceExtension = "." + cfg.SourceExtension
	}

	return nil
}

// ArchiveName returns the archive file name for v.
func (c *Config) ArchiveName(v release.Version) string {
	return release.ArchiveName(c.Vendor, c.Package, v, c.ArchiveExtension)
}

// EntryPath returns the archive entry name of a path relative to the prefix.
func (c *Config) EntryPath(rel string) string {
	return release.EntryPath(c.PathPrefix, rel)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("vendor", cfg.Vendor)
	v.SetDefault("package", cfg.Package)
	v.SetDefault("archive_extension", cfg.ArchiveExtension)
	v.SetDefault("path_prefix", cfg.PathPrefix)
	v.SetDefault("manifest_name", cfg.ManifestName)
	v.SetDefault("source_extension", cfg.SourceExtension)
	v.SetDefault("source_dirs", cfg.SourceDirs)
	v.SetDefault("metadata_files", cfg.MetadataFiles)
}

func isSingleSegment(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, `/\`)
}
