package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/logger"
	"github.com/oshokin/var-packager/internal/prompt"
	"github.com/oshokin/var-packager/internal/service/packager"
	"github.com/oshokin/var-packager/internal/version"
)

var (
	// configPath to the layout YAML file; when unset the working directory is searched.
	configPath string
	// workDir is scanned for sources and receives the outputs.
	workDir string
	// logLevel is the minimum level of progress lines.
	logLevel string

	// errUnknownLogLevel is returned for unsupported --log-level values.
	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd packages the sources into a versioned archive.
	rootCmd = &cobra.Command{
		Use:   "var-packager [version]",
		Short: "Package plugin sources into a versioned .var archive",
		Long: `Discovers source files under the allowed top-level directories, writes them to
the file manifest in sorted order, and zips the metadata files, the manifest and
every listed source into <vendor>.<package>.<version>.var.

The version is read from the first argument or, when omitted, from standard input.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Resolve the version before anything on disk is read or written.
			v, err := prompt.NewStdioResolver(cmd.OutOrStdout()).Resolve(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			options := &packager.Options{
				WorkDir: workDir,
				Version: v,
				Config:  cfg,
			}

			_, err = packager.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the var-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to layout file (default: "+config.DefaultConfigFilename+" in --dir)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "working directory to package")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newListCommand(), newVerifyCommand(), newInitCommand())
}

// applyLogLevel sets the global log level from --log-level.
func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	return nil
}

// loadConfig reads --config when given, otherwise the default file inside --dir.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		return config.Load(configPath)
	}

	return config.LoadFromDir(workDir)
}

// resolvePath interprets relative paths against --dir.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}
