package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/var-packager/internal/config"
	"github.com/oshokin/var-packager/internal/logger"
)

// errConfigExists is returned by init when the layout file is already present.
var errConfigExists = errors.New("layout file already exists, use --force to overwrite")

// newInitCommand writes the default layout file.
func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default layout file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := resolvePath(config.DefaultConfigFilename)
			if cmd.Flags().Changed("config") {
				path = configPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s: %w", path, errConfigExists)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			logger.InfoKV(cmd.Context(), "Layout file written", "path", path)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing layout file")

	return cmd
}
