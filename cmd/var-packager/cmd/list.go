package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/var-packager/internal/service/packager"
)

// newListCommand prints the sources a packaging run would include.
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the source files that would be packaged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sources, err := packager.Discover(cmd.Context(), workDir, cfg)
			if err != nil {
				return err
			}

			for _, source := range sources {
				if _, err = fmt.Fprintln(cmd.OutOrStdout(), source); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
