package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/var-packager/internal/service/packager"
)

// newVerifyCommand checks an archive against its embedded manifest.
func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check that an archive matches its embedded manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			_, err = packager.Verify(cmd.Context(), resolvePath(args[0]), cfg)

			return err
		},
	}
}
