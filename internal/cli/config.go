package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCommand prints the effective configuration or writes it to disk.
func NewConfigCommand(root *RootOptions) *cobra.Command {
	var initFile bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
.env files and POSTBOOK_* environment variables.

With --init, write it to the config file so it can be edited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.Config
			out := cmd.OutOrStdout()

			if initFile {
				path := root.ConfigFile
				if path == "" {
					path = cfg.File()
				}
				if err := cfg.Save(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", path)
				return nil
			}

			for _, kv := range cfg.Settings() {
				fmt.Fprintf(out, "%-22s %s\n", kv[0], kv[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "write the effective configuration to the config file")
	return cmd
}
