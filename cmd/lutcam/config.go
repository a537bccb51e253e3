package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-lutcam/internal/config"
)

func configCmd(f *rootFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	c.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config to --config",
		RunE: func(*cobra.Command, []string) error {
			return config.Save(f.configPath, config.Default())
		},
	}, &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	})
	return c
}
