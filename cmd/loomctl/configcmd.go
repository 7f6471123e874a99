package main

import (
	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the loom HCL configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the configuration in canonical HCL form, defaults filled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(config.Dump(cfg))
		return err
	},
}

func init() {
	configCmd.AddCommand(configDumpCmd)
}
