package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/config"
	"github.com/loomstore/loom/internal/dbadapter"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "loom.hcl", "Path to loom HCL configuration")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(queryCmd)
}

var rootCmd = &cobra.Command{
	Use:   "loomctl",
	Short: "loomctl is an admin CLI for a loom memoizing computation store",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openAdapter loads the HCL configuration at configPath and opens the
// database it names. Every subcommand that touches the store calls this
// first.
func openAdapter() (*dbadapter.Adapter, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loomctl: load config: %w", err)
	}
	adapter, err := dbadapter.Open(cfg.DBPath, cfg.DBMode())
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loomctl: open db: %w", err)
	}
	return adapter, cfg, nil
}
