package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomstore/loom/api"
	"github.com/loomstore/loom/internal/codegen"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Print a Go stub for every op whose metadata has been persisted",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, _, err := openAdapter()
		if err != nil {
			return err
		}

		table := kvtable.New("ops")
		var stored map[string][]byte
		ctx := context.Background()
		err = adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
			stored, err = table.LoadAll(ctx, q)
			return err
		})
		if err != nil {
			return fmt.Errorf("loomctl: ops: %w", err)
		}

		for name, data := range stored {
			var meta api.OpMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				return fmt.Errorf("loomctl: ops: decode metadata for %s: %w", name, err)
			}
			stub, err := codegen.Stub(meta)
			if err != nil {
				return fmt.Errorf("loomctl: ops: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(stub))
		}
		return nil
	},
}
