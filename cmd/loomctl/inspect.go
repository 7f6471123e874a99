package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <call-history-id>",
	Short: "Print every input/output slot row recorded for a call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hid := args[0]

		adapter, _, err := openAdapter()
		if err != nil {
			return err
		}

		calls := calltable.New()
		var rows []calltable.Row
		ctx := context.Background()
		err = adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
			rows, err = calls.Get(ctx, q, hid)
			return err
		})
		if err != nil {
			return fmt.Errorf("loomctl: inspect %s: %w", hid, err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("loomctl: inspect %s: no call recorded under that history id", hid)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}
