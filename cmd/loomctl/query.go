package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
)

var queryCmd = &cobra.Command{
	Use:   "query <call-history-id> <jsonpath>",
	Short: "Filter a call's dumped slot rows with a JSONPath expression",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hid, selector := args[0], args[1]

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
			return fmt.Errorf("loomctl: query %s: %w", hid, err)
		}

		// Round-trip through JSON so the jsonpath engine walks plain
		// map[string]any/[]any, the shape it expects, rather than the
		// calltable.Row struct directly.
		raw, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("loomctl: query %s: %w", hid, err)
		}
		var root any
		if err := json.Unmarshal(raw, &root); err != nil {
			return fmt.Errorf("loomctl: query %s: %w", hid, err)
		}

		expr, err := jp.ParseString(selector)
		if err != nil {
			return fmt.Errorf("loomctl: invalid jsonpath %q: %w", selector, err)
		}

		matches := expr.Get(root)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	},
}
