package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/dbadapter"
	"github.com/loomstore/loom/internal/kvtable"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts for every table in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, _, err := openAdapter()
		if err != nil {
			return err
		}

		atoms := kvtable.New("atoms")
		shapes := kvtable.New("shapes")
		ops := kvtable.New("ops")
		sources := kvtable.New("sources")
		calls := calltable.New()

		ctx := context.Background()
		var nAtoms, nShapes, nOps, nSources, nCalls int
		err = adapter.WithTx(ctx, func(ctx context.Context, q dbadapter.Queryer) error {
			keys, err := atoms.Keys(ctx, q)
			if err != nil {
				return err
			}
			nAtoms = len(keys)

			if keys, err = shapes.Keys(ctx, q); err != nil {
				return err
			}
			nShapes = len(keys)

			if keys, err = ops.Keys(ctx, q); err != nil {
				return err
			}
			nOps = len(keys)

			if keys, err = sources.Keys(ctx, q); err != nil {
				return err
			}
			nSources = len(keys)

			nCalls, err = calls.CountDistinctCalls(ctx, q)
			return err
		})
		if err != nil {
			return fmt.Errorf("loomctl: stats: %w", err)
		}

		fmt.Printf("atoms:   %d\n", nAtoms)
		fmt.Printf("shapes:  %d\n", nShapes)
		fmt.Printf("ops:     %d\n", nOps)
		fmt.Printf("sources: %d\n", nSources)
		fmt.Printf("calls:   %d\n", nCalls)
		return nil
	},
}
