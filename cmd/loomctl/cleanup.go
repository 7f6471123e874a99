package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomstore/loom/internal/calltable"
	"github.com/loomstore/loom/internal/kvtable"
	"github.com/loomstore/loom/internal/provenance"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop every orphaned ref and now-unreferenced atom",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, _, err := openAdapter()
		if err != nil {
			return err
		}

		graph := provenance.New(calltable.New(), kvtable.New("shapes"), kvtable.New("atoms"))

		ctx := context.Background()
		droppedShapes, droppedAtoms, vacuumed, err := graph.CleanupRefsAndVacuum(ctx, adapter, false)
		if err != nil {
			return fmt.Errorf("loomctl: cleanup: %w", err)
		}

		fmt.Printf("dropped %d orphaned ref(s), %d unreferenced atom(s)\n", droppedShapes, droppedAtoms)
		if vacuumed {
			fmt.Println("ran incremental vacuum")
		}
		return nil
	},
}
