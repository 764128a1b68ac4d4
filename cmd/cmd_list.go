// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcodagnone/mailgeo/store"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [stage]",
	Short: "Lists the stored collections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runList(os.Stdout, args)
	},
}

func runList(w io.Writer, args []string) error {
	stages := store.Stages

	if len(args) > 0 {
		stage, err := store.ParseStage(args[0])
		if err != nil {
			return err
		}

		stages = []store.Stage{stage}
	}

	repo, err := options.openStore()
	if err != nil {
		return err
	}
	defer repo.DB().Close()

	var collections []store.Collection

	for _, s := range stages {
		cs, err := repo.List(s)
		if err != nil {
			return err
		}

		collections = append(collections, cs...)
	}

	writeCollections(w, collections)

	return nil
}

func writeCollections(w io.Writer, collections []store.Collection) {
	a, b, c, d := strings.Repeat("─", 8), strings.Repeat("─", 30), strings.Repeat("─", 7), strings.Repeat("─", 16)
	fmt.Fprintf(w, "╭─%-8s─┬─%-30s─┬─%7s─┬─%7s─┬─%-16s─╮\n", a, b, c, c, d)
	fmt.Fprintf(w, "│ %-8s │ %-30s │ %7s │ %7s │ %-16s │\n", "Stage", "Collection", "Records", "Failed", "Updated")
	fmt.Fprintf(w, "├─%-8s─┼─%-30s─┼─%7s─┼─%7s─┼─%-16s─┤\n", a, b, c, c, d)

	for _, col := range collections {
		fmt.Fprintf(w, "│ %-8s │ %-30s │ %7d │ %7d │ %-16s │\n",
			col.Stage, col.Name, col.Size, col.Failed, col.UpdatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(w, "╰─%-8s─┴─%-30s─┴─%7s─┴─%7s─┴─%-16s─╯\n", a, b, c, c, d)
}

func init() {
	rootCmd.AddCommand(listCmd)
}
