// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"
	"os"

	"github.com/jcodagnone/mailgeo/dispatch"
	"github.com/jcodagnone/mailgeo/sheet"
	"github.com/jcodagnone/mailgeo/store"
	"github.com/spf13/cobra"
)

type dispatchOptions struct {
	Agents string
	Output string
}

var dispatchOpts = &dispatchOptions{}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [stage] [collection]",
	Short: "Groups a collection by delivery agent using postal code prefixes",
	Long: `Groups the records of a collection by the distribution centre serving
their postal code. Unresolved records are listed first, records no agent
serves last.

Agents come from --agents, a YAML file like:

  agents:
    - name: CDA Cristal
      prefixes: ["908", "919"]

or, by default, from the built-in Porto Alegre table.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runDispatch(args)
	},
}

func runDispatch(args []string) error {
	agents := dispatch.PortoAlegre

	if dispatchOpts.Agents != "" {
		var err error
		if agents, err = dispatch.LoadAgents(dispatchOpts.Agents); err != nil {
			return err
		}
	}

	repo, err := options.openStore()
	if err != nil {
		return err
	}
	defer repo.DB().Close()

	stage, collection, err := pickStageCollection(repo, args)
	if err != nil {
		return err
	}

	records, err := repo.Load(stage, collection)
	if err != nil {
		return err
	}

	plan := dispatch.Assign(records, agents)
	if err := plan.Write(os.Stdout); err != nil {
		return err
	}

	if dispatchOpts.Output != "" {
		if err := sheet.Write(dispatchOpts.Output, plan.Sheets()); err != nil {
			return err
		}

		log.Printf("✅ Dispatch plan written to %s", dispatchOpts.Output)
	}

	return nil
}

// pickStageCollection takes the stage and collection from args, asking for
// whatever is missing.
func pickStageCollection(repo store.Repository, args []string) (store.Stage, string, error) {
	var (
		stage store.Stage
		err   error
	)

	if len(args) > 0 {
		if stage, err = store.ParseStage(args[0]); err != nil {
			return "", "", err
		}
	} else {
		names := make([]string, len(store.Stages))
		for i, s := range store.Stages {
			names[i] = string(s)
		}

		i, err := choose(stdin, os.Stdout, "Choose the stage:", names)
		if err != nil {
			return "", "", err
		}

		stage = store.Stages[i]
	}

	if len(args) > 1 {
		return stage, args[1], nil
	}

	collection, err := pickCollection(repo, stage)

	return stage, collection, err
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringVar(&dispatchOpts.Agents, "agents", "", "YAML file with the delivery agents")
	dispatchCmd.Flags().StringVar(&dispatchOpts.Output, "output", "", "Also writes the plan to this spreadsheet, one sheet per agent")
}
