// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jcodagnone/mailgeo/linkage"
	"github.com/jcodagnone/mailgeo/sheet"
	"github.com/jcodagnone/mailgeo/store"
	"github.com/spf13/cobra"
)

// linkKind describes one of the linking steps of the collection lifecycle.
type linkKind struct {
	Name      string
	From, To  store.Stage
	Dir       func() string
	Rule      linkage.Rule
	Placement linkage.Placement
	Question  string
}

var (
	labelsLink = linkKind{
		Name:      "labels",
		From:      store.GeoInfo,
		To:        store.Labels,
		Dir:       options.labelsDir,
		Rule:      linkage.LabelsRule,
		Placement: linkage.Prepend,
		Question:  "Choose the spreadsheet with the labels:",
	}
	eventsLink = linkKind{
		Name:      "events",
		From:      store.Labels,
		To:        store.History,
		Dir:       options.historyDir,
		Rule:      linkage.EventsRule,
		Placement: linkage.Append,
		Question:  "Choose the spreadsheet with the delivery history:",
	}
)

var linkRule string

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Merges label numbers or delivery events into a stored collection",
}

func newLinkCmd(kind *linkKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind.Name + " [collection] [document]",
		Short: short,
		Args:  cobra.MaximumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLink(kind, args)
		},
	}
}

func runLink(kind *linkKind, args []string) error {
	rule := kind.Rule
	if linkRule != "" {
		var err error
		if rule, err = linkage.ParseRule(linkRule, kind.Placement); err != nil {
			return err
		}
	}

	repo, err := options.openStore()
	if err != nil {
		return err
	}
	defer repo.DB().Close()

	var collection string
	if len(args) > 0 {
		collection = args[0]
	} else if collection, err = pickCollection(repo, kind.From); err != nil {
		return err
	}

	primary, err := repo.Load(kind.From, collection)
	if err != nil {
		return err
	}

	src := sheet.Source{Dir: kind.Dir()}

	path, err := pickDocument(src, args[min(len(args), 1):], kind.Question)
	if err != nil {
		return err
	}

	aux, err := src.ReadAll(path)
	if err != nil {
		return err
	}

	linked, stats := linkage.Link(primary, aux, rule)
	log.Printf("🔗 %s + %s: %s", collection, sheet.DocumentName(path), stats)

	if err := repo.Save(kind.To, collection, linked); err != nil {
		return fmt.Errorf("saving %s/%s: %w", kind.To, collection, err)
	}

	log.Printf("✅ Saved %d records to %s/%s", len(linked), kind.To, collection)

	return nil
}

// pickCollection asks for one of the collections of a stage.
func pickCollection(repo store.Repository, stage store.Stage) (string, error) {
	collections, err := repo.List(stage)
	if err != nil {
		return "", err
	}

	if len(collections) == 0 {
		return "", errors.New("no collections in stage " + string(stage))
	}

	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.Name
	}

	i, err := choose(stdin, os.Stdout, fmt.Sprintf("Choose the %s collection:", stage), names)
	if err != nil {
		return "", err
	}

	return names[i], nil
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.AddCommand(newLinkCmd(&labelsLink, "Prepends label numbers from Spreadsheets/Labels, matching by name"))
	linkCmd.AddCommand(newLinkCmd(&eventsLink, "Appends delivery status from Spreadsheets/History, matching by name"))
	linkCmd.PersistentFlags().StringVar(
		&linkRule,
		"rule",
		"",
		"Overrides the matching rule as key-column:payload-columns[:name|prefix], e.g. 2:1 or 0:8:prefix",
	)
}
