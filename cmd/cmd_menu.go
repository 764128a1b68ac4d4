// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/jcodagnone/mailgeo/pipeline"
	"github.com/spf13/cobra"
)

type menuAction struct {
	Title string
	Run   func(ctx context.Context) error
}

var menuActions = []menuAction{
	{"Find postal codes and coordinates", func(ctx context.Context) error { return runResolve(ctx, nil) }},
	{"Bind labels to addresses", func(context.Context) error { return runLink(&labelsLink, nil) }},
	{"Bind the delivery status", func(context.Context) error { return runLink(&eventsLink, nil) }},
	{"Group by delivery agent", func(context.Context) error { return runDispatch(nil) }},
	{"Generate markers in Google Maps", func(context.Context) error { return runMarkers(nil) }},
	{"List collections", func(context.Context) error { return runList(os.Stdout, nil) }},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Runs the commands from an interactive menu until q is entered",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMenu(os.Stdout, menuActions)
	},
}

func runMenu(out io.Writer, actions []menuAction) error {
	titles := make([]string, len(actions))
	for i, a := range actions {
		titles[i] = a.Title
	}

	for {
		i, err := choose(stdin, out, "\nChoose an action to perform (q to quit):", titles)
		if errors.Is(err, errQuit) {
			writeSessionSummary(out, &sessionMetrics)

			return nil
		}

		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = actions[i].Run(ctx)
		stop()

		switch {
		case errors.Is(err, errQuit):
			fmt.Fprintln(out, "Cancelled.")
		case err != nil:
			log.Printf("❌ %s: %v", actions[i].Title, err)
		}
	}
}

func writeSessionSummary(out io.Writer, m *pipeline.Metrics) {
	if m.Rows == 0 {
		return
	}

	fmt.Fprintf(out, "Session: %d rows resolved, %d complete, %d failed, %d skipped (%d geocoding, %d postal requests, %d retries)\n",
		m.Rows, m.Completed, m.Failed, m.Skipped, m.GeocodeCalls, m.PostalCalls, m.Retries)
}

func init() {
	rootCmd.AddCommand(menuCmd)
}
