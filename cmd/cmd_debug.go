// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcodagnone/mailgeo/address"
	"github.com/jcodagnone/mailgeo/geocode"
	"github.com/jcodagnone/mailgeo/postal"
	"github.com/jcodagnone/mailgeo/utils/httputils"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Normalizes addresses read from stdin, one per line",
	Long: `Reads one address per line and prints the street, number and complement
found, separated by tabs.

$ echo "Rua das Flores 123, apto 4" | mailgeo debug address
Rua das Flores 123, apto 4	Rua das Flores	123	apto 4
	`,
	RunE: func(_ *cobra.Command, _ []string) error {
		if isTerminal(os.Stdin) {
			fmt.Fprintln(os.Stderr, "Enter addresses to normalize, one per line…")
		}

		return debugAddresses(os.Stdin, os.Stdout)
	},
}

func debugAddresses(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		p, err := address.Normalize(line, "", "")
		if err != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, err)

			continue
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", line, p.Street, p.Number, p.Complement)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Prints the geocoding candidates of an address as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		g := geocode.NewGoogleMaps(geocode.Options{
			Endpoint: resolveOpts.GeocodeURL,
			APIKey:   geocode.ResolveAPIKey(ctx, resolveOpts.GeocodeKey),
			Region:   resolveOpts.Region,
		}, httputils.NewClient(&httputils.ClientOptions{
			UserAgent:       userAgent(),
			EnableHTTPTrace: resolveOpts.HTTPTrace,
		}))

		resp, err := g.Resolve(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		for _, d := range resp.Dropped {
			fmt.Fprintf(os.Stderr, "dropped: %v\n", d)
		}

		return printJSON(os.Stdout, resp.Candidates)
	},
}

var debugPostalCmd = &cobra.Command{
	Use:   "postal <state> <city> <street> [number]",
	Short: "Prints the postal code candidates of an address as JSON",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		q := postal.Query{State: args[0], City: args[1], Street: args[2]}
		if len(args) > 3 {
			q.Number = args[3]
		}

		c := postal.NewCorreios(resolveOpts.PostalURL, httputils.NewClient(&httputils.ClientOptions{
			UserAgent:       userAgent(),
			EnableHTTPTrace: resolveOpts.HTTPTrace,
			EnableCookies:   true,
		}))

		candidates, err := c.Resolve(ctx, q)
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, candidates)
	},
}

var debugPostalPageCmd = &cobra.Command{
	Use:   "postal-page [file]",
	Short: "Parses a saved postal code result page and prints the candidates as JSON",
	Long: `Reads a result page from a file or from stdin and prints what would be
extracted from it.

Examples:
  mailgeo debug postal-page ./resultado.html
  iconv -f latin1 -t utf8 resultado.html | mailgeo debug postal-page`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin

		if len(args) > 0 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			r = f
		} else if isTerminal(os.Stdin) {
			fmt.Fprintln(os.Stderr, "Reading from stdin. Paste HTML and press Ctrl+D to finish.")
		}

		candidates, err := postal.ParsePage(r)
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, candidates)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugAddressCmd)
	debugCmd.AddCommand(debugGeocodeCmd)
	debugCmd.AddCommand(debugPostalCmd)
	debugCmd.AddCommand(debugPostalPageCmd)

	debugGeocodeCmd.Flags().StringVar(&resolveOpts.GeocodeURL, "geocode-url", geocode.DefaultEndpoint, "Geocoding endpoint")
	debugGeocodeCmd.Flags().StringVar(&resolveOpts.GeocodeKey, "geocode-key", "", "Google Maps API key")
	debugGeocodeCmd.Flags().StringVar(&resolveOpts.Region, "region", "br", "Region bias for geocoding results")
	debugPostalCmd.Flags().StringVar(&resolveOpts.PostalURL, "postal-url", postal.DefaultEndpoint, "Postal code lookup endpoint")

	for _, c := range []*cobra.Command{debugGeocodeCmd, debugPostalCmd} {
		c.Flags().BoolVar(&resolveOpts.HTTPTrace, "trace-http", false, "Logs HTTP requests and responses")
	}
}
