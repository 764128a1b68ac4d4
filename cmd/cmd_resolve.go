// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jcodagnone/mailgeo/geocode"
	"github.com/jcodagnone/mailgeo/pipeline"
	"github.com/jcodagnone/mailgeo/postal"
	"github.com/jcodagnone/mailgeo/record"
	"github.com/jcodagnone/mailgeo/sheet"
	"github.com/jcodagnone/mailgeo/spatial"
	"github.com/jcodagnone/mailgeo/store"
	"github.com/jcodagnone/mailgeo/utils/httputils"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	Columns     string
	Delay       time.Duration
	Retries     int
	Choose      string
	Near        string
	GeocodeURL  string
	GeocodeKey  string
	Region      string
	PostalURL   string
	HTTPTrace   bool
	HTTPBody    bool
	HTTPTimeout time.Duration
}

var resolveOpts = &resolveOptions{}

// sessionMetrics accumulates every resolution run of the process.
var sessionMetrics pipeline.Metrics

var resolveCmd = &cobra.Command{
	Use:   "resolve [document]",
	Short: "Finds the postal code and coordinates of every row of a mailing",
	Long: `Reads a mailing spreadsheet from Spreadsheets/Mailing, normalizes each
address, geocodes it, looks up its postal code and stores the result in the
geoinfo stage under the document name.

Rows that can't be resolved are kept with the reason appended.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return runResolve(ctx, args)
	},
}

func runResolve(ctx context.Context, args []string) error {
	src := sheet.Source{Dir: options.mailingDir()}

	path, err := pickDocument(src, args, "Choose the spreadsheet to resolve:")
	if err != nil {
		return err
	}

	rows, err := src.ReadAll(path)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("%s has no rows", path)
	}

	cols, err := columnIndex(rows[0])
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cols)
	if err != nil {
		return err
	}

	repo, err := options.openStore()
	if err != nil {
		return err
	}
	defer repo.DB().Close()

	name := sheet.DocumentName(path)
	if err := repo.Delete(store.GeoInfo, name); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}

	log.Printf("🔎 Resolving %d rows of %s", len(rows), name)

	position := 0
	records, err := p.Run(ctx, rows, func(o pipeline.Outcome) error {
		if o.Record == nil {
			return nil
		}

		err := repo.Append(store.GeoInfo, name, position, *o.Record)
		position++

		return err
	})
	sessionMetrics.Merge(&p.Metrics)

	if err != nil {
		log.Printf("⚠️  Stopped after %d records: %v", len(records), err)

		return err
	}

	log.Printf(
		"✅ %s: %d rows, %d resolved, %d failed, %d skipped (%d geocoding and %d postal requests)",
		name,
		p.Metrics.Rows,
		p.Metrics.Completed,
		p.Metrics.Failed,
		p.Metrics.Skipped,
		p.Metrics.GeocodeCalls,
		p.Metrics.PostalCalls,
	)

	return nil
}

// pickDocument returns the document named in args or asks for one.
func pickDocument(src sheet.Source, args []string, question string) (string, error) {
	if len(args) > 0 {
		return src.Find(args[0])
	}

	docs, err := src.List()
	if err != nil {
		return "", err
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = sheet.DocumentName(d)
	}

	i, err := choose(stdin, os.Stdout, question, names)
	if err != nil {
		return "", err
	}

	return docs[i], nil
}

// columnIndex uses --columns or shows the first row and asks for the mapping.
func columnIndex(first record.RawRow) (record.ColumnIndex, error) {
	if resolveOpts.Columns != "" {
		return record.ParseColumnIndex(resolveOpts.Columns)
	}

	fmt.Println("First row:")

	for i, f := range first.Fields {
		fmt.Printf("  %d: %s\n", i, f)
	}

	for {
		answer, err := ask(stdin, os.Stdout, fmt.Sprintf("Column numbers for %s (-1 if missing):", record.ColumnHelp))
		if err != nil {
			return record.ColumnIndex{}, err
		}

		cols, err := record.ParseColumnIndex(answer)
		if err == nil {
			return cols, nil
		}

		fmt.Println(err)
	}
}

func newPipeline(ctx context.Context, cols record.ColumnIndex) (*pipeline.Pipeline, error) {
	clientOptions := &httputils.ClientOptions{
		UserAgent:           userAgent(),
		Timeout:             resolveOpts.HTTPTimeout,
		EnableHTTPTrace:     resolveOpts.HTTPTrace,
		EnableHTTPBodyTrace: resolveOpts.HTTPBody,
	}

	geocoder := geocode.NewGoogleMaps(geocode.Options{
		Endpoint: resolveOpts.GeocodeURL,
		APIKey:   geocode.ResolveAPIKey(ctx, resolveOpts.GeocodeKey),
		Region:   resolveOpts.Region,
	}, httputils.NewClient(clientOptions))

	postalOptions := *clientOptions
	postalOptions.EnableCookies = true
	correios := postal.NewCorreios(resolveOpts.PostalURL, httputils.NewClient(&postalOptions))

	var (
		chooseGeocode pipeline.Chooser[geocode.Candidate]
		choosePostal  pipeline.Chooser[postal.Candidate]
	)

	mode := strings.ToLower(resolveOpts.Choose)

	switch mode {
	case "prompt":
		chooseGeocode = pipeline.NewPrompt[geocode.Candidate](stdin, os.Stdout)
		choosePostal = pipeline.NewPrompt[postal.Candidate](stdin, os.Stdout)
	case "first":
		chooseGeocode = pipeline.First[geocode.Candidate]{}
		choosePostal = pipeline.First[postal.Candidate]{}
	case "nearest":
		ref, err := spatial.ParsePoint(resolveOpts.Near)
		if err != nil {
			return nil, fmt.Errorf("--near: %w", err)
		}

		chooseGeocode = pipeline.Nearest{Reference: ref}
		choosePostal = pipeline.First[postal.Candidate]{}
	default:
		return nil, fmt.Errorf("--choose must be prompt, first or nearest, got %q", resolveOpts.Choose)
	}

	return pipeline.New(pipeline.Options{
		Columns:  cols,
		Delay:    resolveOpts.Delay,
		Retries:  resolveOpts.Retries,
		Progress: mode != "prompt",
	}, geocoder, correios, chooseGeocode, choosePostal), nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	flags := resolveCmd.Flags()
	flags.StringVar(&resolveOpts.Columns, "columns", "",
		fmt.Sprintf("Column numbers for %s, space separated, -1 if missing. Asked when empty", record.ColumnHelp))
	flags.DurationVar(&resolveOpts.Delay, "delay", pipeline.DefaultDelay, "Minimum time between rows")
	flags.IntVar(&resolveOpts.Retries, "retries", 1, "Retries for geocoding network failures")
	flags.StringVar(&resolveOpts.Choose, "choose", "prompt",
		"How to pick among several candidates: prompt, first or nearest")
	flags.StringVar(&resolveOpts.Near, "near", "-30.0277,-51.2287",
		"Reference point for --choose nearest, as lat,lng")
	flags.StringVar(&resolveOpts.GeocodeURL, "geocode-url", geocode.DefaultEndpoint, "Geocoding endpoint")
	flags.StringVar(&resolveOpts.GeocodeKey, "geocode-key", "",
		"Google Maps API key. Defaults to GOOGLE_MAPS_API_KEY or the key found through ADC")
	flags.StringVar(&resolveOpts.Region, "region", "br", "Region bias for geocoding results")
	flags.StringVar(&resolveOpts.PostalURL, "postal-url", postal.DefaultEndpoint, "Postal code lookup endpoint")
	flags.DurationVar(&resolveOpts.HTTPTimeout, "http-timeout", 30*time.Second, "Timeout for each request")
	flags.BoolVar(&resolveOpts.HTTPTrace, "trace-http", false, "Logs HTTP requests and responses")
	flags.BoolVar(&resolveOpts.HTTPBody, "trace-http-body", false, "Includes bodies when tracing HTTP")
}
