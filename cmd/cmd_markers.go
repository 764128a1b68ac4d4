// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/jcodagnone/mailgeo/markers"
	"github.com/spf13/cobra"
)

type markersOptions struct {
	MapsKey string
	Addr    string
}

var markersOpts = &markersOptions{}

func mapsKey() string {
	if markersOpts.MapsKey != "" {
		return markersOpts.MapsKey
	}

	return os.Getenv("GOOGLE_MAPS_API_KEY")
}

var markersCmd = &cobra.Command{
	Use:   "markers [stage] [collection]",
	Short: "Generates a Google Maps page with a marker per resolved record",
	Long: `Writes Markers/Generated/<collection>.html with a marker for every record
that has coordinates. When Markers/source.html exists it's used as the page
template; the markers are available to it as {{.Markers}}.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return runMarkers(args)
	},
}

func runMarkers(args []string) error {
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

	tmpl := markers.DefaultTemplate

	custom, err := markers.LoadTemplate(options.markersTmpl())
	switch {
	case err == nil:
		tmpl = custom
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err := os.MkdirAll(options.markersDir(), 0o755); err != nil {
		return err
	}

	path := filepath.Join(options.markersDir(), collection+".html")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ms := markers.Build(records)
	if err := markers.RenderPage(f, tmpl, markers.Page{Title: collection, APIKey: mapsKey(), Markers: ms}); err != nil {
		return err
	}

	log.Printf("✅ %d markers (%d records without coordinates) written to %s", len(ms), len(records)-len(ms), path)

	for _, c := range markers.Shared(ms, markers.SameBuilding) {
		log.Printf("📍 %d recipients share the delivery point of %s (%s)", len(c), c[0].Name, c[0].Address)
	}

	return f.Close()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the stored collections and their maps over HTTP",
	RunE: func(_ *cobra.Command, _ []string) error {
		repo, err := options.openStore()
		if err != nil {
			return err
		}
		defer repo.DB().Close()

		fmt.Printf("🗺️  Maps at http://%s/map/<stage>/<collection>\n", markersOpts.Addr)

		return markers.NewServer(repo, mapsKey()).Run(markersOpts.Addr)
	},
}

func init() {
	rootCmd.AddCommand(markersCmd)
	rootCmd.AddCommand(serveCmd)
	for _, c := range []*cobra.Command{markersCmd, serveCmd} {
		c.Flags().StringVar(&markersOpts.MapsKey, "maps-key", "",
			"Google Maps JavaScript API key for the map page. Defaults to GOOGLE_MAPS_API_KEY")
	}
	serveCmd.Flags().StringVar(&markersOpts.Addr, "addr", "localhost:8080", "Listen address")
}
