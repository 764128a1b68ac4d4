// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jcodagnone/mailgeo/store"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

// rootOptions are the settings shared by every command.
type rootOptions struct {
	// BasePath is the working folder holding Spreadsheets/ and Markers/
	BasePath string

	// DbPath is the directory of the database
	DbPath string
}

var options = &rootOptions{}

// Folders below the base path.
func (o *rootOptions) mailingDir() string  { return filepath.Join(o.BasePath, "Spreadsheets", "Mailing") }
func (o *rootOptions) labelsDir() string   { return filepath.Join(o.BasePath, "Spreadsheets", "Labels") }
func (o *rootOptions) historyDir() string  { return filepath.Join(o.BasePath, "Spreadsheets", "History") }
func (o *rootOptions) markersDir() string  { return filepath.Join(o.BasePath, "Markers", "Generated") }
func (o *rootOptions) markersTmpl() string { return filepath.Join(o.BasePath, "Markers", "source.html") }

func (o *rootOptions) openStore() (store.Repository, error) {
	dir := o.DbPath
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(o.BasePath, dir)
	}

	return store.Open(dir)
}

var rootCmd = &cobra.Command{
	Use:   "mailgeo",
	Short: "mailing list address resolution",
	Long: `
mailgeo turns the addresses of a mailing spreadsheet into normalized,
geolocated records with their postal codes, links them with label and
delivery history sheets, and renders them on a map.
`,
	SilenceUsage: true,
}

var Version = "dev"

func userAgent() string {
	return fmt.Sprintf("mailgeo/%s (+https://github.com/jcodagnone/mailgeo)", Version)
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&options.BasePath,
		"base-path",
		".",
		"Working folder with the Spreadsheets and Markers folders",
	)
	rootCmd.PersistentFlags().StringVar(
		&options.DbPath,
		"db-path",
		"db",
		"Directory where the collections are stored, relative to the base path",
	)
}
