// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package sheet reads mailing rows from spreadsheet documents.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jcodagnone/mailgeo/record"
	"github.com/xuri/excelize/v2"
)

// ErrStop can be returned by an Each callback to stop iterating without
// reporting an error.
var ErrStop = errors.New("stop")

var extensions = []string{".xlsx", ".xlsm"}

// Source is a directory holding spreadsheet documents.
type Source struct {
	Dir string
}

// List returns the documents in the directory sorted by name.
func (s Source) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.Dir, err)
	}

	var ret []string

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}

		if slices.Contains(extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			ret = append(ret, filepath.Join(s.Dir, e.Name()))
		}
	}

	slices.Sort(ret)

	return ret, nil
}

// Find resolves a document given its logical name, its file name or a path.
func (s Source) Find(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	docs, err := s.List()
	if err != nil {
		return "", err
	}

	for _, d := range docs {
		if filepath.Base(d) == name || DocumentName(d) == name {
			return d, nil
		}
	}

	return "", fmt.Errorf("document %q not found in %s", name, s.Dir)
}

// DocumentName returns the logical name of a document: its file name without
// extension.
func DocumentName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Each calls fn for every data row of every sheet of the document. The first
// row of each sheet is a header and is skipped, as are blank rows.
func (s Source) Each(path string, fn func(record.RawRow) error) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc := DocumentName(path)
	line := 0

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return fmt.Errorf("reading sheet %q of %s: %w", name, path, err)
		}

		for i, cells := range rows {
			if i == 0 || isBlank(cells) {
				continue
			}

			line++

			err := fn(record.RawRow{Document: doc, Line: line, Fields: cells})
			if errors.Is(err, ErrStop) {
				return nil
			}

			if err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadAll returns every data row of the document.
func (s Source) ReadAll(path string) ([]record.RawRow, error) {
	var ret []record.RawRow

	err := s.Each(path, func(r record.RawRow) error {
		ret = append(ret, r)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ret, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
