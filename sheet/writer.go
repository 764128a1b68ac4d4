// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name spreadsheet applications accept.
const maxSheetName = 31

// Sheet is a named table to write.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Write saves the sheets, in order, into a new workbook at path.
func Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("writing %s: no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	used := map[string]bool{}

	for i, s := range sheets {
		name := sheetName(s.Name, used)

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}

		row := 1

		if len(s.Header) > 0 {
			if err := setRow(f, name, row, s.Header); err != nil {
				return err
			}

			last, err := excelize.CoordinatesToCellName(len(s.Header), 1)
			if err != nil {
				return err
			}

			if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
				return err
			}

			row++
		}

		for _, r := range s.Rows {
			if err := setRow(f, name, row, r); err != nil {
				return err
			}

			row++
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}

	return f.SetSheetRow(sheet, cell, &cells)
}

// sheetName strips characters spreadsheets reject and makes the name unique.
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}

		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}

	base := []rune(name)
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}

	candidate := string(base)

	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		keep := min(len(base), maxSheetName-len(suffix))
		candidate = string(base[:keep]) + suffix
	}

	used[strings.ToLower(candidate)] = true

	return candidate
}
