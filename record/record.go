// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the rows read from mailing spreadsheets and the
// records produced from them.
package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcodagnone/mailgeo/spatial"
)

// Absent marks a column that the document doesn't have.
const Absent = -1

// UnknownFailure is the reason recorded when the cause of a failure has no
// text.
const UnknownFailure = "unknown failure"

// ColumnIndex maps the logical fields of a mailing to spreadsheet columns.
type ColumnIndex struct {
	Name       int `json:"name"`
	Addressee  int `json:"addressee"`
	Street     int `json:"street"` // street name or the full address
	Number     int `json:"number"`
	Complement int `json:"complement"`
	City       int `json:"city"`
	Postal     int `json:"postal"`
}

// ColumnHelp describes the expected order for ParseColumnIndex.
const ColumnHelp = "Receiver, Addressee, Address, Number, Complement, City, Zip Code"

// ParseColumnIndex parses seven space separated column numbers, -1 meaning
// that the column is not present.
func ParseColumnIndex(s string) (ColumnIndex, error) {
	fields := strings.Fields(s)
	if len(fields) != 7 {
		return ColumnIndex{}, fmt.Errorf("expected 7 column indices (%s), got %d", ColumnHelp, len(fields))
	}

	var v [7]int

	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return ColumnIndex{}, fmt.Errorf("column %d: %w", i, err)
		}

		if n < Absent {
			return ColumnIndex{}, fmt.Errorf("column %d: invalid index %d", i, n)
		}

		v[i] = n
	}

	if v[0] == Absent {
		return ColumnIndex{}, fmt.Errorf("the receiver column is mandatory")
	}

	return ColumnIndex{
		Name:       v[0],
		Addressee:  v[1],
		Street:     v[2],
		Number:     v[3],
		Complement: v[4],
		City:       v[5],
		Postal:     v[6],
	}, nil
}

// RawRow is a spreadsheet row as read from the source document.
type RawRow struct {
	Document string
	Line     int // 1-based, header excluded
	Fields   []string
}

// Field returns the value at column i or "" when the column is absent.
func (r RawRow) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}

	return r.Fields[i]
}

// Record is a mailing entry after resolution. It either carries the canonical
// address (PostalCode set) or the original row with the reason it could not
// be resolved (FailureReason set), never both.
type Record struct {
	Name             string         `json:"name"`
	Addressee        *string        `json:"addressee,omitempty"`
	FormattedAddress string         `json:"formatted_address,omitempty"`
	PostalCode       string         `json:"postal_code,omitempty"`
	OriginalPostal   string         `json:"original_postal,omitempty"`
	City             string         `json:"city,omitempty"`
	State            string         `json:"state,omitempty"`
	Point            *spatial.Point `json:"point,omitempty"`

	Raw           []string `json:"raw,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`

	// Fields merged from other datasets, before and after the record.
	Prefix []string `json:"prefix,omitempty"`
	Suffix []string `json:"suffix,omitempty"`
}

// Failed returns the record for a row that could not be resolved.
func Failed(row RawRow, cols ColumnIndex, reason string) Record {
	if strings.TrimSpace(reason) == "" {
		reason = UnknownFailure
	}

	return Record{
		Name:          row.Field(cols.Name),
		Raw:           append([]string(nil), row.Fields...),
		FailureReason: reason,
	}
}

// IsFailed reports whether the record carries a failure instead of an address.
func (r Record) IsFailed() bool {
	return r.FailureReason != ""
}

// Fields renders the record as a flat field sequence.
func (r Record) Fields() []string {
	ret := append([]string(nil), r.Prefix...)

	if r.IsFailed() {
		ret = append(ret, r.Raw...)
		ret = append(ret, r.FailureReason)
	} else {
		ret = append(ret, r.Name)
		if r.Addressee != nil {
			ret = append(ret, *r.Addressee)
		}

		lat, lng := "", ""
		if r.Point != nil {
			lat = strconv.FormatFloat(r.Point.Lat, 'f', -1, 64)
			lng = strconv.FormatFloat(r.Point.Lng, 'f', -1, 64)
		}

		ret = append(ret,
			r.FormattedAddress,
			r.PostalCode,
			r.OriginalPostal,
			r.City,
			r.State,
			lat,
			lng,
		)
	}

	return append(ret, r.Suffix...)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.Addressee != nil {
		a := *r.Addressee
		c.Addressee = &a
	}

	if r.Point != nil {
		p := *r.Point
		c.Point = &p
	}

	c.Raw = append([]string(nil), r.Raw...)
	c.Prefix = append([]string(nil), r.Prefix...)
	c.Suffix = append([]string(nil), r.Suffix...)

	return c
}
