// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"testing"

	"github.com/jcodagnone/mailgeo/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnIndex(t *testing.T) {
	cols, err := ParseColumnIndex("0 -1 2 3 -1 5 6")
	require.NoError(t, err)
	assert.Equal(t, ColumnIndex{
		Name:       0,
		Addressee:  Absent,
		Street:     2,
		Number:     3,
		Complement: Absent,
		City:       5,
		Postal:     6,
	}, cols)

	for _, bad := range []string{"", "0 1 2", "0 1 2 3 4 5 x", "-1 1 2 3 4 5 6", "0 1 2 3 4 5 -2"} {
		_, err := ParseColumnIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestRawRowField(t *testing.T) {
	row := RawRow{Fields: []string{"a", "b"}}

	assert.Equal(t, "a", row.Field(0))
	assert.Equal(t, "b", row.Field(1))
	assert.Empty(t, row.Field(2))
	assert.Empty(t, row.Field(Absent))
}

func TestFieldsCanonical(t *testing.T) {
	addressee := "Maria"
	r := Record{
		Name:             "John Doe",
		Addressee:        &addressee,
		FormattedAddress: "Rua das Flores, 123 / apto 4 - Porto Alegre/RS",
		PostalCode:       "91000-000",
		OriginalPostal:   "91000000",
		City:             "Porto Alegre",
		State:            "RS",
		Point:            &spatial.Point{Lat: -30.03, Lng: -51.22},
		Prefix:           []string{"42"},
		Suffix:           []string{"BDE 01"},
	}

	assert.Equal(t, []string{
		"42",
		"John Doe",
		"Maria",
		"Rua das Flores, 123 / apto 4 - Porto Alegre/RS",
		"91000-000",
		"91000000",
		"Porto Alegre",
		"RS",
		"-30.03",
		"-51.22",
		"BDE 01",
	}, r.Fields())
}

func TestFieldsFailed(t *testing.T) {
	row := RawRow{Fields: []string{"John Doe", "Rua das Flores", "Porto Alegre"}}
	r := Failed(row, ColumnIndex{Name: 0}, "no usable address")

	assert.True(t, r.IsFailed())
	assert.Empty(t, r.PostalCode)
	assert.Equal(t, "John Doe", r.Name)
	assert.Equal(t, []string{"John Doe", "Rua das Flores", "Porto Alegre", "no usable address"}, r.Fields())

	// the record owns its copy of the row
	row.Fields[0] = "changed"
	assert.Equal(t, "John Doe", r.Raw[0])
}

func TestFailedWithoutReason(t *testing.T) {
	row := RawRow{Fields: []string{"Maria Silva", "Rua das Flores 123"}}

	for _, reason := range []string{"", "  "} {
		r := Failed(row, ColumnIndex{Name: 0}, reason)

		assert.True(t, r.IsFailed())
		assert.Equal(t, UnknownFailure, r.FailureReason)
		assert.Equal(t, []string{"Maria Silva", "Rua das Flores 123", UnknownFailure}, r.Fields())
	}
}

func TestClone(t *testing.T) {
	r := Record{Name: "a", Point: &spatial.Point{Lat: 1, Lng: 2}, Prefix: []string{"1"}}
	c := r.Clone()
	c.Point.Lat = 5
	c.Prefix[0] = "2"

	assert.InDelta(t, 1.0, r.Point.Lat, 0)
	assert.Equal(t, "1", r.Prefix[0])
}
