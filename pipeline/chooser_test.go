// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"strings"
	"testing"

	"github.com/jcodagnone/mailgeo/geocode"
	"github.com/jcodagnone/mailgeo/postal"
	"github.com/jcodagnone/mailgeo/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postalCandidates = []postal.Candidate{
	{Street: "Rua A", City: "Porto Alegre", PostalCode: "90000-000"},
	{Street: "Rua B", City: "Porto Alegre", PostalCode: "90000-001"},
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
		retries int
	}{
		{name: "valid", input: "1\n", want: 1},
		{name: "without newline", input: "0", want: 0},
		{name: "asks again", input: "x\n5\n-1\n1\n", want: 1, retries: 3},
		{name: "eof", input: "", wantErr: true},
		{name: "eof after garbage", input: "nope", wantErr: true, retries: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder

			p := NewPrompt[postal.Candidate](bufio.NewReader(strings.NewReader(tt.input)), &out)
			got, err := p.Choose(t.Context(), postalCandidates, "Choose:")

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.Contains(t, out.String(), "0. "+postalCandidates[0].String())
			assert.Contains(t, out.String(), "1. "+postalCandidates[1].String())
			assert.Equal(t, tt.retries, strings.Count(out.String(), "Enter a number between 0 and 1."))
		})
	}
}

func TestNearest(t *testing.T) {
	candidates := []geocode.Candidate{
		{Street: "Rua da Praia", Latitude: -30.0277, Longitude: -51.2287},
		{Street: "Avenida Assis Brasil", Latitude: -29.9904, Longitude: -51.1296},
		{Street: "Avenida Ipiranga", Latitude: -30.0590, Longitude: -51.1740},
	}

	got, err := Nearest{Reference: spatial.Point{Lat: -29.99, Lng: -51.13}}.Choose(t.Context(), candidates, "")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestFirst(t *testing.T) {
	got, err := First[postal.Candidate]{}.Choose(t.Context(), postalCandidates, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestMetricsMerge(t *testing.T) {
	m := &Metrics{Rows: 1, Completed: 1}
	m.Merge(&Metrics{Rows: 2, Failed: 1, Skipped: 1, GeocodeCalls: 2}).Merge(nil)

	assert.Equal(t, &Metrics{Rows: 3, Completed: 1, Failed: 1, Skipped: 1, GeocodeCalls: 2}, m)
}
