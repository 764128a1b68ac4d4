// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package markers

import (
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcodagnone/mailgeo/record"
	"github.com/jcodagnone/mailgeo/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []record.Record {
	return []record.Record{
		{
			Name:             "Maria Silva",
			FormattedAddress: "Rua das Flores, 123 - Porto Alegre/RS",
			PostalCode:       "91000-000",
			Point:            &spatial.Point{Lat: -30.0346, Lng: -51.2177},
			Prefix:           []string{"L-001"},
			Suffix:           []string{"POSTED", "DELIVERED"},
		},
		{Name: "João", Raw: []string{"João"}, FailureReason: "no usable address"},
		{Name: "Sem ponto", PostalCode: "90000-000"},
		{
			Name:             "Ana",
			FormattedAddress: "Rua das Flores, 125 - Porto Alegre/RS",
			PostalCode:       "91000-000",
			Point:            &spatial.Point{Lat: -30.0346, Lng: -51.2177},
		},
	}
}

func TestBuild(t *testing.T) {
	got := Build(sampleRecords())

	require.Len(t, got, 2)

	assert.Equal(t, "Maria Silva", got[0].Name)
	assert.Equal(t, "L-001", got[0].Label)
	assert.Equal(t, "DELIVERED", got[0].Status)
	assert.InDelta(t, -30.0346, got[0].Lat, 1e-9)
	assert.Len(t, got[0].Cell, 15)

	assert.Equal(t, "Ana", got[1].Name)
	assert.Empty(t, got[1].Label)
	assert.Empty(t, got[1].Status)

	// same building
	assert.Equal(t, map[string]int{got[0].Cell: 2}, Cells(got))
}

func TestRender(t *testing.T) {
	var sb strings.Builder

	require.NoError(t, Render(&sb, "clientes", Build(sampleRecords())))

	out := sb.String()
	assert.Contains(t, out, "<title>clientes</title>")
	assert.Contains(t, out, "var locations = [{")
	assert.Contains(t, out, `"name":"Maria Silva"`)
	assert.Contains(t, out, `"status":"DELIVERED"`)
	assert.NotContains(t, out, "&key=")
}

func TestRenderEscapes(t *testing.T) {
	var sb strings.Builder

	markers := []Marker{{Name: "</script><script>alert(1)</script>"}}
	require.NoError(t, Render(&sb, "x", markers))

	assert.NotContains(t, sb.String(), "<script>alert(1)")
}

func TestRenderEmpty(t *testing.T) {
	var sb strings.Builder

	require.NoError(t, Render(&sb, "empty", nil))
	assert.Contains(t, sb.String(), "var locations = [];")
}

func TestRenderPageCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.html")
	require.NoError(t, os.WriteFile(path, []byte(`<script>var locations = {{.Markers}};</script>{{.APIKey}}`), 0o600))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, RenderPage(&sb, tmpl, Page{APIKey: "k", Markers: []Marker{{Name: "a"}}}))
	assert.Contains(t, sb.String(), `var locations = [{"name":"a"`)
	assert.True(t, strings.HasSuffix(sb.String(), "k"))

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}

func TestDefaultTemplateIsHTML(t *testing.T) {
	assert.IsType(t, &template.Template{}, DefaultTemplate)
	assert.NotNil(t, DefaultTemplate.Lookup("map"))
}
