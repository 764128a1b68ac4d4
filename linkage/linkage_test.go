// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package linkage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/mailgeo/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	john := record.Record{Name: "John Doe", PostalCode: "91000-000"}
	simple := Rule{AuxKey: 0, Payload: []int{1}, Placement: Append}

	tests := []struct {
		name      string
		primary   []record.Record
		aux       []record.RawRow
		rule      Rule
		want      []record.Record
		wantStats Stats
	}{
		{
			name:      "match",
			primary:   []record.Record{john},
			aux:       []record.RawRow{{Fields: []string{"John Doe", "42"}}},
			rule:      simple,
			want:      []record.Record{{Name: "John Doe", PostalCode: "91000-000", Suffix: []string{"42"}}},
			wantStats: Stats{Matched: 1, Updated: 1},
		},
		{
			name:      "no match",
			primary:   []record.Record{john},
			aux:       []record.RawRow{{Fields: []string{"Jane Roe", "42"}}},
			rule:      simple,
			want:      []record.Record{john},
			wantStats: Stats{Unmatched: 1},
		},
		{
			name:    "labels",
			primary: []record.Record{john, {Name: "Jane Roe"}},
			aux: []record.RawRow{
				{Fields: []string{"x", "L-001", "Jane Roe"}},
				{Fields: []string{"x", "L-002", "John Doe"}},
			},
			rule: LabelsRule,
			want: []record.Record{
				{Name: "John Doe", PostalCode: "91000-000", Prefix: []string{"L-002"}},
				{Name: "Jane Roe", Prefix: []string{"L-001"}},
			},
			wantStats: Stats{Matched: 2, Updated: 2},
		},
		{
			name:    "events accumulate",
			primary: []record.Record{john},
			aux: []record.RawRow{
				{Fields: []string{"John Doe", "", "", "", "", "", "", "", "POSTED"}},
				{Fields: []string{"John Doe", "", "", "", "", "", "", "", "DELIVERED"}},
			},
			rule: EventsRule,
			want: []record.Record{
				{Name: "John Doe", PostalCode: "91000-000", Suffix: []string{"POSTED", "DELIVERED"}},
			},
			wantStats: Stats{Matched: 2, Updated: 1},
		},
		{
			name:    "duplicate names all receive payload",
			primary: []record.Record{john, john},
			aux:     []record.RawRow{{Fields: []string{"John Doe", "42"}}},
			rule:    simple,
			want: []record.Record{
				{Name: "John Doe", PostalCode: "91000-000", Suffix: []string{"42"}},
				{Name: "John Doe", PostalCode: "91000-000", Suffix: []string{"42"}},
			},
			wantStats: Stats{Matched: 1, Updated: 2},
		},
		{
			name: "by prefix",
			primary: []record.Record{
				{Name: "John Doe", Prefix: []string{"L-002"}},
				{Name: "Jane Roe"},
			},
			aux:  []record.RawRow{{Fields: []string{"L-002", "", "DELIVERED"}}},
			rule: Rule{AuxKey: 0, Payload: []int{2}, Key: KeyPrefix, Placement: Append},
			want: []record.Record{
				{Name: "John Doe", Prefix: []string{"L-002"}, Suffix: []string{"DELIVERED"}},
				{Name: "Jane Roe"},
			},
			wantStats: Stats{Matched: 1, Updated: 1},
		},
		{
			name:      "exact equality",
			primary:   []record.Record{john},
			aux:       []record.RawRow{{Fields: []string{"john doe ", "42"}}},
			rule:      simple,
			want:      []record.Record{john},
			wantStats: Stats{Unmatched: 1},
		},
		{
			name:    "failed records link by name",
			primary: []record.Record{{Name: "John Doe", Raw: []string{"John Doe", "Rua"}, FailureReason: "no usable address"}},
			aux:     []record.RawRow{{Fields: []string{"x", "L-009", "John Doe"}}},
			rule:    LabelsRule,
			want: []record.Record{{
				Name:          "John Doe",
				Raw:           []string{"John Doe", "Rua"},
				FailureReason: "no usable address",
				Prefix:        []string{"L-009"},
			}},
			wantStats: Stats{Matched: 1, Updated: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := Link(tt.primary, tt.aux, tt.rule)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Link() mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, tt.wantStats, stats)
		})
	}
}

func TestLinkDoesNotMutate(t *testing.T) {
	primary := []record.Record{{Name: "John Doe", Prefix: []string{"L-1"}}}
	aux := []record.RawRow{{Fields: []string{"x", "L-2", "John Doe"}}}

	got, _ := Link(primary, aux, LabelsRule)

	assert.Equal(t, []string{"L-2", "L-1"}, got[0].Prefix)
	assert.Equal(t, []string{"L-1"}, primary[0].Prefix)
	assert.Equal(t, []string{"x", "L-2", "John Doe"}, aux[0].Fields)
}

func TestLinkFields(t *testing.T) {
	primary := []record.Record{{Name: "John Doe", PostalCode: "91000-000"}}

	labelled, _ := Link(primary, []record.RawRow{{Fields: []string{"", "7", "John Doe"}}}, LabelsRule)
	tracked, _ := Link(labelled, []record.RawRow{{Fields: []string{"John Doe", "", "", "", "", "", "", "", "OK"}}}, EventsRule)

	fields := tracked[0].Fields()
	assert.Equal(t, "7", fields[0])
	assert.Equal(t, "John Doe", fields[1])
	assert.Equal(t, "OK", fields[len(fields)-1])
}

func TestParseRule(t *testing.T) {
	got, err := ParseRule("2:1", Prepend)
	require.NoError(t, err)
	assert.Equal(t, LabelsRule, got)

	got, err = ParseRule("0:8,9:prefix", Append)
	require.NoError(t, err)
	assert.Equal(t, Rule{AuxKey: 0, Payload: []int{8, 9}, Key: KeyPrefix, Placement: Append}, got)

	for _, bad := range []string{"", "1", "a:1", "1:b", "1:2:label", "-1:2", "1:2:3:4"} {
		_, err := ParseRule(bad, Append)
		assert.Error(t, err, bad)
	}
}
