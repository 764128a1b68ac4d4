// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package linkage merges auxiliary datasets, such as label numbers or
// delivery events, into resolved records.
package linkage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcodagnone/mailgeo/record"
)

// KeySource selects which record value is compared with the auxiliary key.
type KeySource int

const (
	// KeyName matches on the record name.
	KeyName KeySource = iota
	// KeyPrefix matches on the first prefix field, e.g. a previously linked
	// label number.
	KeyPrefix
)

// Placement tells where the payload goes.
type Placement int

const (
	// Prepend adds the payload to the record prefix, before earlier links.
	Prepend Placement = iota
	// Append adds the payload to the record suffix, after earlier links.
	Append
)

// Rule describes how an auxiliary row is matched and what it contributes.
type Rule struct {
	AuxKey    int   // column of the auxiliary row holding the key
	Payload   []int // columns copied into matching records
	Key       KeySource
	Placement Placement
}

// LabelsRule links label sheets: name in column 2, label number in column 1.
var LabelsRule = Rule{AuxKey: 2, Payload: []int{1}, Key: KeyName, Placement: Prepend}

// EventsRule links delivery history: name in column 0, status in column 8.
var EventsRule = Rule{AuxKey: 0, Payload: []int{8}, Key: KeyName, Placement: Append}

// Stats reports what happened during a Link.
type Stats struct {
	Matched   int // auxiliary rows that matched at least one record
	Unmatched int // auxiliary rows that matched nothing
	Updated   int // records that received at least one payload
}

func (s Stats) String() string {
	return fmt.Sprintf("%d matched, %d unmatched, %d records updated", s.Matched, s.Unmatched, s.Updated)
}

// Link returns a copy of primary where every record whose key equals the key
// of an auxiliary row received that row's payload. Neither input is
// modified, order is preserved and no records are added.
func Link(primary []record.Record, aux []record.RawRow, rule Rule) ([]record.Record, Stats) {
	ret := make([]record.Record, len(primary))
	for i, r := range primary {
		ret[i] = r.Clone()
	}

	var stats Stats

	updated := make([]bool, len(ret))

	for _, row := range aux {
		key := row.Field(rule.AuxKey)
		payload := make([]string, len(rule.Payload))

		for i, col := range rule.Payload {
			payload[i] = row.Field(col)
		}

		matched := false

		for i := range ret {
			k, ok := rule.key(ret[i])
			if !ok || k != key {
				continue
			}

			matched = true
			updated[i] = true

			if rule.Placement == Prepend {
				ret[i].Prefix = append(append([]string(nil), payload...), ret[i].Prefix...)
			} else {
				ret[i].Suffix = append(ret[i].Suffix, payload...)
			}
		}

		if matched {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
	}

	for _, u := range updated {
		if u {
			stats.Updated++
		}
	}

	return ret, stats
}

func (r Rule) key(rec record.Record) (string, bool) {
	switch r.Key {
	case KeyPrefix:
		if len(rec.Prefix) == 0 {
			return "", false
		}

		return rec.Prefix[0], true
	default:
		return rec.Name, true
	}
}

// ParseRule parses a rule from its command line form:
// "<key column>:<payload columns, comma separated>[:name|prefix]".
func ParseRule(s string, placement Placement) (Rule, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Rule{}, fmt.Errorf("invalid rule %q, expected key:payload[,payload...][:name|prefix]", s)
	}

	key, err := strconv.Atoi(parts[0])
	if err != nil || key < 0 {
		return Rule{}, fmt.Errorf("invalid key column %q", parts[0])
	}

	rule := Rule{AuxKey: key, Placement: placement}

	for _, p := range strings.Split(parts[1], ",") {
		col, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || col < 0 {
			return Rule{}, fmt.Errorf("invalid payload column %q", p)
		}

		rule.Payload = append(rule.Payload, col)
	}

	if len(parts) == 3 {
		switch parts[2] {
		case "name":
			rule.Key = KeyName
		case "prefix":
			rule.Key = KeyPrefix
		default:
			return Rule{}, fmt.Errorf("invalid key source %q, expected name or prefix", parts[2])
		}
	}

	return rule, nil
}
