// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package address splits free-form mailing addresses into street, house
// number and complement.
package address

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoNumberFound is returned when the address text has no house number.
var ErrNoNumberFound = errors.New("no house number found in address")

// the first run of 1 to 4 digits is taken as the house number, whatever follows.
var numberRegex = regexp.MustCompile(`\d{1,4}`)

// Parsed is a normalized address.
type Parsed struct {
	Street string `json:"street"`
	Number string `json:"number"`
	// Complement is only meaningful when HasComplement is set.
	Complement    string `json:"complement,omitempty"`
	HasComplement bool   `json:"has_complement"`
}

// NumberAndComplement returns "number / complement", or only the number when
// there is no complement.
func (p Parsed) NumberAndComplement() string {
	if !p.HasComplement {
		return p.Number
	}

	return p.Number + " / " + p.Complement
}

// Normalize parses the street (or full address), number and complement
// columns of a row. Any of them may be empty.
func Normalize(streetOrFullAddress, number, complement string) (Parsed, error) {
	parts := make([]string, 0, 3)

	for _, s := range []string{streetOrFullAddress, number, complement} {
		if s = strings.TrimSpace(strings.ReplaceAll(s, ",", "")); s != "" {
			parts = append(parts, s)
		}
	}

	text := strings.Join(parts, " ")

	loc := numberRegex.FindStringIndex(text)
	if loc == nil {
		return Parsed{}, ErrNoNumberFound
	}

	ret := Parsed{
		Street: strings.TrimSpace(text[:loc[0]]),
		Number: text[loc[0]:loc[1]],
	}

	if rest := strings.TrimSpace(text[loc[1]:]); rest != "" {
		ret.Complement = rest
		ret.HasComplement = true
	}

	return ret, nil
}

// Renormalize runs Normalize over an already parsed address.
func Renormalize(p Parsed) (Parsed, error) {
	complement := ""
	if p.HasComplement {
		complement = p.Complement
	}

	return Normalize(p.Street, p.Number, complement)
}

// Query builds the free-text geocoding query for a parsed address and the
// city on file.
func Query(p Parsed, city string) string {
	q := p.Street + ", " + p.Number
	if city = strings.TrimSpace(city); city != "" {
		q += " - " + city
	}

	return q
}
