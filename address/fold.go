// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ASCIIFold removes diacritics, keeping case and spacing untouched.
func ASCIIFold(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)

	return s
}
