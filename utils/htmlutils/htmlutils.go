// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrCharsetMismatch is returned when a text node holds REPLACEMENT
// CHARACTERs, which means the page was decoded with the wrong charset.
var ErrCharsetMismatch = errors.New("charset mismatch")

// Node2string appends the whitespace-normalized text of n to sb.
func Node2string(n *html.Node, sb *strings.Builder) (err error) {
	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")

		if strings.ContainsRune(tmp, utf8.RuneError) {
			return fmt.Errorf("%w: `%s'", ErrCharsetMismatch, tmp)
		}

		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return nil
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err = Node2string(child, sb); err != nil {
			break
		}
	}

	return err
}

// Text returns the normalized text of n.
func Text(n *html.Node) (string, error) {
	sb := strings.Builder{}
	err := Node2string(n, &sb)

	return sb.String(), err
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}
