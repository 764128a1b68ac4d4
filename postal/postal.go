// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package postal looks up authoritative postal codes (CEP) on the Correios
// "busca CEP" form.
package postal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jcodagnone/mailgeo/address"
	"github.com/jcodagnone/mailgeo/utils/htmlutils"
	"github.com/jcodagnone/mailgeo/utils/httputils"
)

// DefaultEndpoint is the legacy Correios result page the form posts to.
const DefaultEndpoint = "http://www.buscacep.correios.com.br/sistemas/buscacep/resultadoBuscaCep.cfm"

const (
	service = "correios"
	// the trailing paragraph of a negative answer reads "DADOS NAO ENCONTRADOS"
	notFoundMarker = "NAO"
)

// Query is the geocoded address to look up.
type Query struct {
	Street string
	City   string
	State  string // abbreviated, e.g. RS
	Number string
}

// Candidate is one row of the result table.
type Candidate struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
}

// String is used when asking a human to pick a candidate.
func (c Candidate) String() string {
	return fmt.Sprintf("%s - %s - %s %s", c.Street, c.Neighborhood, c.City, c.PostalCode)
}

// NotFoundError is the service saying it has no postal code for the address.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return "postal code not found: " + e.Message
}

// ParseError is a result page without the expected structure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "postal parse: " + e.Reason
}

// Resolver looks up the postal codes for an address.
//
// A negative answer is a *NotFoundError, a communication failure a
// *httputils.TransportError and an unexpected page a *ParseError.
type Resolver interface {
	Resolve(ctx context.Context, q Query) ([]Candidate, error)
}

// Correios resolves postal codes with the Correios web form.
type Correios struct {
	endpoint   string
	httpClient *http.Client
}

// NewCorreios creates a new resolver. An empty endpoint means DefaultEndpoint.
func NewCorreios(endpoint string, client *http.Client) *Correios {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if client == nil {
		client = httputils.NewClient(&httputils.ClientOptions{EnableCookies: true})
	}

	return &Correios{endpoint: endpoint, httpClient: client}
}

// Form returns the form submitted for q. The service mishandles accented
// characters, so free text is folded to ASCII.
func Form(q Query) url.Values {
	return url.Values{
		"UF":         {q.State},
		"Localidade": {address.ASCIIFold(q.City)},
		"Logradouro": {address.ASCIIFold(q.Street)},
		"Numero":     {q.Number},
		"Submit":     {"Buscar"},
	}
}

// Resolve implements Resolver.
func (c *Correios) Resolve(ctx context.Context, q Query) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(Form(q).Encode()))
	if err != nil {
		return nil, fmt.Errorf("building postal request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &httputils.TransportError{Service: service, Err: err}
	}

	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, &httputils.TransportError{Service: service, Err: err}
	}

	node, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, &httputils.TransportError{Service: service, Err: err}
	}

	return Parse(goquery.NewDocumentFromNode(node))
}

// ParsePage extracts the candidates from a saved result page, already
// decoded to UTF-8.
func ParsePage(r io.Reader) ([]Candidate, error) {
	node, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, err
	}

	return Parse(goquery.NewDocumentFromNode(node))
}

// Parse extracts the candidates from a result page.
func Parse(doc *goquery.Document) ([]Candidate, error) {
	if p := doc.Find("p"); p.Length() > 0 {
		msg, err := htmlutils.Text(p.Last().Get(0))
		if err != nil {
			return nil, &ParseError{Reason: err.Error()}
		}

		if strings.Contains(msg, notFoundMarker) {
			return nil, &NotFoundError{Message: msg}
		}
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, &ParseError{Reason: "result table not found"}
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil, &ParseError{Reason: "result table has no data rows"}
	}

	ret := make([]Candidate, 0, rows.Length()-1)

	var errs []error

	rows.Slice(1, goquery.ToEnd).Each(func(i int, row *goquery.Selection) {
		cells := make([]string, 0, 4)

		var cellErr error

		row.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			text, err := htmlutils.Text(td.Get(0))
			if err != nil {
				cellErr = err

				return false
			}

			cells = append(cells, text)

			return len(cells) < 4
		})

		if cellErr != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i+1, cellErr))

			return
		}

		if len(cells) < 4 {
			errs = append(errs, fmt.Errorf("row %d: expected 4 cells, got %d", i+1, len(cells)))

			return
		}

		ret = append(ret, Candidate{
			Street:       cells[0],
			Neighborhood: cells[1],
			City:         cells[2],
			PostalCode:   cells[3],
		})
	})

	if len(errs) > 0 {
		return nil, &ParseError{Reason: errors.Join(errs...).Error()}
	}

	return ret, nil
}
