// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/jcodagnone/mailgeo/utils/httputils"
)

// DefaultEndpoint is the XML flavour of the Google Maps Geocoding API.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/xml"

const (
	statusOK = "OK"
	service  = "geocode"
)

// Options configures the Google Maps geocoder.
type Options struct {
	// Endpoint overrides DefaultEndpoint
	Endpoint string

	// APIKey is sent as the key parameter when not empty
	APIKey string

	// Region biases results to a ccTLD, e.g. "br"
	Region string
}

// GoogleMaps uses the Google Maps Geocoding API.
type GoogleMaps struct {
	options    Options
	httpClient *http.Client
}

// NewGoogleMaps creates a new Google Maps geocoder.
func NewGoogleMaps(options Options, client *http.Client) *GoogleMaps {
	if options.Endpoint == "" {
		options.Endpoint = DefaultEndpoint
	}

	if client == nil {
		client = httputils.NewClient(nil)
	}

	return &GoogleMaps{options: options, httpClient: client}
}

type xmlResponse struct {
	XMLName      xml.Name    `xml:"GeocodeResponse"`
	Status       string      `xml:"status"`
	ErrorMessage string      `xml:"error_message"`
	Results      []xmlResult `xml:"result"`
}

type xmlResult struct {
	FormattedAddress string         `xml:"formatted_address"`
	Components       []xmlComponent `xml:"address_component"`
	Geometry         *xmlGeometry   `xml:"geometry"`
}

type xmlComponent struct {
	LongName  string   `xml:"long_name"`
	ShortName string   `xml:"short_name"`
	Types     []string `xml:"type"`
}

type xmlGeometry struct {
	Location *struct {
		Lat string `xml:"lat"`
		Lng string `xml:"lng"`
	} `xml:"location"`
	LocationType string `xml:"location_type"`
}

// componentRoles assigns a component to a candidate field by its declared type.
var componentRoles = []struct {
	kind   string
	assign func(c *Candidate, comp *xmlComponent)
}{
	{"route", func(c *Candidate, comp *xmlComponent) { c.Street = comp.LongName }},
	{"street_number", func(c *Candidate, comp *xmlComponent) { c.Number = comp.LongName }},
	{"administrative_area_level_2", func(c *Candidate, comp *xmlComponent) { c.City = comp.LongName }},
	{"administrative_area_level_1", func(c *Candidate, comp *xmlComponent) { c.State = comp.ShortName }},
}

// Resolve implements Resolver.
func (g *GoogleMaps) Resolve(ctx context.Context, query string) (*Response, error) {
	params := url.Values{}
	params.Set("address", query)

	if g.options.APIKey != "" {
		params.Set("key", g.options.APIKey)
	}

	if g.options.Region != "" {
		params.Set("region", g.options.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.options.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		geoErr := &GeocodingError{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: err}
		if errors.Is(err, context.DeadlineExceeded) || IsTimeoutError(err) {
			geoErr.Type = ErrorTypeTimeout
		}

		return nil, &httputils.TransportError{Service: service, Err: geoErr}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httputils.TransportError{Service: service, Err: ClassifyHTTPError(resp.StatusCode)}
	}

	var doc xmlResponse
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &ParseError{Index: -1, Reason: "decoding response", Err: err}
	}

	return parseResponse(&doc)
}

func parseResponse(doc *xmlResponse) (*Response, error) {
	status := strings.TrimSpace(doc.Status)
	if status == "" {
		return nil, &ParseError{Index: -1, Reason: "missing status"}
	}

	if status != statusOK {
		return nil, &StatusError{
			Type:    ClassifyStatus(status),
			Status:  status,
			Message: strings.TrimSpace(doc.ErrorMessage),
		}
	}

	ret := &Response{Status: status}

	for i := range doc.Results {
		c, err := parseResult(i, &doc.Results[i])
		if err != nil {
			ret.Dropped = append(ret.Dropped, err)

			continue
		}

		ret.Candidates = append(ret.Candidates, c)
	}

	return ret, nil
}

func parseResult(index int, r *xmlResult) (Candidate, error) {
	c := Candidate{FormattedAddress: strings.TrimSpace(r.FormattedAddress)}

	for i := range r.Components {
		comp := &r.Components[i]
		for _, role := range componentRoles {
			if slices.Contains(comp.Types, role.kind) {
				role.assign(&c, comp)
			}
		}
	}

	if r.Geometry == nil || r.Geometry.Location == nil {
		return Candidate{}, &ParseError{Index: index, Reason: "missing geometry location"}
	}

	var err error

	if c.Latitude, err = strconv.ParseFloat(strings.TrimSpace(r.Geometry.Location.Lat), 64); err != nil {
		return Candidate{}, &ParseError{Index: index, Reason: "invalid latitude", Err: err}
	}

	if c.Longitude, err = strconv.ParseFloat(strings.TrimSpace(r.Geometry.Location.Lng), 64); err != nil {
		return Candidate{}, &ParseError{Index: index, Reason: "invalid longitude", Err: err}
	}

	c.LocationType = strings.TrimSpace(r.Geometry.LocationType)

	return c, nil
}
