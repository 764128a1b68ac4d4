// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text addresses into structured, geolocated
// candidates.
package geocode

import (
	"context"
	"fmt"

	"github.com/jcodagnone/mailgeo/spatial"
)

// Candidate is one structural match returned by the geocoding service.
type Candidate struct {
	Street string `json:"street"`
	// Number may come back empty when the service interpolated the position.
	Number           string  `json:"number"`
	City             string  `json:"city"`
	State            string  `json:"state"` // abbreviated
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
	LocationType     string  `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
}

// Point returns the candidate coordinates.
func (c Candidate) Point() spatial.Point {
	return spatial.Point{Lat: c.Latitude, Lng: c.Longitude}
}

// String is used when asking a human to pick a candidate.
func (c Candidate) String() string {
	return fmt.Sprintf("%s, %s - %s / %s (%s)", c.Street, c.Number, c.City, c.State, c.LocationType)
}

// Response holds every usable candidate of a successful lookup.
type Response struct {
	Status     string
	Candidates []Candidate
	// Dropped holds a *ParseError for every result that could not be used.
	Dropped []error
}

// Resolver looks up an address query.
//
// A non-success answer from the service is reported as a *StatusError, a
// communication failure as a *httputils.TransportError.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Response, error)
}
