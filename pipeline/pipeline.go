// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline resolves mailing rows into canonical records: address
// normalization, geocoding and postal code lookup, one row at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jcodagnone/mailgeo/address"
	"github.com/jcodagnone/mailgeo/geocode"
	"github.com/jcodagnone/mailgeo/postal"
	"github.com/jcodagnone/mailgeo/record"
	"github.com/jcodagnone/mailgeo/utils/httputils"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// Failure reasons that don't come from a remote service.
const (
	ReasonNoAddress     = "no usable address"
	ReasonNoGeocodeHits = "no usable geocoding result"
)

// DefaultDelay is the minimum time between rows that hit the network.
const DefaultDelay = 2 * time.Second

// State is the resolution stage a row reached.
type State int

const (
	// Pending rows haven't been looked at.
	Pending State = iota
	// Normalized rows have a street, number and complement.
	Normalized
	// Geocoded rows have a selected geocoding candidate.
	Geocoded
	// PostalResolved rows have a selected postal code.
	PostalResolved
	// Complete rows produced a canonical record.
	Complete
	// Failed rows produced a record carrying the failure reason.
	Failed
	// Skipped rows hit a transport fault during postal lookup and produced
	// no record.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Normalized:
		return "normalized"
	case Geocoded:
		return "geocoded"
	case PostalResolved:
		return "postal-resolved"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the result of processing a single row.
type Outcome struct {
	Row    record.RawRow
	State  State
	Record *record.Record // nil for skipped rows
	Err    error          // cause of a failed or skipped row
}

// Options configures a Pipeline.
type Options struct {
	// Columns maps the document columns
	Columns record.ColumnIndex

	// Delay between rows that reach the external services. Zero disables it.
	Delay time.Duration

	// Retries for geocoding transport failures
	Retries int

	// Progress shows a progress bar instead of a log line per row, if stderr
	// is a terminal
	Progress bool
}

// Pipeline resolves rows sequentially.
type Pipeline struct {
	options       Options
	geocoder      geocode.Resolver
	postal        postal.Resolver
	chooseGeocode Chooser[geocode.Candidate]
	choosePostal  Chooser[postal.Candidate]
	limiter       *rate.Limiter
	Metrics       Metrics
}

// New creates a pipeline. Nil choosers default to the first candidate.
func New(
	options Options,
	geocoder geocode.Resolver,
	postalResolver postal.Resolver,
	chooseGeocode Chooser[geocode.Candidate],
	choosePostal Chooser[postal.Candidate],
) *Pipeline {
	if chooseGeocode == nil {
		chooseGeocode = First[geocode.Candidate]{}
	}

	if choosePostal == nil {
		choosePostal = First[postal.Candidate]{}
	}

	limit := rate.Inf
	if options.Delay > 0 {
		limit = rate.Every(options.Delay)
	}

	return &Pipeline{
		options:       options,
		geocoder:      geocoder,
		postal:        postalResolver,
		chooseGeocode: chooseGeocode,
		choosePostal:  choosePostal,
		limiter:       rate.NewLimiter(limit, 1),
	}
}

// Run processes rows in order. onOutcome, if not nil, is called after every
// row so callers can persist incrementally; an error from it stops the run.
//
// The returned records keep the input order. When ctx is cancelled the run
// stops, the in-flight row is discarded and the records collected so far
// are returned along with the context error. The run also stops, with the
// records collected so far, when a row can't get a slot from the rate
// limiter before the context deadline and after the first row that finds the
// geocoding quota exhausted.
func (p *Pipeline) Run(ctx context.Context, rows []record.RawRow, onOutcome func(Outcome) error) ([]record.Record, error) {
	n := len(rows)
	records := make([]record.Record, 0, n)

	var bar *progressbar.ProgressBar
	if p.options.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Resolving"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i, row := range rows {
		if bar == nil {
			log.Printf("[%d/%d] %s", i+1, n, row.Field(p.options.Columns.Name))
		}

		out := p.Process(ctx, row)
		if err := ctx.Err(); err != nil {
			return records, err
		}

		switch out.State {
		case Complete:
			records = append(records, *out.Record)
		case Failed:
			records = append(records, *out.Record)

			if bar == nil {
				log.Printf("[%d/%d] Failed: %s", i+1, n, out.Record.FailureReason)
			}
		case Skipped:
			log.Printf("[%d/%d] Skipped: %s", i+1, n, out.Err)
		default:
			// the limiter gave up before the context did, e.g. the deadline
			// comes before the next slot
			return records, fmt.Errorf("row %d interrupted while %s: %w", i+1, out.State, out.Err)
		}

		if onOutcome != nil {
			if err := onOutcome(out); err != nil {
				return records, err
			}
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				log.Printf("updating progress bar: %s", err)
			}
		}

		// every remaining row would fail the same way
		if out.State == Failed && out.Err != nil && geocode.IsQuotaExceededError(out.Err) {
			return records, fmt.Errorf("geocoding quota exhausted at row %d: %w", i+1, out.Err)
		}
	}

	log.Printf(
		"Resolution complete - %d rows, %d complete, %d failed, %d skipped",
		p.Metrics.Rows,
		p.Metrics.Completed,
		p.Metrics.Failed,
		p.Metrics.Skipped,
	)

	return records, nil
}

// Process resolves a single row.
func (p *Pipeline) Process(ctx context.Context, row record.RawRow) Outcome {
	p.Metrics.Rows++

	out := p.process(ctx, row)

	switch out.State {
	case Complete:
		p.Metrics.Completed++
	case Failed:
		p.Metrics.Failed++
	case Skipped:
		p.Metrics.Skipped++
	}

	return out
}

func (p *Pipeline) fail(row record.RawRow, reason string, err error) Outcome {
	r := record.Failed(row, p.options.Columns, reason)

	return Outcome{Row: row, State: Failed, Record: &r, Err: err}
}

func (p *Pipeline) process(ctx context.Context, row record.RawRow) Outcome {
	cols := p.options.Columns

	parsed, err := address.Normalize(row.Field(cols.Street), row.Field(cols.Number), row.Field(cols.Complement))
	if err != nil {
		return p.fail(row, ReasonNoAddress, err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Outcome{Row: row, State: Normalized, Err: err}
	}

	candidate, out, ok := p.geocode(ctx, row, parsed)
	if !ok {
		return out
	}

	// geocoders sometimes interpolate the position and drop the number
	if candidate.Number == "" {
		candidate.Number = parsed.Number
	}

	code, out, ok := p.postalCode(ctx, row, candidate)
	if !ok {
		return out
	}

	numberPart := candidate.Number
	if parsed.HasComplement {
		numberPart += " / " + parsed.Complement
	}

	point := candidate.Point()
	r := record.Record{
		Name:             row.Field(cols.Name),
		FormattedAddress: fmt.Sprintf("%s, %s - %s/%s", candidate.Street, numberPart, candidate.City, candidate.State),
		PostalCode:       code.PostalCode,
		OriginalPostal:   row.Field(cols.Postal),
		City:             candidate.City,
		State:            candidate.State,
		Point:            &point,
	}

	if cols.Addressee != record.Absent {
		addressee := row.Field(cols.Addressee)
		r.Addressee = &addressee
	}

	return Outcome{Row: row, State: Complete, Record: &r}
}

func (p *Pipeline) geocode(ctx context.Context, row record.RawRow, parsed address.Parsed) (geocode.Candidate, Outcome, bool) {
	query := address.Query(parsed, row.Field(p.options.Columns.City))

	var (
		resp *geocode.Response
		err  error
	)

	for attempt := 0; ; attempt++ {
		p.Metrics.GeocodeCalls++

		resp, err = p.geocoder.Resolve(ctx, query)
		if err == nil || !retryable(err) || attempt >= p.options.Retries || ctx.Err() != nil {
			break
		}

		p.Metrics.Retries++

		slots := 1
		if geocode.IsRateLimitError(err) {
			slots = attempt + 2
			log.Printf("Geocoding is rate limited, backing off %d slots: %s", slots, err)
		} else {
			log.Printf("Retrying geocoding of %q: %s", query, err)
		}

		for range slots {
			if werr := p.limiter.Wait(ctx); werr != nil {
				return geocode.Candidate{}, Outcome{Row: row, State: Normalized, Err: werr}, false
			}
		}
	}

	if err != nil {
		var statusErr *geocode.StatusError
		if errors.As(err, &statusErr) {
			return geocode.Candidate{}, p.fail(row, statusErr.Reason(), err), false
		}

		return geocode.Candidate{}, p.fail(row, err.Error(), err), false
	}

	for _, dropped := range resp.Dropped {
		log.Printf("Ignoring geocoding result for %q: %s", query, dropped)
	}

	idx, err := pick(ctx, resp.Candidates, p.chooseGeocode,
		fmt.Sprintf("Geocoding found %d addresses for %q. Choose one:", len(resp.Candidates), query))
	if err != nil {
		return geocode.Candidate{}, p.fail(row, err.Error(), err), false
	}

	if idx < 0 {
		return geocode.Candidate{}, p.fail(row, ReasonNoGeocodeHits, nil), false
	}

	return resp.Candidates[idx], Outcome{}, true
}

func (p *Pipeline) postalCode(ctx context.Context, row record.RawRow, c geocode.Candidate) (postal.Candidate, Outcome, bool) {
	p.Metrics.PostalCalls++

	candidates, err := p.postal.Resolve(ctx, postal.Query{
		Street: c.Street,
		City:   c.City,
		State:  c.State,
		Number: c.Number,
	})
	if err != nil {
		// transient network faults here are common and say nothing about
		// the address, the row is dropped without annotation
		if httputils.IsTransport(err) {
			return postal.Candidate{}, Outcome{Row: row, State: Skipped, Err: err}, false
		}

		var nf *postal.NotFoundError
		if errors.As(err, &nf) {
			return postal.Candidate{}, p.fail(row, nf.Message, err), false
		}

		return postal.Candidate{}, p.fail(row, err.Error(), err), false
	}

	idx, err := pick(ctx, candidates, p.choosePostal, "Choose a postal code:")
	if err != nil {
		return postal.Candidate{}, p.fail(row, err.Error(), err), false
	}

	if idx < 0 {
		err := &postal.ParseError{Reason: "no postal code candidates"}

		return postal.Candidate{}, p.fail(row, err.Error(), err), false
	}

	return candidates[idx], Outcome{}, true
}

// retryable reports whether a geocoding failure may succeed on a later
// attempt. An exhausted quota won't.
func retryable(err error) bool {
	return httputils.IsTransport(err) && !geocode.IsQuotaExceededError(err)
}

// pick returns -1 when there is nothing to choose from.
func pick[T any](ctx context.Context, candidates []T, chooser Chooser[T], prompt string) (int, error) {
	switch len(candidates) {
	case 0:
		return -1, nil
	case 1:
		return 0, nil
	}

	idx, err := chooser.Choose(ctx, candidates, prompt)
	if err != nil {
		return 0, fmt.Errorf("choosing candidate: %w", err)
	}

	if idx < 0 || idx >= len(candidates) {
		return 0, fmt.Errorf("choosing candidate: index %d out of range [0, %d)", idx, len(candidates))
	}

	return idx, nil
}
