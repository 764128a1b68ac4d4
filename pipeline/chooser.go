// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jcodagnone/mailgeo/geocode"
	"github.com/jcodagnone/mailgeo/spatial"
)

// Chooser picks one of several candidates returned for the same query.
type Chooser[T any] interface {
	Choose(ctx context.Context, candidates []T, prompt string) (int, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc[T any] func(ctx context.Context, candidates []T, prompt string) (int, error)

// Choose implements Chooser.
func (f ChooserFunc[T]) Choose(ctx context.Context, candidates []T, prompt string) (int, error) {
	return f(ctx, candidates, prompt)
}

// First always picks the first candidate.
type First[T any] struct{}

// Choose implements Chooser.
func (First[T]) Choose(_ context.Context, _ []T, _ string) (int, error) {
	return 0, nil
}

// Prompt asks a human to pick a candidate by its number.
type Prompt[T fmt.Stringer] struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a prompt. The reader is shared with whoever else reads
// from the same input so buffered lines aren't lost.
func NewPrompt[T fmt.Stringer](in *bufio.Reader, out io.Writer) *Prompt[T] {
	return &Prompt[T]{in: in, out: out}
}

// Choose implements Chooser. Invalid answers are asked again.
func (p *Prompt[T]) Choose(ctx context.Context, candidates []T, prompt string) (int, error) {
	for i, c := range candidates {
		fmt.Fprintf(p.out, "%d. %s\n", i, c)
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		fmt.Fprintf(p.out, "%s ", prompt)

		line, err := p.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return 0, fmt.Errorf("reading choice: %w", err)
		}

		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && n >= 0 && n < len(candidates) {
			return n, nil
		}

		fmt.Fprintf(p.out, "Enter a number between 0 and %d.\n", len(candidates)-1)

		if err != nil {
			return 0, fmt.Errorf("reading choice: %w", err)
		}
	}
}

// Nearest picks the geocoding candidate closest to a reference point, e.g.
// the distribution centre.
type Nearest struct {
	Reference spatial.Point
}

// Choose implements Chooser.
func (n Nearest) Choose(_ context.Context, candidates []geocode.Candidate, _ string) (int, error) {
	best, bestDistance := 0, math.Inf(1)

	for i, c := range candidates {
		p := c.Point()
		if d := n.Reference.HaversineDistance(&p); d < bestDistance {
			best, bestDistance = i, d
		}
	}

	return best, nil
}
