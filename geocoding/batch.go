// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
)

// Outcome is the result of one query of a batch. Result is nil when the
// lookup failed; Err says why.
type Outcome struct {
	Query  Query
	Result *Result
	Err    error
}

// Found reports whether the lookup produced a coordinate.
func (o Outcome) Found() bool {
	return o.Err == nil && o.Result != nil
}

// ProgressFunc is called after every query of a batch with the number of
// queries done so far.
type ProgressFunc func(done, total int, q Query, err error)

// Batch geocodes queries one after the other, in order. Failures don't stop
// the batch and are not retried; they are reported in the matching Outcome.
// Pacing is left to g, typically a Cache.
func Batch(ctx context.Context, g Geocoder, queries []Query, progress ProgressFunc) []Outcome {
	outcomes := make([]Outcome, len(queries))

	for i, q := range queries {
		result, err := g.Geocode(ctx, q.Name, q.Region)
		outcomes[i] = Outcome{Query: q, Result: result, Err: err}

		if progress != nil {
			progress(i+1, len(queries), q, err)
		}
	}

	return outcomes
}
