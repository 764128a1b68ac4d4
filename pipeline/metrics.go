// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// Metrics tracks statistics about a resolution run.
type Metrics struct {
	Rows         int
	Completed    int
	Failed       int
	Skipped      int
	GeocodeCalls int
	PostalCalls  int
	Retries      int
}

// Merge combines two Metrics.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	if o == nil {
		return m
	}

	m.Rows += o.Rows
	m.Completed += o.Completed
	m.Failed += o.Failed
	m.Skipped += o.Skipped
	m.GeocodeCalls += o.GeocodeCalls
	m.PostalCalls += o.PostalCalls
	m.Retries += o.Retries

	return m
}
