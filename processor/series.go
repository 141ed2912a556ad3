package processor

import (
	"math"

	"cotflow/models"
)

// BuildSeries converts an ordered (newest first) window of raw records
// into a summarized instrument series. Returns nil when the window is
// empty so the instrument can be dropped from the run's output.
func BuildSeries(records []models.RawRecord, family models.ReportFamily) *models.InstrumentSeries {
	if len(records) == 0 {
		return nil
	}

	weeks := make([]models.WeeklyObservation, 0, len(records))
	for _, rec := range records {
		weeks = append(weeks, ToObservation(rec, family))
	}

	high, low := applyIndex(weeks)

	return &models.InstrumentSeries{
		Weeks:    weeks,
		Latest:   weeks[0],
		High52w:  high,
		Low52w:   low,
		CotIndex: weeks[0].CotIndex,
	}
}

// applyIndex computes the rolling index and the week-over-week delta in
// place and returns the window extrema of the sentiment net. The index
// normalizes each net against the window range to [0, 100]; a flat
// window has no range, so the divisor is pinned to 1 and every entry
// indexes at 0. The oldest entry has no in-window reference, so its
// delta is 0.
func applyIndex(weeks []models.WeeklyObservation) (high, low int) {
	high, low = weeks[0].NetSpec, weeks[0].NetSpec
	for _, w := range weeks[1:] {
		if w.NetSpec > high {
			high = w.NetSpec
		}
		if w.NetSpec < low {
			low = w.NetSpec
		}
	}

	rng := high - low
	if rng == 0 {
		rng = 1
	}

	for i := range weeks {
		idx := float64(weeks[i].NetSpec-low) / float64(rng) * 100
		weeks[i].CotIndex = math.Round(idx*10) / 10
		if i < len(weeks)-1 {
			weeks[i].WowChange = weeks[i].NetSpec - weeks[i+1].NetSpec
		}
	}
	return high, low
}
