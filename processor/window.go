package processor

import (
	"sort"
	"strings"
	"time"

	"cotflow/models"
)

// DefaultWindowWeeks is one year of weekly reporting periods.
const DefaultWindowWeeks = 52

const dateLayout = "2006-01-02"

// Reporting date column variants, probed in priority order: the fully
// specified ISO date first, then the compact YYMMDD form.
var reportDateColumns = []string{
	"Report_Date_as_YYYY-MM-DD",
	"As_of_Date_In_Form_YYMMDD",
}

// sentinelDate is assigned to records whose date cannot be parsed. It
// keeps the ordering total and pushes malformed rows to the oldest end
// of the window instead of failing the record.
var sentinelDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// RecordDate extracts the reporting date of a raw record.
func RecordDate(rec models.RawRecord) time.Time {
	for _, col := range reportDateColumns {
		v := strings.TrimSpace(rec.Get(col))
		if v == "" {
			continue
		}
		if len(v) == 6 {
			if t, err := time.Parse("060102", v); err == nil {
				return t
			}
			continue
		}
		if len(v) >= len(dateLayout) {
			v = v[:len(dateLayout)]
		}
		if t, err := time.Parse(dateLayout, v); err == nil {
			return t
		}
	}
	return sentinelDate
}

// DedupeAndWindow orders records newest first, collapses rows sharing a
// reporting date and truncates the result to the given window size.
// The sort is stable, so among duplicates the row appearing first in
// report order survives.
func DedupeAndWindow(records []models.RawRecord, window int) []models.RawRecord {
	if window <= 0 {
		window = DefaultWindowWeeks
	}

	ordered := make([]models.RawRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return RecordDate(ordered[i]).After(RecordDate(ordered[j]))
	})

	seen := make(map[string]struct{}, len(ordered))
	kept := make([]models.RawRecord, 0, window)
	for _, rec := range ordered {
		key := RecordDate(rec).Format(dateLayout)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
		if len(kept) == window {
			break
		}
	}
	return kept
}
