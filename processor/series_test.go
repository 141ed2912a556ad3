package processor

import (
	"strconv"
	"testing"

	"cotflow/models"
)

func legacyRecord(date string, long, short int) models.RawRecord {
	return models.RawRecord{
		"Report_Date_as_YYYY-MM-DD":   date,
		"NonComm_Positions_Long_All":  strconv.Itoa(long),
		"NonComm_Positions_Short_All": strconv.Itoa(short),
	}
}

func TestBuildSeriesEmptyWindow(t *testing.T) {
	if got := BuildSeries(nil, models.FamilyLegacy); got != nil {
		t.Errorf("expected nil series for empty window, got %+v", got)
	}
}

func TestBuildSeriesTwoRecordProperty(t *testing.T) {
	records := []models.RawRecord{
		legacyRecord("2026-08-18", 1000, 0),
		legacyRecord("2026-08-11", 200, 0),
	}

	series := BuildSeries(records, models.FamilyLegacy)
	if series == nil {
		t.Fatal("expected a series")
	}

	if series.High52w != 1000 || series.Low52w != 200 {
		t.Errorf("extrema: got %d/%d, want 1000/200", series.High52w, series.Low52w)
	}
	if series.Latest.CotIndex != 100 {
		t.Errorf("latest index: got %v, want 100", series.Latest.CotIndex)
	}
	if series.CotIndex != 100 {
		t.Errorf("series index: got %v, want 100", series.CotIndex)
	}
	if series.Latest.WowChange != 800 {
		t.Errorf("wow change: got %d, want 800", series.Latest.WowChange)
	}
	if series.Weeks[1].WowChange != 0 {
		t.Errorf("oldest delta: got %d, want 0", series.Weeks[1].WowChange)
	}
	if series.Weeks[1].CotIndex != 0 {
		t.Errorf("oldest index: got %v, want 0", series.Weeks[1].CotIndex)
	}
}

func TestIndexBoundsAndRounding(t *testing.T) {
	records := []models.RawRecord{
		legacyRecord("2026-08-18", 700, 0),
		legacyRecord("2026-08-11", 1000, 0),
		legacyRecord("2026-08-04", 100, 0),
	}

	series := BuildSeries(records, models.FamilyLegacy)
	for i, w := range series.Weeks {
		if w.CotIndex < 0 || w.CotIndex > 100 {
			t.Errorf("week %d: index %v out of [0,100]", i, w.CotIndex)
		}
	}
	// (700-100)/900*100 = 66.666..., rounded to one decimal.
	if got := series.Weeks[0].CotIndex; got != 66.7 {
		t.Errorf("rounding: got %v, want 66.7", got)
	}
}

func TestIndexDegenerateFlatWindow(t *testing.T) {
	records := []models.RawRecord{
		legacyRecord("2026-08-18", 500, 0),
		legacyRecord("2026-08-11", 500, 0),
	}
	series := BuildSeries(records, models.FamilyLegacy)
	for i, w := range series.Weeks {
		if w.CotIndex != 0 {
			t.Errorf("week %d: flat window must index at 0, got %v", i, w.CotIndex)
		}
	}
}

func TestIndexSingleObservation(t *testing.T) {
	series := BuildSeries([]models.RawRecord{legacyRecord("2026-08-18", 123, 45)}, models.FamilyLegacy)
	if series.CotIndex != 0 {
		t.Errorf("single observation must index at 0, got %v", series.CotIndex)
	}
	if series.Latest.WowChange != 0 {
		t.Errorf("single observation has no delta reference, got %d", series.Latest.WowChange)
	}
	if series.High52w != 78 || series.Low52w != 78 {
		t.Errorf("extrema: got %d/%d, want 78/78", series.High52w, series.Low52w)
	}
}

func TestDeltaChain(t *testing.T) {
	nets := []int{400, 100, 250, -50}
	records := make([]models.RawRecord, 0, len(nets))
	dates := []string{"2026-08-18", "2026-08-11", "2026-08-04", "2026-07-28"}
	for i, n := range nets {
		records = append(records, legacyRecord(dates[i], n, 0))
	}

	series := BuildSeries(records, models.FamilyLegacy)
	want := []int{300, -150, 300, 0}
	for i, w := range series.Weeks {
		if w.WowChange != want[i] {
			t.Errorf("week %d: delta got %d, want %d", i, w.WowChange, want[i])
		}
	}
}
