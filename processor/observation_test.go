package processor

import (
	"testing"

	"cotflow/models"
)

func TestCoerceIntDefaultsToZero(t *testing.T) {
	cases := []struct {
		name string
		rec  models.RawRecord
		want int
	}{
		{"absent column", models.RawRecord{}, 0},
		{"blank value", models.RawRecord{"NonComm_Positions_Long_All": "  "}, 0},
		{"garbage value", models.RawRecord{"NonComm_Positions_Long_All": "n/a"}, 0},
		{"integer", models.RawRecord{"NonComm_Positions_Long_All": "1234"}, 1234},
		{"decimal truncates", models.RawRecord{"NonComm_Positions_Long_All": "1234.9"}, 1234},
		{"padded", models.RawRecord{"NonComm_Positions_Long_All": " 42 "}, 42},
	}
	for _, tc := range cases {
		if got := coerceInt(tc.rec, nonCommLongColumns...); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestToObservationLegacy(t *testing.T) {
	rec := models.RawRecord{
		"Report_Date_as_YYYY-MM-DD":   "2026-08-18",
		"NonComm_Positions_Long_All":  "1500",
		"NonComm_Positions_Short_All": "500",
		"Comm_Positions_Long_All":     "300",
		"Comm_Positions_Short_All":    "700",
		"NonRept_Positions_Long_All":  "50",
		"NonRept_Positions_Short_All": "20",
	}

	obs := ToObservation(rec, models.FamilyLegacy)

	if obs.Date != "2026-08-18" {
		t.Errorf("date: got %s", obs.Date)
	}
	if obs.SpecLong != 1500 || obs.SpecShort != 500 {
		t.Errorf("spec positions: got %d/%d", obs.SpecLong, obs.SpecShort)
	}
	if obs.NetSpec != 1000 {
		t.Errorf("net spec: got %d, want 1000", obs.NetSpec)
	}
	if obs.NetComm != -400 {
		t.Errorf("net comm: got %d, want -400", obs.NetComm)
	}
	if obs.DealerLong != 0 || obs.DealerShort != 0 || obs.NetDealer != 0 {
		t.Errorf("legacy report must have zero dealer category: %+v", obs)
	}
	if obs.NetNonRept != 30 {
		t.Errorf("net nonrept: got %d, want 30", obs.NetNonRept)
	}
}

func TestToObservationDisaggregated(t *testing.T) {
	rec := models.RawRecord{
		"Report_Date_as_YYYY-MM-DD":     "2026-08-18",
		"Lev_Money_Positions_Long_All":  "800",
		"Lev_Money_Positions_Short_All": "200",
		"Asset_Mgr_Positions_Long_All":  "400",
		"Asset_Mgr_Positions_Short_All": "100",
		"Dealer_Positions_Long_All":     "60",
		"Dealer_Positions_Short_All":    "90",
		"NonRept_Positions_Long_All":    "10",
		"NonRept_Positions_Short_All":   "40",
	}

	obs := ToObservation(rec, models.FamilyDisaggregated)

	// Sentiment signal combines leveraged-fund and asset-manager nets.
	if obs.NetSpec != 900 {
		t.Errorf("net spec: got %d, want 900", obs.NetSpec)
	}
	if obs.SpecLong != 800 || obs.SpecShort != 200 {
		t.Errorf("spec positions: got %d/%d", obs.SpecLong, obs.SpecShort)
	}
	if obs.CommLong != 400 || obs.CommShort != 100 || obs.NetComm != 300 {
		t.Errorf("asset manager mapping: %+v", obs)
	}
	if obs.NetDealer != -30 {
		t.Errorf("net dealer: got %d, want -30", obs.NetDealer)
	}
	if obs.NetNonRept != -30 {
		t.Errorf("net nonrept: got %d, want -30", obs.NetNonRept)
	}
}

func TestToObservationMissingFieldsNeverFail(t *testing.T) {
	obs := ToObservation(models.RawRecord{}, models.FamilyDisaggregated)
	if obs.NetSpec != 0 || obs.NetComm != 0 || obs.NetDealer != 0 || obs.NetNonRept != 0 {
		t.Errorf("empty record should normalize to zeroes: %+v", obs)
	}
	if obs.Date != "2000-01-01" {
		t.Errorf("empty record should carry sentinel date, got %s", obs.Date)
	}
}
