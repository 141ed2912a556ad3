package processor

import (
	"testing"

	"cotflow/models"
)

var eurInstrument = models.Instrument{
	Symbol:       "EUR",
	MarketCode:   "099741",
	NameFragment: "EURO FX",
	Family:       models.FamilyDisaggregated,
}

func TestMatchByMarketCode(t *testing.T) {
	records := []models.RawRecord{
		{"CFTC_Contract_MarketCode": "099741", "Market_and_Exchange_Names": "EURO FX - CME"},
		{"CFTC_Contract_MarketCode": "096742", "Market_and_Exchange_Names": "BRITISH POUND - CME"},
	}

	got, method := MatchRecords(records, eurInstrument)
	if method != MatchByMarketCode {
		t.Fatalf("method: got %s, want %s", method, MatchByMarketCode)
	}
	if len(got) != 1 || got[0]["CFTC_Contract_MarketCode"] != "099741" {
		t.Errorf("unexpected match result: %v", got)
	}
}

func TestMatchProbesCodeColumnVariants(t *testing.T) {
	// Only the underscored spelling is present.
	records := []models.RawRecord{
		{"CFTC_Contract_Market_Code": "099741"},
	}
	got, method := MatchRecords(records, eurInstrument)
	if method != MatchByMarketCode || len(got) != 1 {
		t.Errorf("variant column not probed: method=%s rows=%d", method, len(got))
	}
}

func TestMatchFallsBackToNameFragment(t *testing.T) {
	records := []models.RawRecord{
		{"CFTC_Contract_MarketCode": "000000", "Market_and_Exchange_Names": "Euro FX - Chicago Mercantile Exchange"},
		{"CFTC_Contract_MarketCode": "000001", "Market_and_Exchange_Names": "GOLD - COMEX"},
	}

	got, method := MatchRecords(records, eurInstrument)
	if method != MatchByNameFragment {
		t.Fatalf("method: got %s, want %s", method, MatchByNameFragment)
	}
	if len(got) != 1 || got[0]["CFTC_Contract_MarketCode"] != "000000" {
		t.Errorf("unexpected match result: %v", got)
	}
}

func TestMatchCodeTakesPrecedenceOverName(t *testing.T) {
	records := []models.RawRecord{
		{"CFTC_Contract_MarketCode": "099741", "Market_and_Exchange_Names": "SOMETHING ELSE"},
		{"CFTC_Contract_MarketCode": "111111", "Market_and_Exchange_Names": "EURO FX - CME"},
	}
	got, method := MatchRecords(records, eurInstrument)
	if method != MatchByMarketCode || len(got) != 1 {
		t.Fatalf("expected code match to win: method=%s rows=%d", method, len(got))
	}
	if got[0]["CFTC_Contract_MarketCode"] != "099741" {
		t.Errorf("unexpected row: %v", got[0])
	}
}

func TestMatchMissingCodeColumnFallsThrough(t *testing.T) {
	records := []models.RawRecord{
		{"Market_and_Exchange_Names": "EURO FX - CME"},
	}
	got, method := MatchRecords(records, eurInstrument)
	if method != MatchByNameFragment || len(got) != 1 {
		t.Errorf("records without code columns must not raise: method=%s rows=%d", method, len(got))
	}
}

func TestMatchNothing(t *testing.T) {
	records := []models.RawRecord{
		{"CFTC_Contract_MarketCode": "111111", "Market_and_Exchange_Names": "GOLD - COMEX"},
	}
	got, method := MatchRecords(records, eurInstrument)
	if method != MatchNone || got != nil {
		t.Errorf("expected no match: method=%s rows=%v", method, got)
	}
}
