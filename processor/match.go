package processor

import (
	"strings"

	"cotflow/models"
)

// Match strategies reported alongside the selected rows so callers can
// observe which path produced a result.
const (
	MatchByMarketCode   = "market_code"
	MatchByNameFragment = "name_fragment"
	MatchNone           = "none"
)

// The publisher has used more than one spelling for the market code
// column across report generations. Aliases are probed in priority
// order and the first spelling with at least one hit wins.
var (
	marketCodeColumns = []string{
		"CFTC_Contract_MarketCode",
		"CFTC_Contract_Market_Code",
	}
	marketNameColumns = []string{
		"Market_and_Exchange_Names",
		"Market_And_Exchange_Names",
	}
)

// MatchRecords selects the rows belonging to one instrument out of a
// mixed record pool. An exact market-code match is preferred; when no
// code column variant yields rows the instrument's name fragment is
// matched case-insensitively against the market name column. When both
// strategies come up empty the instrument is simply unmatched, which is
// not an error at this level.
func MatchRecords(records []models.RawRecord, inst models.Instrument) ([]models.RawRecord, string) {
	code := strings.TrimSpace(inst.MarketCode)
	if code != "" {
		for _, col := range marketCodeColumns {
			var matched []models.RawRecord
			for _, rec := range records {
				if strings.TrimSpace(rec.Get(col)) == code {
					matched = append(matched, rec)
				}
			}
			if len(matched) > 0 {
				return matched, MatchByMarketCode
			}
		}
	}

	fragment := strings.ToUpper(strings.TrimSpace(inst.NameFragment))
	if fragment != "" {
		var matched []models.RawRecord
		for _, rec := range records {
			name := strings.ToUpper(rec.Get(marketNameColumns...))
			if strings.Contains(name, fragment) {
				matched = append(matched, rec)
			}
		}
		if len(matched) > 0 {
			return matched, MatchByNameFragment
		}
	}

	return nil, MatchNone
}
