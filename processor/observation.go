package processor

import (
	"strconv"
	"strings"

	"cotflow/models"
)

// Position count column aliases per logical field. Every list is probed
// in order; the disaggregated report and the legacy report never share
// category columns, so the two maps are disjoint.
var (
	levMoneyLongColumns  = []string{"Lev_Money_Positions_Long_All", "Lev_Money_Positions_Long_ALL"}
	levMoneyShortColumns = []string{"Lev_Money_Positions_Short_All", "Lev_Money_Positions_Short_ALL"}
	assetMgrLongColumns  = []string{"Asset_Mgr_Positions_Long_All", "Asset_Mgr_Positions_Long_ALL"}
	assetMgrShortColumns = []string{"Asset_Mgr_Positions_Short_All", "Asset_Mgr_Positions_Short_ALL"}
	dealerLongColumns    = []string{"Dealer_Positions_Long_All", "Dealer_Positions_Long_ALL"}
	dealerShortColumns   = []string{"Dealer_Positions_Short_All", "Dealer_Positions_Short_ALL"}

	nonCommLongColumns  = []string{"NonComm_Positions_Long_All", "NonComm_Positions_Long_ALL"}
	nonCommShortColumns = []string{"NonComm_Positions_Short_All", "NonComm_Positions_Short_ALL"}
	commLongColumns     = []string{"Comm_Positions_Long_All", "Comm_Positions_Long_ALL"}
	commShortColumns    = []string{"Comm_Positions_Short_All", "Comm_Positions_Short_ALL"}

	nonReptLongColumns  = []string{"NonRept_Positions_Long_All", "NonRept_Positions_Long_ALL"}
	nonReptShortColumns = []string{"NonRept_Positions_Short_All", "NonRept_Positions_Short_ALL"}
)

// coerceInt reads a position count that may be absent, blank or a
// decimal string. Values parse through floating point and truncate;
// anything unparsable is zero. Upstream files carry enough junk that
// failing a whole record over one field is never worth it.
func coerceInt(rec models.RawRecord, columns ...string) int {
	v := strings.TrimSpace(rec.Get(columns...))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// ToObservation normalizes one raw record into the family-agnostic
// weekly observation shape. For the disaggregated report the leveraged
// fund category maps to the speculative slot and the asset manager
// category to the commercial slot, with the sentiment signal (NetSpec)
// combining both nets. The legacy report maps non-commercial to the
// speculative slot and has no dealer category.
func ToObservation(rec models.RawRecord, family models.ReportFamily) models.WeeklyObservation {
	obs := models.WeeklyObservation{
		Date: RecordDate(rec).Format(dateLayout),
	}

	switch family {
	case models.FamilyDisaggregated:
		obs.SpecLong = coerceInt(rec, levMoneyLongColumns...)
		obs.SpecShort = coerceInt(rec, levMoneyShortColumns...)
		obs.CommLong = coerceInt(rec, assetMgrLongColumns...)
		obs.CommShort = coerceInt(rec, assetMgrShortColumns...)
		obs.DealerLong = coerceInt(rec, dealerLongColumns...)
		obs.DealerShort = coerceInt(rec, dealerShortColumns...)
		obs.NetSpec = (obs.SpecLong - obs.SpecShort) + (obs.CommLong - obs.CommShort)
	default:
		obs.SpecLong = coerceInt(rec, nonCommLongColumns...)
		obs.SpecShort = coerceInt(rec, nonCommShortColumns...)
		obs.CommLong = coerceInt(rec, commLongColumns...)
		obs.CommShort = coerceInt(rec, commShortColumns...)
		obs.NetSpec = obs.SpecLong - obs.SpecShort
	}

	obs.NonReptLong = coerceInt(rec, nonReptLongColumns...)
	obs.NonReptShort = coerceInt(rec, nonReptShortColumns...)

	obs.NetComm = obs.CommLong - obs.CommShort
	obs.NetDealer = obs.DealerLong - obs.DealerShort
	obs.NetNonRept = obs.NonReptLong - obs.NonReptShort

	return obs
}
