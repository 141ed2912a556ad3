package models

import (
	"time"
)

// ReportFamily identifies which upstream column schema a report uses.
type ReportFamily string

const (
	// FamilyLegacy is the aggregate commitments report with
	// non-commercial / commercial / non-reportable categories.
	FamilyLegacy ReportFamily = "legacy"
	// FamilyDisaggregated is the financial-futures report with
	// dealer / asset-manager / leveraged-fund categories.
	FamilyDisaggregated ReportFamily = "disaggregated"
)

// RawRecord is one reporting-period row as extracted from an archive
// member, keyed by column name. Absent columns read as the empty string.
type RawRecord map[string]string

// Get returns the trimmed value for the first column name present.
// A record missing every candidate column yields "".
func (r RawRecord) Get(columns ...string) string {
	for _, c := range columns {
		if v, ok := r[c]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Instrument describes one tracked contract. The set of instruments is
// static configuration; nothing is discovered at runtime.
type Instrument struct {
	Symbol       string       `yaml:"symbol"`
	MarketCode   string       `yaml:"market_code"`
	NameFragment string       `yaml:"name_fragment"`
	Family       ReportFamily `yaml:"family"`
}

// WeeklyObservation is the normalized record for one instrument and one
// reporting date. The same field set is produced for both report
// families; categories a family does not publish are zero.
type WeeklyObservation struct {
	Date         string  `json:"date"`
	SpecLong     int     `json:"spec_long"`
	SpecShort    int     `json:"spec_short"`
	CommLong     int     `json:"comm_long"`
	CommShort    int     `json:"comm_short"`
	DealerLong   int     `json:"dealer_long"`
	DealerShort  int     `json:"dealer_short"`
	NonReptLong  int     `json:"nonrept_long"`
	NonReptShort int     `json:"nonrept_short"`
	NetSpec      int     `json:"net_spec"`
	NetComm      int     `json:"net_comm"`
	NetDealer    int     `json:"net_dealer"`
	NetNonRept   int     `json:"net_nonrept"`
	CotIndex     float64 `json:"cot_index"`
	WowChange    int     `json:"wow_change"`
}

// InstrumentSeries owns the retained window of observations for one
// instrument, newest first, plus the window extrema of the speculative
// net position and the newest observation's index value.
type InstrumentSeries struct {
	Weeks    []WeeklyObservation `json:"weeks"`
	Latest   WeeklyObservation   `json:"latest"`
	High52w  int                 `json:"52w_high"`
	Low52w   int                 `json:"52w_low"`
	CotIndex float64             `json:"cot_index"`
}

// Envelope is the persisted output of one pipeline run. Either Error is
// set and Data is empty, or Data maps instrument symbols to their series.
// Each run produces a full replacement, never an incremental update.
type Envelope struct {
	UpdatedAt string                       `json:"updated_at"`
	Error     string                       `json:"error,omitempty"`
	Data      map[string]*InstrumentSeries `json:"data"`
}

// EnvelopeTimeFormat is the layout of Envelope.UpdatedAt.
const EnvelopeTimeFormat = "2006-01-02 15:04 UTC"

// NewEnvelope returns an empty envelope stamped with the given time.
func NewEnvelope(now time.Time) *Envelope {
	return &Envelope{
		UpdatedAt: now.UTC().Format(EnvelopeTimeFormat),
		Data:      make(map[string]*InstrumentSeries),
	}
}

// NewErrorEnvelope returns an envelope carrying only an error indicator.
func NewErrorEnvelope(now time.Time, msg string) *Envelope {
	e := NewEnvelope(now)
	e.Error = msg
	return e
}
