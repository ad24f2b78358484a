// Package derived computes display-only metrics from raw record counts.
// Nothing here is persisted or sent back to the API.
package derived

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sipico/covid-counter-client/internal/record"
)

// Banding thresholds for the fatality rate.
const (
	HighFatality = 0.10
	LowFatality  = 0.005
)

// Empty is rendered for absent or non-numeric values.
const Empty = "--"

// Band is a display hint derived from the fatality rate.
type Band int

const (
	BandNeutral Band = iota
	BandHigh
	BandLow
)

func (b Band) String() string {
	switch b {
	case BandHigh:
		return "high"
	case BandLow:
		return "low"
	default:
		return "neutral"
	}
}

// FatalityRate returns deaths/confirmed, or 0 when nothing is confirmed.
func FatalityRate(confirmed, deaths float64) float64 {
	if confirmed > 0 {
		return deaths / confirmed
	}
	return 0
}

// RecoveredCalc estimates recoveries by subtraction, never below zero.
func RecoveredCalc(confirmed, active, deaths float64) float64 {
	return math.Max(0, confirmed-(active+deaths))
}

// Classify maps a fatality rate to its display band.
func Classify(rate float64) Band {
	switch {
	case rate > HighFatality:
		return BandHigh
	case rate < LowFatality:
		return BandLow
	default:
		return BandNeutral
	}
}

// Totals are column sums over a set of country records.
type Totals struct {
	Confirmed float64
	Active    float64
	Deaths    float64
	// Reported is the sum of the explicit recovered column.
	Reported float64
	// Recovered is Confirmed-(Active+Deaths) over the totals. Unlike
	// RecoveredCalc it is not clamped.
	Recovered float64
	Count     int
}

// Summarize totals confirmed, active, deaths and recovered. Missing values
// count as zero.
func Summarize(records []record.Record) Totals {
	var t Totals
	for _, r := range records {
		t.Confirmed += r.Num("confirmed")
		t.Active += r.Num("active")
		t.Deaths += r.Num("deaths")
		t.Reported += r.Num("recovered")
	}
	t.Count = len(records)
	t.Recovered = t.Confirmed - (t.Active + t.Deaths)
	return t
}

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatNumber renders v with en-US digit grouping and at most three
// fraction digits. Nil, empty and non-numeric values render as Empty.
func FormatNumber(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return Empty
	}
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// FormatPercent renders a rate as a percentage with two decimals.
func FormatPercent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Empty
	}
	return strconv.FormatFloat(rate*100, 'f', 2, 64) + "%"
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
