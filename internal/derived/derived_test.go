package derived

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sipico/covid-counter-client/internal/record"
)

func TestRecoveredAndBanding(t *testing.T) {
	t.Parallel()
	confirmed, active, deaths := 100.0, 60.0, 20.0

	assert.Equal(t, 20.0, RecoveredCalc(confirmed, active, deaths))
	rate := FatalityRate(confirmed, deaths)
	assert.InDelta(t, 0.20, rate, 1e-9)
	assert.Equal(t, BandHigh, Classify(rate))
}

func TestRecoveredCalc_ClampsAtZero(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, RecoveredCalc(10, 8, 5))
}

func TestFatalityRate_NoConfirmed(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, FatalityRate(0, 12))
	assert.Equal(t, BandLow, Classify(FatalityRate(0, 12)))
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate float64
		want Band
	}{
		{0, BandLow},
		{0.0049, BandLow},
		{0.005, BandNeutral},
		{0.05, BandNeutral},
		{0.10, BandNeutral},
		{0.1001, BandHigh},
		{1, BandHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rate), "rate %v", tt.rate)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	records := []record.Record{
		{"countryRegion": "A", "confirmed": json.Number("100"), "active": json.Number("60"), "deaths": json.Number("20"), "recovered": json.Number("15")},
		{"countryRegion": "B", "confirmed": json.Number("10"), "active": json.Number("8"), "deaths": json.Number("5")},
		{"countryRegion": "C"},
	}

	got := Summarize(records)
	assert.Equal(t, 110.0, got.Confirmed)
	assert.Equal(t, 68.0, got.Active)
	assert.Equal(t, 25.0, got.Deaths)
	assert.Equal(t, 15.0, got.Reported)
	assert.Equal(t, 17.0, got.Recovered)
	assert.Equal(t, 3, got.Count)

	assert.Equal(t, Totals{}, Summarize(nil))
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "--"},
		{"empty string", "", "--"},
		{"text", "N/A", "--"},
		{"zero", json.Number("0"), "0"},
		{"grouped", json.Number("1234567"), "1,234,567"},
		{"float", 2500.5, "2,500.5"},
		{"int", 42, "42"},
		{"numeric string", "1000", "1,000"},
		{"negative", json.Number("-3000"), "-3,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "20.00%", FormatPercent(0.2))
	assert.Equal(t, "0.00%", FormatPercent(0))
}
