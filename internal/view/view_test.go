package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/derived"
	"github.com/sipico/covid-counter-client/internal/record"
)

func albania() record.Record {
	return record.Record{
		"countryRegion": "Albania",
		"confirmed":     json.Number("4880"),
		"deaths":        json.Number("144"),
		"active":        json.Number("1991"),
		"whoRegion":     "Europe",
	}
}

func TestTable(t *testing.T) {
	out := Table(dataset.Countries, []record.Record{albania()}, -1)

	for _, want := range []string{"Country", "Confirmed", "WHO Region", "Albania", "4,880", "2,745", "Europe"} {
		assert.Contains(t, out, want)
	}
}

func TestTable_Empty(t *testing.T) {
	assert.Contains(t, Table(dataset.DayWise, nil, -1), NoRecords)
}

func TestTable_MissingTextIsNA(t *testing.T) {
	rec := albania()
	delete(rec, "whoRegion")
	assert.Contains(t, Table(dataset.Countries, []record.Record{rec}, 0), "N/A")
}

func TestLegend(t *testing.T) {
	assert.Empty(t, Legend(dataset.DayWise))

	legend := Legend(dataset.Worldometer)
	assert.Contains(t, legend, "10.00%")
	assert.Contains(t, legend, "0.50%")
}

func TestTotals(t *testing.T) {
	got := Totals(derived.Summarize([]record.Record{albania()}))
	assert.Equal(t, "Confirmed 4,880 · Active 1,991 · Deaths 144 · Recovered 2,745 · Countries 1", got)
}

func TestDetail(t *testing.T) {
	rec := albania()
	rec["newCases"] = nil

	lines := strings.Split(strings.TrimRight(Detail(dataset.Countries, rec), "\n"), "\n")
	assert.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "countryRegion:"))
	assert.True(t, strings.HasPrefix(lines[1], "active:"))
	assert.Contains(t, lines[1], "1,991")
	assert.Contains(t, Detail(dataset.Countries, rec), "null")
}
