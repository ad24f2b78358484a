// Package dataset declares the fixed contract of each table the API serves:
// endpoint, identity field, filters, editable fields and display columns.
package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sipico/covid-counter-client/internal/derived"
	"github.com/sipico/covid-counter-client/internal/record"
)

// SaveError is shown when an update fails without a server message.
const SaveError = "Failed to save changes"

// Filter is one free-text filter input.
type Filter struct {
	Name  string
	Label string
	// Param is the query parameter the committed value is sent as.
	Param string
	// Local filters narrow the fetched records by case-insensitive prefix
	// of the key field instead of being sent to the server.
	Local bool
}

// Field is an editable record field.
type Field struct {
	Name    string
	Label   string
	Numeric bool
}

// ColumnKind selects how a column cell is rendered.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
	KindFatality
	KindRecovered
)

// Column is one displayed table column.
type Column struct {
	Field string
	Label string
	Kind  ColumnKind
}

// Rates names the raw fields derived metrics are computed from.
type Rates struct {
	Confirmed string
	Deaths    string
	Active    string
}

// Dataset is the contract for one table.
type Dataset struct {
	Name     string
	Title    string
	Path     string
	KeyField string
	Filters  []Filter
	Editable []Field
	// EditAll makes every non-key field editable, numeric when its current
	// value is a number.
	EditAll bool
	Columns []Column
	// Rates is nil for tables without fatality banding.
	Rates     *Rates
	LoadError string
}

var (
	Countries = Dataset{
		Name:     "countries",
		Title:    "Country Snapshot",
		Path:     "/countries",
		KeyField: "countryRegion",
		Filters: []Filter{
			{Name: "search", Label: "Search countries", Local: true},
		},
		Editable: []Field{
			{Name: "confirmed", Label: "Confirmed", Numeric: true},
			{Name: "deaths", Label: "Deaths", Numeric: true},
			{Name: "active", Label: "Active", Numeric: true},
		},
		Columns: []Column{
			{Field: "countryRegion", Label: "Country"},
			{Field: "confirmed", Label: "Confirmed", Kind: KindNumber},
			{Field: "active", Label: "Active", Kind: KindNumber},
			{Field: "recovered", Label: "Recovered", Kind: KindRecovered},
			{Field: "deaths", Label: "Deaths", Kind: KindNumber},
			{Field: "whoRegion", Label: "WHO Region"},
		},
		Rates:     &Rates{Confirmed: "confirmed", Deaths: "deaths", Active: "active"},
		LoadError: "Failed to load countries",
	}

	Worldometer = Dataset{
		Name:     "worldometer",
		Title:    "Worldometer",
		Path:     "/worldometer",
		KeyField: "countryRegion",
		Filters: []Filter{
			{Name: "country", Label: "Country", Param: "country"},
			{Name: "continent", Label: "Continent", Param: "continent"},
		},
		Editable: []Field{
			{Name: "totalCases", Label: "Total Cases", Numeric: true},
			{Name: "totalDeaths", Label: "Total Deaths", Numeric: true},
			{Name: "activeCases", Label: "Active Cases", Numeric: true},
			{Name: "continent", Label: "Continent"},
		},
		Columns: []Column{
			{Field: "countryRegion", Label: "Country/Region"},
			{Field: "continent", Label: "Continent"},
			{Field: "totalCases", Label: "TotalCases", Kind: KindNumber},
			{Field: "newCases", Label: "NewCases", Kind: KindNumber},
			{Field: "totalDeaths", Label: "TotalDeaths", Kind: KindNumber},
			{Field: "newDeaths", Label: "NewDeaths", Kind: KindNumber},
			{Label: "Fatality %", Kind: KindFatality},
			{Field: "activeCases", Label: "ActiveCases", Kind: KindNumber},
			{Field: "totalRecovered", Label: "TotalRecovered", Kind: KindNumber},
			{Field: "newRecovered", Label: "NewRecovered", Kind: KindNumber},
			{Field: "population", Label: "Population", Kind: KindNumber},
		},
		Rates:     &Rates{Confirmed: "totalCases", Deaths: "totalDeaths", Active: "activeCases"},
		LoadError: "Failed to load worldometer data",
	}

	DayWise = Dataset{
		Name:     "day-wise",
		Title:    "Day-wise",
		Path:     "/day-wise",
		KeyField: "date",
		Filters: []Filter{
			{Name: "date", Label: "Date (prefix)", Param: "date"},
		},
		Editable: []Field{
			{Name: "confirmed", Label: "Confirmed", Numeric: true},
			{Name: "deaths", Label: "Deaths", Numeric: true},
			{Name: "recovered", Label: "Recovered", Numeric: true},
			{Name: "active", Label: "Active", Numeric: true},
			{Name: "newCases", Label: "New cases", Numeric: true},
			{Name: "newDeaths", Label: "New deaths", Numeric: true},
			{Name: "newRecovered", Label: "New recovered", Numeric: true},
			{Name: "deathsPer100Cases", Label: "Deaths / 100 Cases", Numeric: true},
			{Name: "recoveredPer100Cases", Label: "Recovered / 100 Cases", Numeric: true},
			{Name: "deathsPer100Recovered", Label: "Deaths / 100 Recovered", Numeric: true},
			{Name: "numberOfCountries", Label: "No. of countries", Numeric: true},
		},
		Columns: []Column{
			{Field: "date", Label: "Date"},
			{Field: "confirmed", Label: "Confirmed", Kind: KindNumber},
			{Field: "deaths", Label: "Deaths", Kind: KindNumber},
			{Field: "recovered", Label: "Recovered", Kind: KindNumber},
			{Field: "active", Label: "Active", Kind: KindNumber},
			{Field: "newCases", Label: "New cases", Kind: KindNumber},
			{Field: "newDeaths", Label: "New deaths", Kind: KindNumber},
			{Field: "newRecovered", Label: "New recovered", Kind: KindNumber},
			{Field: "deathsPer100Cases", Label: "Deaths / 100 Cases", Kind: KindNumber},
			{Field: "recoveredPer100Cases", Label: "Recovered / 100 Cases", Kind: KindNumber},
			{Field: "deathsPer100Recovered", Label: "Deaths / 100 Recovered", Kind: KindNumber},
			{Field: "numberOfCountries", Label: "No. of countries", Kind: KindNumber},
		},
		LoadError: "Failed to load day-wise data",
	}

	CovidData = Dataset{
		Name:     "covid-data",
		Title:    "Covid Data",
		Path:     "/covid-data",
		KeyField: "recordId",
		Filters: []Filter{
			{Name: "region", Label: "Region", Param: "region"},
			{Name: "continent", Label: "Continent", Param: "continent"},
		},
		EditAll: true,
		Columns: []Column{
			{Field: "country", Label: "Country"},
			{Field: "region", Label: "Region"},
			{Field: "totalCases", Label: "Total Cases", Kind: KindNumber},
			{Field: "totalDeaths", Label: "Total Deaths", Kind: KindNumber},
			{Label: "Fatality %", Kind: KindFatality},
			{Field: "totalRecovered", Label: "Total Recovered", Kind: KindNumber},
			{Field: "activeCases", Label: "Active Cases", Kind: KindNumber},
			{Field: "casesPerMillion", Label: "Cases per Million", Kind: KindNumber},
			{Field: "deathsPerMillion", Label: "Deaths per Million", Kind: KindNumber},
			{Field: "latitude", Label: "Latitude", Kind: KindNumber},
			{Field: "longitude", Label: "Longitude", Kind: KindNumber},
		},
		Rates:     &Rates{Confirmed: "totalCases", Deaths: "totalDeaths", Active: "activeCases"},
		LoadError: "Failed to load covid data",
	}
)

// All returns every dataset in dashboard tab order.
func All() []Dataset {
	return []Dataset{Countries, Worldometer, DayWise, CovidData}
}

// Names returns the dataset names in dashboard tab order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name
	}
	return names
}

// ByName looks a dataset up by its name.
func ByName(name string) (Dataset, error) {
	for _, d := range All() {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("unknown dataset %q (want one of %s)", name, strings.Join(Names(), ", "))
}

// Filter returns the filter called name.
func (d Dataset) Filter(name string) (Filter, bool) {
	i := slices.IndexFunc(d.Filters, func(f Filter) bool { return f.Name == name })
	if i < 0 {
		return Filter{}, false
	}
	return d.Filters[i], true
}

// EditableField resolves name against the editable set. For EditAll
// datasets draft decides whether the field is numeric.
func (d Dataset) EditableField(name string, draft record.Record) (Field, bool) {
	if name == d.KeyField {
		return Field{}, false
	}
	if d.EditAll {
		if _, ok := draft[name]; !ok {
			return Field{}, false
		}
		return Field{Name: name, Label: name, Numeric: draft.IsNumeric(name)}, true
	}
	i := slices.IndexFunc(d.Editable, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return d.Editable[i], true
}

// EditableFields lists the fields an editor for draft should show, in a
// stable order.
func (d Dataset) EditableFields(draft record.Record) []Field {
	if !d.EditAll {
		return slices.Clone(d.Editable)
	}
	names := make([]string, 0, len(draft))
	for name := range draft {
		if name != d.KeyField {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f, _ := d.EditableField(name, draft)
		fields = append(fields, f)
	}
	return fields
}

// FatalityRate computes the rate for r, or ok=false when the dataset has
// no rate fields.
func (d Dataset) FatalityRate(r record.Record) (rate float64, ok bool) {
	if d.Rates == nil {
		return 0, false
	}
	return derived.FatalityRate(r.Num(d.Rates.Confirmed), r.Num(d.Rates.Deaths)), true
}

// Band returns the row's display band.
func (d Dataset) Band(r record.Record) derived.Band {
	rate, ok := d.FatalityRate(r)
	if !ok {
		return derived.BandNeutral
	}
	return derived.Classify(rate)
}

// Cell renders one column of r for display.
func (d Dataset) Cell(c Column, r record.Record) string {
	switch c.Kind {
	case KindNumber:
		return derived.FormatNumber(r[c.Field])
	case KindFatality:
		rate, ok := d.FatalityRate(r)
		if !ok {
			return derived.Empty
		}
		return derived.FormatPercent(rate)
	case KindRecovered:
		if d.Rates == nil {
			return derived.FormatNumber(r[c.Field])
		}
		return derived.FormatNumber(derived.RecoveredCalc(
			r.Num(d.Rates.Confirmed), r.Num(d.Rates.Active), r.Num(d.Rates.Deaths)))
	default:
		if s := r.Str(c.Field); s != "" {
			return s
		}
		return "N/A"
	}
}

// MatchLocal reports whether r passes a local filter value.
func (d Dataset) MatchLocal(r record.Record, value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(r.Str(d.KeyField)), value)
}
