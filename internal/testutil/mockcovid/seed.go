package mockcovid

import (
	"github.com/sipico/covid-counter-client/internal/record"
)

// Seeded account credentials.
const (
	DemoName        = "Demo User"
	DemoEmail       = "demo@example.com"
	DemoPassword    = "demo-password"
	DemoOTPEmail    = "otp@example.com"
	DemoOTPPassword = "otp-password"
)

// SeededState returns state preloaded with two demo accounts and a small
// slice of each dataset.
func SeededState() *State {
	s := NewState()
	_ = s.AddUser(DemoName, DemoEmail, DemoPassword, false)   //nolint:errcheck
	_ = s.AddUser(DemoName, DemoOTPEmail, DemoOTPPassword, true) //nolint:errcheck

	for _, raw := range seedCountries {
		s.PutRow("/countries", mustRecord(raw))
	}
	for _, raw := range seedWorldometer {
		s.PutRow("/worldometer", mustRecord(raw))
	}
	for _, raw := range seedDayWise {
		s.PutRow("/day-wise", mustRecord(raw))
	}
	for _, raw := range seedCovidData {
		s.PutRow("/covid-data", mustRecord(raw))
	}
	return s
}

func mustRecord(raw string) record.Record {
	rec, err := record.Decode([]byte(raw))
	if err != nil {
		panic(err)
	}
	return rec
}

var seedCountries = []string{
	`{"countryRegion":"Afghanistan","confirmed":36263,"deaths":1269,"recovered":25198,"active":9796,"newCases":106,"newDeaths":10,"newRecovered":18,"whoRegion":"Eastern Mediterranean"}`,
	`{"countryRegion":"Albania","confirmed":4880,"deaths":144,"recovered":2745,"active":1991,"newCases":117,"newDeaths":6,"newRecovered":63,"whoRegion":"Europe"}`,
	`{"countryRegion":"Belgium","confirmed":66428,"deaths":9822,"recovered":17452,"active":39154,"newCases":402,"newDeaths":1,"newRecovered":14,"whoRegion":"Europe"}`,
	`{"countryRegion":"Brazil","confirmed":2442375,"deaths":87618,"recovered":1846641,"active":508116,"newCases":23284,"newDeaths":614,"newRecovered":33728,"whoRegion":"Americas"}`,
	`{"countryRegion":"Singapore","confirmed":50838,"deaths":27,"recovered":45692,"active":5119,"newCases":469,"newDeaths":0,"newRecovered":171,"whoRegion":"Western Pacific"}`,
	`{"countryRegion":"Western Sahara","confirmed":10,"deaths":1,"recovered":8,"active":1,"newCases":0,"newDeaths":0,"newRecovered":0,"whoRegion":""}`,
}

var seedWorldometer = []string{
	`{"countryRegion":"USA","continent":"North America","population":330774664,"totalCases":5032179,"newCases":null,"totalDeaths":162804,"newDeaths":null,"totalRecovered":2576668,"newRecovered":null,"activeCases":2292707,"seriousCritical":18296,"totCasesPer1Mpop":15194,"deathsPer1Mpop":492,"totalTests":63139605,"testsPer1Mpop":190640,"whoRegion":"Americas"}`,
	`{"countryRegion":"Brazil","continent":"South America","population":212710692,"totalCases":2917562,"newCases":null,"totalDeaths":98644,"newDeaths":null,"totalRecovered":2047660,"newRecovered":null,"activeCases":771258,"seriousCritical":8318,"totCasesPer1Mpop":13716,"deathsPer1Mpop":464,"totalTests":13206188,"testsPer1Mpop":62085,"whoRegion":"Americas"}`,
	`{"countryRegion":"India","continent":"Asia","population":1381344997,"totalCases":2025409,"newCases":null,"totalDeaths":41638,"newDeaths":null,"totalRecovered":1377384,"newRecovered":null,"activeCases":606387,"seriousCritical":8944,"totCasesPer1Mpop":1466,"deathsPer1Mpop":30,"totalTests":22149351,"testsPer1Mpop":16035,"whoRegion":"South-EastAsia"}`,
	`{"countryRegion":"Belgium","continent":"Europe","population":11594739,"totalCases":71158,"newCases":null,"totalDeaths":9859,"newDeaths":null,"totalRecovered":17661,"newRecovered":null,"activeCases":43638,"seriousCritical":80,"totCasesPer1Mpop":6137,"deathsPer1Mpop":850,"totalTests":1637793,"testsPer1Mpop":141255,"whoRegion":"Europe"}`,
	`{"countryRegion":"Bolivia","continent":"South America","population":11688459,"totalCases":86423,"newCases":null,"totalDeaths":3465,"newDeaths":null,"totalRecovered":27373,"newRecovered":null,"activeCases":55585,"seriousCritical":71,"totCasesPer1Mpop":7394,"deathsPer1Mpop":296,"totalTests":190379,"testsPer1Mpop":16288,"whoRegion":"Americas"}`,
}

var seedDayWise = []string{
	`{"date":"2020-01-22","confirmed":555,"deaths":17,"recovered":28,"active":510,"newCases":0,"newDeaths":0,"newRecovered":0,"deathsPer100Cases":3.06,"recoveredPer100Cases":5.05,"deathsPer100Recovered":60.71,"numberOfCountries":6}`,
	`{"date":"2020-01-23","confirmed":654,"deaths":18,"recovered":30,"active":606,"newCases":99,"newDeaths":1,"newRecovered":2,"deathsPer100Cases":2.75,"recoveredPer100Cases":4.59,"deathsPer100Recovered":60.0,"numberOfCountries":8}`,
	`{"date":"2020-02-01","confirmed":12038,"deaths":259,"recovered":284,"active":11495,"newCases":2111,"newDeaths":46,"newRecovered":62,"deathsPer100Cases":2.15,"recoveredPer100Cases":2.36,"deathsPer100Recovered":91.2,"numberOfCountries":25}`,
	`{"date":"2020-07-27","confirmed":16480485,"deaths":654036,"recovered":9468087,"active":6358362,"newCases":228693,"newDeaths":5415,"newRecovered":169714,"deathsPer100Cases":3.97,"recoveredPer100Cases":57.45,"deathsPer100Recovered":6.91,"numberOfCountries":187}`,
}

var seedCovidData = []string{
	`{"recordId":1,"country":"Afghanistan","region":"Asia","totalCases":36263,"totalDeaths":1269,"totalRecovered":25198,"activeCases":9796,"casesPerMillion":931.5,"deathsPerMillion":32.6,"latitude":33.93911,"longitude":67.709953}`,
	`{"recordId":2,"country":"Belgium","region":"Europe","totalCases":66428,"totalDeaths":9822,"totalRecovered":17452,"activeCases":39154,"casesPerMillion":5729.1,"deathsPerMillion":847.1,"latitude":50.8333,"longitude":4.469936}`,
	`{"recordId":3,"country":"Brazil","region":"South America","totalCases":2442375,"totalDeaths":87618,"totalRecovered":1846641,"activeCases":508116,"casesPerMillion":11482.4,"deathsPerMillion":411.9,"latitude":-14.235,"longitude":-51.9253}`,
	`{"recordId":4,"country":"Singapore","region":"Asia","totalCases":50838,"totalDeaths":27,"totalRecovered":45692,"activeCases":5119,"casesPerMillion":8689.8,"deathsPerMillion":4.6,"latitude":1.2833,"longitude":103.8333}`,
}
