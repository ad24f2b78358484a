package mockcovid

import (
	"net/url"
	"strings"

	"github.com/sipico/covid-counter-client/internal/record"
)

// datasetSpec describes how one collection is filtered and addressed.
type datasetSpec struct {
	path     string
	keyField string
	match    func(q url.Values, rec record.Record) bool
}

var datasetSpecs = []datasetSpec{
	{
		path:     "/countries",
		keyField: "countryRegion",
		match:    func(url.Values, record.Record) bool { return true },
	},
	{
		path:     "/worldometer",
		keyField: "countryRegion",
		match: func(q url.Values, rec record.Record) bool {
			return hasPrefixFold(rec.Str("countryRegion"), q.Get("country")) &&
				hasPrefixFold(rec.Str("continent"), q.Get("continent"))
		},
	},
	{
		path:     "/day-wise",
		keyField: "date",
		match: func(q url.Values, rec record.Record) bool {
			return strings.HasPrefix(rec.Str("date"), strings.TrimSpace(q.Get("date")))
		},
	},
	{
		path:     "/covid-data",
		keyField: "recordId",
		match: func(q url.Values, rec record.Record) bool {
			// country wins; otherwise region and continent both address the region column
			if c := strings.TrimSpace(q.Get("country")); c != "" {
				return hasPrefixFold(rec.Str("country"), c)
			}
			region := firstNonBlank(q.Get("region"), q.Get("continent"))
			return hasPrefixFold(rec.Str("region"), region)
		},
	},
}

func hasPrefixFold(s, prefix string) bool {
	prefix = strings.TrimSpace(prefix)
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
