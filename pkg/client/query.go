package client

import (
	"net/url"
	"strconv"
	"time"

	"github.com/permitwatch/phx-permit-client/pkg/permit"
)

// WireDateFormat is the date layout the search endpoint expects in form
// fields (MM/DD/YYYY).
const WireDateFormat = "01/02/2006"

// SearchQuery selects one page of the solar permit search.
type SearchQuery struct {
	// StartDate and EndDate bound the issue date range, inclusive.
	StartDate time.Time
	EndDate   time.Time

	// Page is the 1-based page index.
	Page int

	// PageSize is the number of records requested per page.
	PageSize int
}

// formValues renders the query as the full form payload. The endpoint wants
// every filter field present; the ones this tool does not filter on are sent
// empty. TempPermit and SolarGreenAdaptive are the fixed category selectors
// for solar permits.
func (q SearchQuery) formValues() url.Values {
	return url.Values{
		"sort":                        {""},
		"page":                        {strconv.Itoa(q.Page)},
		"pageSize":                    {strconv.Itoa(q.PageSize)},
		"group":                       {""},
		"filter":                      {""},
		"PermitType":                  {""},
		"PermitNumber":                {""},
		"TempPermit":                  {"Y"},
		"AddrNumber":                  {""},
		"AddrDirection":               {""},
		"AddrStreet":                  {""},
		"AddrType":                    {""},
		"ProfName":                    {""},
		"ProfStateLicense":            {""},
		"ProjectNumber":               {""},
		"ProjectName":                 {""},
		"SolarGreenAdaptive":          {"solar"},
		"SolarGreenAdaptiveStartDate": {q.StartDate.Format(WireDateFormat)},
		"SolarGreenAdaptiveEndDate":   {q.EndDate.Format(WireDateFormat)},
	}
}

// SearchPage is the decoded response envelope for one page.
type SearchPage struct {
	// Data holds the page's raw permit records. Absent in the body decodes
	// as empty.
	Data []permit.Raw `json:"Data"`

	// Total is the source-reported record count for the whole query. Only
	// the page-1 value is authoritative.
	Total int `json:"Total"`
}
