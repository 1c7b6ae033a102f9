// Package permit normalizes raw permit search results from the Phoenix PDD
// endpoint into flat, fixed-shape records suitable for tabular output.
package permit

// Source field names as they appear in the search response.
const (
	SourcePermitNumber = "TypeNumber"
	SourceAddress      = "PermitAddress"
	SourceContractor   = "ProfessionalName"
	SourceIssuedDate   = "IssuedDate"
	SourcePermitType   = "PermitType"
	SourceStatus       = "Status"
)

// Raw is one permit object as decoded from the search response. The source
// makes no guarantees: fields may be missing, empty, or of unexpected types.
type Raw map[string]any

// Record is the normalized form of one permit. PermitNumber and Address are
// always non-empty; the remaining fields are empty strings when the source
// omitted them or delivered something unusable.
type Record struct {
	// PermitNumber is the permit identifier (source: TypeNumber)
	PermitNumber string `json:"permit_number"`

	// Address is the street address of the permitted work (source: PermitAddress)
	Address string `json:"address"`

	// Contractor is the professional of record (source: ProfessionalName)
	Contractor string `json:"contractor"`

	// IssuedDate is the issue date as YYYY-MM-DD in local time (source: IssuedDate)
	IssuedDate string `json:"issued_date"`

	// PermitType is the source permit type label (source: PermitType)
	PermitType string `json:"permit_type"`

	// Status is the source permit status label (source: Status)
	Status string `json:"status"`
}

// Fields returns the output column names in canonical order. The CSV header
// row uses exactly this order.
func Fields() []string {
	return []string{
		"permit_number",
		"address",
		"contractor",
		"issued_date",
		"permit_type",
		"status",
	}
}

// Row returns the record's values in the same order as Fields.
func (r Record) Row() []string {
	return []string{
		r.PermitNumber,
		r.Address,
		r.Contractor,
		r.IssuedDate,
		r.PermitType,
		r.Status,
	}
}
