package permit

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Wrapper around the millisecond timestamp in source date fields,
// e.g. "/Date(1743121800000)/".
const (
	msDatePrefix = "/Date("
	msDateSuffix = ")/"
)

// Normalizer converts Raw permits into Records. It never fails on malformed
// input: records missing required fields are rejected, malformed optional
// fields degrade to absent.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a Normalizer that emits field-level diagnostics to
// the given logger.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize maps one raw permit to a Record. It returns ok=false when the
// record lacks a usable permit number or address; such records carry nothing
// worth keeping and are dropped whole rather than emitted partially filled.
func (n *Normalizer) Normalize(raw Raw) (Record, bool) {
	number := stringField(raw, SourcePermitNumber)
	address := stringField(raw, SourceAddress)
	if number == "" || address == "" {
		return Record{}, false
	}

	rec := Record{
		PermitNumber: number,
		Address:      address,
		Contractor:   stringField(raw, SourceContractor),
		PermitType:   stringField(raw, SourcePermitType),
		Status:       stringField(raw, SourceStatus),
	}

	if v, present := raw[SourceIssuedDate]; present {
		date, ok := ParseIssuedDate(v)
		switch {
		case ok:
			rec.IssuedDate = date
		case v == nil || v == "":
			// Nothing to decode, nothing to report.
		default:
			n.logger.Warn().
				Str("permit_number", number).
				Interface("issued_date", v).
				Msg("malformed issued date, field dropped")
		}
	}

	return rec, true
}

// ParseIssuedDate decodes the source's wrapped-millisecond date format
// "/Date(<ms-since-epoch>)/" into a YYYY-MM-DD string in local time. It
// returns ok=false when the value is not a string, the wrapper does not
// match, or the inner content is not an integer.
func ParseIssuedDate(v any) (string, bool) {
	s, isString := v.(string)
	if !isString {
		return "", false
	}
	if !strings.HasPrefix(s, msDatePrefix) || !strings.HasSuffix(s, msDateSuffix) {
		return "", false
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(s, msDatePrefix), msDateSuffix)
	ms, err := strconv.ParseInt(inner, 10, 64)
	if err != nil {
		return "", false
	}

	return time.UnixMilli(ms).Format("2006-01-02"), true
}

// stringField returns the field as a string, or "" when it is missing or not
// a string value.
func stringField(raw Raw, field string) string {
	if v, ok := raw[field].(string); ok {
		return v
	}
	return ""
}
