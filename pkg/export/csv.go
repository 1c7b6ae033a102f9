// Package export writes normalized permit records to tabular output.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/permitwatch/phx-permit-client/pkg/permit"
)

// filenameDateFormat is the wire date layout with slashes swapped out for
// filesystem safety.
const filenameDateFormat = "01-02-2006"

// Filename returns the conventional CSV name for a date range, e.g.
// phoenix_solar_permits_03-27-2025_04-26-2025.csv.
func Filename(start, end time.Time) string {
	return fmt.Sprintf("phoenix_solar_permits_%s_%s.csv",
		start.Format(filenameDateFormat), end.Format(filenameDateFormat))
}

// WriteCSV writes records to path: a header row of the record field names,
// then one row per record in sequence order. When records is empty no file
// is created and the returned count is zero. The returned count is the
// number of data rows written, which on error is how far the file got.
func WriteCSV(path string, records []permit.Record) (int, error) {
	logger := log.With().Str("component", "export").Logger()

	if len(records) == 0 {
		logger.Info().Str("path", path).Msg("No records to write, skipping file")
		return 0, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(permit.Fields()); err != nil {
		f.Close()
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			f.Close()
			return i, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return 0, fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}

	logger.Info().Str("path", path).Int("rows", len(records)).Msg("CSV written")
	return len(records), nil
}
