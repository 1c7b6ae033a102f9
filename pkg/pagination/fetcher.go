// Package pagination drives sequential page fetching for the permit search
// endpoint.
package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/permitwatch/phx-permit-client/pkg/client"
	"github.com/permitwatch/phx-permit-client/pkg/permit"
	"github.com/permitwatch/phx-permit-client/pkg/ratelimit"
)

// Prometheus metrics for fetch runs.
var (
	pddRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdd_runs_total",
		Help: "Completed fetch runs by result",
	}, []string{"result"})

	pddRecordsNormalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdd_records_normalized_total",
		Help: "Raw records that passed normalization",
	})

	pddRecordsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdd_records_rejected_total",
		Help: "Raw records dropped for missing required fields",
	})
)

// DefaultPageSize is the number of records requested per page unless
// configured otherwise.
const DefaultPageSize = 50

// PageFetcher is the single-page interface the fetcher drives.
// *client.Client implements it; tests substitute stubs.
type PageFetcher interface {
	FetchPage(ctx context.Context, q client.SearchQuery) (*client.SearchPage, error)
}

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the number of records requested per page.
	PageSize int

	// Delay is the pause between consecutive page requests. Zero disables
	// the pause.
	Delay time.Duration
}

// DefaultConfig returns the fetcher defaults.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Delay:    ratelimit.DefaultDelay,
	}
}

// Fetcher walks the paged search results in order: request a page,
// normalize its rows, accumulate, decide whether another page is needed.
type Fetcher struct {
	fetcher PageFetcher
	pacer   *ratelimit.Pacer
	config  Config
}

// NewFetcher creates a fetcher. A non-positive page size falls back to
// DefaultPageSize; a negative delay is treated as zero.
func NewFetcher(pf PageFetcher, cfg Config) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &Fetcher{
		fetcher: pf,
		pacer:   ratelimit.NewPacer(cfg.Delay),
		config:  cfg,
	}
}

// Result is the outcome of one fetch run. Records always holds everything
// accumulated before any failure, so a non-nil error still comes with
// usable partial data.
type Result struct {
	// Records is the accumulated normalized output in page-then-row order.
	Records []permit.Record

	// Pages is the number of page requests issued.
	Pages int

	// Total is the source-reported record count captured from page 1.
	Total int

	// RawRows counts raw records across all fetched pages.
	RawRows int

	// Rejected counts raw records dropped by normalization.
	Rejected int

	// RunID identifies this run in logs.
	RunID string
}

// FetchRange fetches every page of the date range in increasing order and
// returns the accumulated normalized records. A page failure ends the run
// immediately: the partial Result comes back together with the wrapped
// error, never discarded.
func (f *Fetcher) FetchRange(ctx context.Context, startDate, endDate time.Time) (*Result, error) {
	runID := uuid.NewString()
	logger := log.With().
		Str("component", "fetcher").
		Str("run_id", runID).
		Logger()
	normalizer := permit.NewNormalizer(logger)

	res := &Result{RunID: runID}
	startTime := time.Now()

	logger.Info().
		Str("start_date", startDate.Format(client.WireDateFormat)).
		Str("end_date", endDate.Format(client.WireDateFormat)).
		Int("page_size", f.config.PageSize).
		Dur("delay", f.pacer.Delay()).
		Msg("Starting permit fetch")

	for page := 1; ; page++ {
		sp, err := f.fetcher.FetchPage(ctx, client.SearchQuery{
			StartDate: startDate,
			EndDate:   endDate,
			Page:      page,
			PageSize:  f.config.PageSize,
		})
		if err != nil {
			pddRunsTotal.WithLabelValues("failed").Inc()
			logger.Error().
				Err(err).
				Int("page", page).
				Int("accumulated", len(res.Records)).
				Msg("Page fetch failed, keeping partial results")
			return res, fmt.Errorf("page %d failed (partial data: %d records): %w", page, len(res.Records), err)
		}
		res.Pages++

		if page == 1 {
			res.Total = sp.Total
			if res.Total == 0 {
				logger.Info().Msg("No permits found for date range")
				break
			}
			if len(sp.Data) == 0 {
				logger.Warn().
					Int("total", res.Total).
					Msg("Source reported records but delivered an empty first page")
				break
			}
		} else if len(sp.Data) == 0 {
			logger.Debug().Int("page", page).Msg("Empty page, end of data")
			break
		}

		res.RawRows += len(sp.Data)
		for _, raw := range sp.Data {
			rec, ok := normalizer.Normalize(raw)
			if !ok {
				res.Rejected++
				pddRecordsRejectedTotal.Inc()
				continue
			}
			res.Records = append(res.Records, rec)
			pddRecordsNormalizedTotal.Inc()
		}

		logger.Info().
			Int("page", page).
			Int("rows", len(sp.Data)).
			Int("accumulated", len(res.Records)).
			Int("total", res.Total).
			Msg("Page processed")

		// Accumulated is the post-normalization count: rejected rows can
		// push the run one page past what the source total implied.
		if len(res.Records) >= res.Total || len(sp.Data) < f.config.PageSize {
			break
		}

		if err := f.pacer.Wait(ctx); err != nil {
			pddRunsTotal.WithLabelValues("cancelled").Inc()
			logger.Warn().
				Err(err).
				Int("accumulated", len(res.Records)).
				Msg("Fetch cancelled between pages, keeping partial results")
			return res, err
		}
	}

	pddRunsTotal.WithLabelValues("complete").Inc()
	logger.Info().
		Int("records", len(res.Records)).
		Int("pages", res.Pages).
		Int("raw_rows", res.RawRows).
		Int("rejected", res.Rejected).
		Dur("duration", time.Since(startTime)).
		Msg("Fetch complete")

	return res, nil
}
