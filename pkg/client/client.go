// Package client provides the HTTP client for the City of Phoenix PDD
// permit search endpoint.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for permit search operations.
var (
	pddRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdd_requests_total",
		Help: "Total permit search requests by outcome",
	}, []string{"outcome"})

	pddRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdd_request_duration_seconds",
		Help:    "Permit search request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	pddErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdd_errors_total",
		Help: "Total permit search errors by class",
	}, []string{"class"})

	pddPageRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdd_page_records",
		Help:    "Raw records delivered per fetched page",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
)

// ErrorClass represents a classification of page fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassDecode represents unparseable response bodies.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// DefaultEndpoint is the production permit search URL.
const DefaultEndpoint = "https://apps-secure.phoenix.gov/PDD/Search/Permits/_GetPermitData"

// Client issues permit search requests. One FetchPage call is one
// form-encoded POST; the shared http.Client reuses connections across pages.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the permit search URL.
	Endpoint string

	// Timeout bounds one page request end to end.
	Timeout time.Duration

	// UserAgent identifies this tool to the source. Empty leaves Go's
	// default User-Agent in place.
	UserAgent string
}

// DefaultConfig returns a configuration for the production endpoint.
func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		Timeout:   30 * time.Second,
		UserAgent: "permit-export/1.0",
	}
}

// New creates a new permit search client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive (got %v)", ErrInvalidConfig, cfg.Timeout)
	}

	logger := log.With().Str("component", "pdd-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage retrieves and decodes one page of search results. Every failure
// comes back as an *APIError carrying the page and error class; the caller
// decides whether the run ends.
func (c *Client) FetchPage(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	startTime := time.Now()
	defer func() {
		pddRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	form := q.formValues().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, strings.NewReader(form))
	if err != nil {
		return nil, &APIError{Page: q.Page, Class: ErrorClassNetwork, Message: "build request", Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Int("page", q.Page).
		Int("page_size", q.PageSize).
		Str("start_date", q.StartDate.Format(WireDateFormat)).
		Str("end_date", q.EndDate.Format(WireDateFormat)).
		Msg("Fetching permit page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pddErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		pddRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Int("page", q.Page).Msg("Permit page request failed")
		return nil, &APIError{Page: q.Page, Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		pddErrorsTotal.WithLabelValues(string(class)).Inc()
		pddRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Int("page", q.Page).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Permit page request error")
		return nil, &APIError{Page: q.Page, StatusCode: resp.StatusCode, Class: class, Message: resp.Status}
	}

	var page SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		pddErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		pddRequestsTotal.WithLabelValues("decode_error").Inc()
		c.logger.Error().Err(err).Int("page", q.Page).Msg("Permit page decode failed")
		return nil, &APIError{
			Page:       q.Page,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Message:    "decode response",
			Err:        fmt.Errorf("%w: %v", ErrDecodeFailed, err),
		}
	}

	pddRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	pddPageRecords.Observe(float64(len(page.Data)))

	c.logger.Debug().
		Int("page", q.Page).
		Int("rows", len(page.Data)).
		Int("total", page.Total).
		Msg("Permit page fetched")

	return &page, nil
}

// classifyStatus categorizes a non-success HTTP status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
