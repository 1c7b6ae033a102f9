// Command permit-export pulls solar permit records from the City of Phoenix
// PDD permit search, normalizes them and writes a CSV export.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/permitwatch/phx-permit-client/internal/config"
	"github.com/permitwatch/phx-permit-client/pkg/client"
	"github.com/permitwatch/phx-permit-client/pkg/export"
	"github.com/permitwatch/phx-permit-client/pkg/logging"
	"github.com/permitwatch/phx-permit-client/pkg/pagination"
	"github.com/permitwatch/phx-permit-client/pkg/permit"
	"github.com/permitwatch/phx-permit-client/pkg/store"
)

// Build variables, injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Process exit codes.
const (
	exitUsage = 1
	exitFetch = 2
	exitSink  = 3
)

// exitError carries a process exit code through cobra's RunE chain.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(exitUsage)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "permit-export",
		Short: "Export solar permits from the Phoenix PDD permit search",
		Long: "permit-export pulls solar permit records from the City of Phoenix\n" +
			"PDD permit search, normalizes them and writes a CSV export.",
		SilenceUsage: true,
	}

	root.AddCommand(newFetchCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// fetchOptions holds the fetch command's flag values.
type fetchOptions struct {
	configPath  string
	start       string
	end         string
	pageSize    int
	delay       time.Duration
	outDir      string
	preview     int
	redisAddr   string
	metricsAddr string
	verbose     bool
	pretty      bool
}

func newFetchCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch permits for an issued date range and write a CSV export",
		Example: "  permit-export fetch --start 03/27/2025 --end 04/26/2025\n" +
			"  permit-export fetch --config permit-export.yaml --verbose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	registerFetchFlags(cmd.Flags(), opts)

	return cmd
}

func registerFetchFlags(flags *pflag.FlagSet, opts *fetchOptions) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	flags.StringVar(&opts.start, "start", "", "start of the issued date range (MM/DD/YYYY)")
	flags.StringVar(&opts.end, "end", "", "end of the issued date range (MM/DD/YYYY)")
	flags.IntVar(&opts.pageSize, "page-size", pagination.DefaultPageSize, "rows requested per page")
	flags.DurationVar(&opts.delay, "delay", time.Second, "pause between page requests")
	flags.StringVarP(&opts.outDir, "out-dir", "o", ".", "directory for the CSV export")
	flags.IntVar(&opts.preview, "preview", 5, "number of permits echoed to the console")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "save permits to Redis at this address")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.pretty, "pretty", false, "human-readable console logs instead of JSON")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "permit-export %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// applyFlagOverrides folds explicitly set flags into the configuration.
// Flags the user never touched leave the config file values alone.
func applyFlagOverrides(flags *pflag.FlagSet, opts *fetchOptions, cfg *config.Config) {
	if flags.Changed("start") {
		cfg.Fetch.StartDate = opts.start
	}
	if flags.Changed("end") {
		cfg.Fetch.EndDate = opts.end
	}
	if flags.Changed("page-size") {
		cfg.Fetch.PageSize = opts.pageSize
	}
	if flags.Changed("delay") {
		cfg.Fetch.Delay = config.Duration(opts.delay)
	}
	if flags.Changed("out-dir") {
		cfg.Output.CSVDir = opts.outDir
	}
	if flags.Changed("preview") {
		cfg.Output.Preview = opts.preview
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = opts.redisAddr
	}
	if flags.Changed("pretty") {
		cfg.Logging.Pretty = opts.pretty
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
}

func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Parse(opts.configPath)
		if err != nil {
			return &exitError{code: exitUsage, err: err}
		}
		cfg = loaded
	}
	applyFlagOverrides(cmd.Flags(), opts, cfg)

	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logging.Setup(logCfg)
	log := logging.NewLogger("permit-export")

	start, end, err := cfg.DateRange()
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	if opts.metricsAddr != "" {
		go serveMetrics(opts.metricsAddr, log)
	}

	clientCfg := client.DefaultConfig()
	clientCfg.Endpoint = cfg.Source.Endpoint
	clientCfg.Timeout = cfg.Source.Timeout.Std()
	if cfg.Source.UserAgent != "" {
		clientCfg.UserAgent = cfg.Source.UserAgent
	}

	pddClient, err := client.New(clientCfg)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	fetcher := pagination.NewFetcher(pddClient, pagination.Config{
		PageSize: cfg.Fetch.PageSize,
		Delay:    cfg.Fetch.Delay.Std(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, fetchErr := fetcher.FetchRange(ctx, start, end)

	out := cmd.OutOrStdout()
	printPreview(out, result.Records, cfg.Output.Preview)

	// Sinks run even after a failed fetch: partial data beats no data.
	var sinkErr error
	switch {
	case len(result.Records) > 0:
		path := filepath.Join(cfg.Output.CSVDir, export.Filename(start, end))
		n, err := export.WriteCSV(path, result.Records)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("CSV export failed")
			sinkErr = err
		} else {
			fmt.Fprintf(out, "Saved %d permits to %s\n", n, path)
		}
	case fetchErr == nil:
		fmt.Fprintln(out, "No permits found, nothing to export.")
	}

	if cfg.Redis.Enabled && len(result.Records) > 0 {
		// A fresh context so a cancelled fetch cannot lose the rows in hand.
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := saveToRedis(saveCtx, cfg, result, log); err != nil {
			log.Error().Err(err).Msg("Redis save failed")
			if sinkErr == nil {
				sinkErr = err
			}
		}
		cancel()
	}

	if fetchErr != nil {
		return &exitError{code: exitFetch, err: fmt.Errorf("fetch incomplete: %w", fetchErr)}
	}
	if sinkErr != nil {
		return &exitError{code: exitSink, err: sinkErr}
	}
	return nil
}

// printPreview echoes the first permits of the run for a quick visual check.
func printPreview(w io.Writer, records []permit.Record, n int) {
	if n <= 0 || len(records) == 0 {
		return
	}
	if n > len(records) {
		n = len(records)
	}

	fmt.Fprintf(w, "First %d of %d permits:\n", n, len(records))
	for _, rec := range records[:n] {
		issued := rec.IssuedDate
		if issued == "" {
			issued = "n/a"
		}
		fmt.Fprintf(w, "  %-18s %-34s issued %s\n", rec.PermitNumber, rec.Address, issued)
	}
}

func saveToRedis(ctx context.Context, cfg *config.Config, result *pagination.Result, log zerolog.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer rdb.Close()

	permitStore := store.NewStore(rdb, store.Config{TTL: cfg.Redis.KeyTTL.Std()})
	if err := permitStore.Ping(ctx); err != nil {
		return fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
	}

	n, err := permitStore.SaveRun(ctx, result.RunID, result.Records)
	if err != nil {
		return err
	}

	log.Info().
		Int("saved", n).
		Str("run_id", result.RunID).
		Msg("Permits saved to Redis")
	return nil
}

// serveMetrics exposes Prometheus metrics for scheduled or long runs.
func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics endpoint failed")
	}
}
