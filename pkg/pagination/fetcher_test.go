package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/permitwatch/phx-permit-client/pkg/client"
	"github.com/permitwatch/phx-permit-client/pkg/permit"
)

// stubFetcher serves canned pages and records every query it sees.
type stubFetcher struct {
	pages     map[int]*client.SearchPage
	failOn    map[int]error
	calls     []client.SearchQuery
	callTimes []time.Time
}

func (s *stubFetcher) FetchPage(ctx context.Context, q client.SearchQuery) (*client.SearchPage, error) {
	s.calls = append(s.calls, q)
	s.callTimes = append(s.callTimes, time.Now())

	if err := s.failOn[q.Page]; err != nil {
		return nil, err
	}
	if p, ok := s.pages[q.Page]; ok {
		return p, nil
	}
	return &client.SearchPage{}, nil
}

// rawPermits builds n well-formed raw records with sequential permit numbers.
func rawPermits(page, n int) []permit.Raw {
	rows := make([]permit.Raw, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, permit.Raw{
			"TypeNumber":    fmt.Sprintf("SOL-2025-%d%03d", page, i),
			"PermitAddress": fmt.Sprintf("%d00 N %dTH ST", i+1, page),
		})
	}
	return rows
}

func testRange() (time.Time, time.Time) {
	return time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 26, 0, 0, 0, 0, time.UTC)
}

func TestNewFetcher_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		config       Config
		wantPageSize int
		wantDelay    time.Duration
	}{
		{
			name:         "zero config",
			config:       Config{},
			wantPageSize: DefaultPageSize,
			wantDelay:    0,
		},
		{
			name:         "negative values",
			config:       Config{PageSize: -1, Delay: -time.Second},
			wantPageSize: DefaultPageSize,
			wantDelay:    0,
		},
		{
			name:         "defaults",
			config:       DefaultConfig(),
			wantPageSize: 50,
			wantDelay:    time.Second,
		},
		{
			name:         "custom",
			config:       Config{PageSize: 10, Delay: 100 * time.Millisecond},
			wantPageSize: 10,
			wantDelay:    100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(&stubFetcher{}, tt.config)
			if f.config.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", f.config.PageSize, tt.wantPageSize)
			}
			if f.pacer.Delay() != tt.wantDelay {
				t.Errorf("Delay = %v, want %v", f.pacer.Delay(), tt.wantDelay)
			}
		})
	}
}

func TestFetchRange_EmptyResult(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: nil, Total: 0},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 50})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 1 {
		t.Errorf("Issued %d requests, want 1", len(stub.calls))
	}
	if len(res.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(res.Records))
	}
	if res.Total != 0 {
		t.Errorf("Total = %d, want 0", res.Total)
	}
}

func TestFetchRange_FirstPageAnomaly(t *testing.T) {
	// Page 1 reports a nonzero total but delivers no rows: stop and warn.
	buf := &strings.Builder{}
	oldLogger := log.Logger
	log.Logger = zerolog.New(buf)
	defer func() { log.Logger = oldLogger }()

	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: nil, Total: 40},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 50})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 1 {
		t.Errorf("Issued %d requests, want 1", len(stub.calls))
	}
	if len(res.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(res.Records))
	}
	if res.Total != 40 {
		t.Errorf("Total = %d, want 40", res.Total)
	}
	if !strings.Contains(buf.String(), "empty first page") {
		t.Errorf("Expected anomaly warning in diagnostics, got %q", buf.String())
	}
}

func TestFetchRange_SinglePageExactTotal(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 5), Total: 5},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 5})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 1 {
		t.Errorf("Issued %d requests, want 1", len(stub.calls))
	}
	if len(res.Records) != 5 {
		t.Errorf("Records = %d, want 5", len(res.Records))
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
}

func TestFetchRange_TwoPagesWithDelay(t *testing.T) {
	delay := 40 * time.Millisecond
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 5), Total: 8},
			2: {Data: rawPermits(2, 3), Total: 8},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 5, Delay: delay})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 2 {
		t.Fatalf("Issued %d requests, want 2", len(stub.calls))
	}
	if stub.calls[0].Page != 1 || stub.calls[1].Page != 2 {
		t.Errorf("Pages requested in order %d,%d, want 1,2", stub.calls[0].Page, stub.calls[1].Page)
	}
	if gap := stub.callTimes[1].Sub(stub.callTimes[0]); gap < delay {
		t.Errorf("Gap between requests = %v, want at least %v", gap, delay)
	}

	if len(res.Records) != 8 {
		t.Fatalf("Records = %d, want 8", len(res.Records))
	}
	// Page-then-row order: page 1's rows first, then page 2's.
	if res.Records[0].PermitNumber != "SOL-2025-1000" {
		t.Errorf("Records[0] = %q, want first row of page 1", res.Records[0].PermitNumber)
	}
	if res.Records[5].PermitNumber != "SOL-2025-2000" {
		t.Errorf("Records[5] = %q, want first row of page 2", res.Records[5].PermitNumber)
	}
}

func TestFetchRange_QueryPassthrough(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: nil, Total: 0},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 25})

	start, end := testRange()
	if _, err := f.FetchRange(context.Background(), start, end); err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	q := stub.calls[0]
	if !q.StartDate.Equal(start) || !q.EndDate.Equal(end) {
		t.Errorf("Query dates = %v..%v, want %v..%v", q.StartDate, q.EndDate, start, end)
	}
	if q.PageSize != 25 {
		t.Errorf("Query page size = %d, want 25", q.PageSize)
	}
	if q.Page != 1 {
		t.Errorf("Query page = %d, want 1", q.Page)
	}
}

func TestFetchRange_FailureKeepsPartialResults(t *testing.T) {
	apiErr := &client.APIError{Page: 2, Class: client.ErrorClassNetwork, Message: "request failed", Err: errors.New("connection reset")}
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 5), Total: 10},
		},
		failOn: map[int]error{2: apiErr},
	}
	f := NewFetcher(stub, Config{PageSize: 5})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)

	if err == nil {
		t.Fatal("Expected error from failed page 2")
	}
	var gotAPIErr *client.APIError
	if !errors.As(err, &gotAPIErr) {
		t.Errorf("Expected *client.APIError in chain, got %v", err)
	}
	if len(stub.calls) != 2 {
		t.Errorf("Issued %d requests, want 2", len(stub.calls))
	}
	if res == nil {
		t.Fatal("Result is nil, partial records lost")
	}
	if len(res.Records) != 5 {
		t.Errorf("Partial records = %d, want the 5 from page 1", len(res.Records))
	}
}

func TestFetchRange_ShortPageStops(t *testing.T) {
	// 3 rows on a pageSize-5 request is a short page: end of data even
	// though the reported total says otherwise.
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 3), Total: 10},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 5})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 1 {
		t.Errorf("Issued %d requests, want 1", len(stub.calls))
	}
	if len(res.Records) != 3 {
		t.Errorf("Records = %d, want 3", len(res.Records))
	}
}

func TestFetchRange_EmptyLaterPageStops(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 2), Total: 6},
			2: {Data: rawPermits(2, 2), Total: 6},
			3: {Data: nil, Total: 6},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 2})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 3 {
		t.Errorf("Issued %d requests, want 3", len(stub.calls))
	}
	if len(res.Records) != 4 {
		t.Errorf("Records = %d, want 4", len(res.Records))
	}
}

func TestFetchRange_RejectedRowsForceExtraPage(t *testing.T) {
	// One of page 1's three rows is missing its address, so the
	// accumulated count (2) stays under the total (4) and a second page
	// is fetched even though raw rows already matched the total per page.
	badRow := permit.Raw{"TypeNumber": "SOL-2025-BAD"}
	page1 := append(rawPermits(1, 2), badRow)

	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: page1, Total: 4},
			2: {Data: rawPermits(2, 2), Total: 4},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 3})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if len(stub.calls) != 2 {
		t.Errorf("Issued %d requests, want 2", len(stub.calls))
	}
	if len(res.Records) != 4 {
		t.Errorf("Records = %d, want 4", len(res.Records))
	}
	if res.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", res.Rejected)
	}
	if res.RawRows != 5 {
		t.Errorf("RawRows = %d, want 5", res.RawRows)
	}
}

func TestFetchRange_CancelledDuringDelay(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: rawPermits(1, 5), Total: 50},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 5, Delay: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start, end := testRange()
	began := time.Now()
	res, err := f.FetchRange(ctx, start, end)
	elapsed := time.Since(began)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchRange() = %v, want context.Canceled", err)
	}
	if elapsed >= 5*time.Second {
		t.Errorf("FetchRange() blocked through the full delay (%v)", elapsed)
	}
	if len(stub.calls) != 1 {
		t.Errorf("Issued %d requests, want 1", len(stub.calls))
	}
	if len(res.Records) != 5 {
		t.Errorf("Partial records = %d, want 5", len(res.Records))
	}
}

func TestFetchRange_RunIDAssigned(t *testing.T) {
	stub := &stubFetcher{
		pages: map[int]*client.SearchPage{
			1: {Data: nil, Total: 0},
		},
	}
	f := NewFetcher(stub, Config{PageSize: 50})

	start, end := testRange()
	res, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}

	if res.RunID == "" {
		t.Error("RunID should not be empty")
	}

	res2, err := f.FetchRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FetchRange() failed: %v", err)
	}
	if res2.RunID == res.RunID {
		t.Error("Each run should get its own RunID")
	}
}
