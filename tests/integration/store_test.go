package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/permitwatch/phx-permit-client/internal/testutil"
	"github.com/permitwatch/phx-permit-client/pkg/pagination"
	"github.com/permitwatch/phx-permit-client/pkg/permit"
	"github.com/permitwatch/phx-permit-client/pkg/store"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestStoreRoundTrip saves a run against real Redis and reads it back.
func TestStoreRoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	permitStore := store.NewStore(redisClient, store.Config{TTL: time.Hour})
	ctx := context.Background()

	records := []permit.Record{
		{
			PermitNumber: "SOL-2025-001",
			Address:      "1001 E ROOSEVELT ST",
			Contractor:   "Sunline Solar LLC",
			IssuedDate:   "2025-04-01",
			PermitType:   "Residential Solar",
			Status:       "Final",
		},
		{
			PermitNumber: "SOL-2025-002",
			Address:      "2828 N 24TH ST",
			Status:       "Issued",
		},
	}

	n, err := permitStore.SaveRun(ctx, "run-integration", records)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if n != 2 {
		t.Errorf("SaveRun saved %d, want 2", n)
	}

	rec, err := permitStore.GetPermit(ctx, "SOL-2025-001")
	if err != nil {
		t.Fatalf("GetPermit failed: %v", err)
	}
	if rec.Address != "1001 E ROOSEVELT ST" {
		t.Errorf("Address = %q", rec.Address)
	}
	if rec.IssuedDate != "2025-04-01" {
		t.Errorf("IssuedDate = %q", rec.IssuedDate)
	}

	numbers, err := permitStore.RunPermitNumbers(ctx, "run-integration")
	if err != nil {
		t.Fatalf("RunPermitNumbers failed: %v", err)
	}
	if len(numbers) != 2 {
		t.Errorf("Run index has %d permits, want 2", len(numbers))
	}

	// Keys must carry the configured TTL.
	ttl := redisClient.TTL(ctx, store.PermitKey("SOL-2025-001")).Val()
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("Permit TTL = %v, want within (0, 1h]", ttl)
	}
}

// TestFetchAndStoreFlow runs the full pipeline into Redis: paged search ->
// normalize -> store.
func TestFetchAndStoreFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockPDD()
	defer mock.Close()

	issued := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.Local)
	mock.SetPageResponse(1, testutil.NewPageResponse([]map[string]any{
		testutil.SolarPermitRow("SOL-2025-001", "1001 E ROOSEVELT ST", issued),
		testutil.SolarPermitRow("SOL-2025-002", "2828 N 24TH ST", issued.AddDate(0, 0, 1)),
	}, 2))

	c := newSearchClient(t, mock.URL())
	fetcher := pagination.NewFetcher(c, pagination.Config{PageSize: 50, Delay: 0})

	start := time.Date(2025, time.March, 27, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, time.April, 26, 0, 0, 0, 0, time.Local)

	ctx := context.Background()
	result, err := fetcher.FetchRange(ctx, start, end)
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}

	permitStore := store.NewStore(redisClient, store.Config{TTL: time.Hour})
	n, err := permitStore.SaveRun(ctx, result.RunID, result.Records)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if n != 2 {
		t.Errorf("SaveRun saved %d, want 2", n)
	}

	numbers, err := permitStore.RunPermitNumbers(ctx, result.RunID)
	if err != nil {
		t.Fatalf("RunPermitNumbers failed: %v", err)
	}
	if len(numbers) != 2 {
		t.Errorf("Run index has %d permits, want 2", len(numbers))
	}

	rec, err := permitStore.GetPermit(ctx, "SOL-2025-002")
	if err != nil {
		t.Fatalf("GetPermit failed: %v", err)
	}
	if rec.IssuedDate != "2025-04-02" {
		t.Errorf("IssuedDate = %q, want 2025-04-02", rec.IssuedDate)
	}
}
