// Package store persists normalized permit records in Redis.
//
// The store is an output sink alongside the CSV writer, aimed at consumers
// that want permit lookups by number without re-parsing CSV files. Fetch
// runs only ever write; nothing in the fetch path reads the store back, so
// deleting its keys never changes what a run produces.
//
// # Keying
//
// Each record lives at pdd:permit:<permit_number> as a JSON document, and
// each run maintains a set of the permit numbers it stored at
// pdd:run:<run_id>. Both carry the configured TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	permitStore := store.NewStore(redisClient, store.Config{TTL: 30 * 24 * time.Hour})
//
//	written, err := permitStore.SaveRun(ctx, result.RunID, result.Records)
//	if err != nil {
//		return err
//	}
//
//	rec, err := permitStore.GetPermit(ctx, "SOL-2025-001234")
//	if err == store.ErrNotFound {
//		// Not stored (or expired)
//	}
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - pdd_store_writes_total - Records written
//   - pdd_store_errors_total{operation} - Operation errors
package store
