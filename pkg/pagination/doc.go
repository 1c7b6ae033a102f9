// Package pagination provides sequential fetching of all pages of a permit
// search.
//
// The search endpoint reports the overall record count in each response's
// Total field, but only the page-1 value is trusted. Pages are requested
// strictly one at a time with a courtesy delay in between; the source is a
// municipal service, not built for parallel scraping.
//
// Example usage:
//
//	pdd, _ := client.New(client.DefaultConfig())
//	fetcher := pagination.NewFetcher(pdd, pagination.DefaultConfig())
//	result, err := fetcher.FetchRange(ctx, start, end)
//
// The fetcher:
//   - Requests pages in increasing order starting at 1
//   - Normalizes every row, silently dropping records without a permit
//     number or address
//   - Stops on: empty first page, empty later page, accumulated count
//     reaching the reported total, or a short page
//   - Returns partial data together with the error when a page fails
package pagination
