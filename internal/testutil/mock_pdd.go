// Package testutil provides testing utilities for the Phoenix permit client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockPDDResponse defines the behavior for a mock permit search response.
type MockPDDResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPDD is a configurable stand-in for the PDD permit search endpoint.
// The real endpoint is a single URL that multiplexes pages through the
// posted form body, so handlers are keyed by page number rather than path.
type MockPDD struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[int]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	Pages        []int
	LastForm     url.Values
	LastHeader   http.Header
}

// NewMockPDD creates a new mock permit search server.
func NewMockPDD() *MockPDD {
	mock := &MockPDD{
		handlers: make(map[int]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		page, _ := strconv.Atoi(r.PostForm.Get("page"))

		mock.mu.Lock()
		mock.RequestCount++
		mock.Pages = append(mock.Pages, page)
		mock.LastForm = cloneForm(r.PostForm)
		mock.LastHeader = r.Header.Clone()
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[page]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPDD) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPDD) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockPDD) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Pages = nil
	m.LastForm = nil
	m.LastHeader = nil
}

// SetPageHandler sets a custom handler for a specific page number.
func (m *MockPDD) SetPageHandler(page int, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[page] = handler
}

// SetPageResponse configures a canned response for a page number.
func (m *MockPDD) SetPageResponse(page int, resp MockPDDResponse) {
	m.SetPageHandler(page, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPDD) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestedPages returns the page numbers requested so far, in order.
func (m *MockPDD) RequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pages := make([]int, len(m.Pages))
	copy(pages, m.Pages)
	return pages
}

// GetLastForm returns the form values of the most recent request.
func (m *MockPDD) GetLastForm() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastForm
}

// defaultHandler answers pages nobody configured with an empty result set.
func (m *MockPDD) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"Data": [], "Total": 0}`))
}

func cloneForm(form url.Values) url.Values {
	cloned := make(url.Values, len(form))
	for key, values := range form {
		cloned[key] = append([]string(nil), values...)
	}
	return cloned
}

// SolarPermitRow builds a raw grid row shaped like the PDD search results.
// The issued timestamp is rendered in the endpoint's /Date(ms)/ format.
func SolarPermitRow(number, address string, issued time.Time) map[string]any {
	return map[string]any{
		"TypeNumber":       number,
		"PermitAddress":    address,
		"ProfessionalName": "Sunline Solar LLC",
		"IssuedDate":       fmt.Sprintf("/Date(%d)/", issued.UnixMilli()),
		"PermitType":       "Residential Solar",
		"Status":           "Final",
	}
}

// NewPageResponse creates a 200 OK grid envelope carrying the given rows.
func NewPageResponse(rows []map[string]any, total int) MockPDDResponse {
	if rows == nil {
		rows = []map[string]any{}
	}
	body, err := json.Marshal(map[string]any{"Data": rows, "Total": total})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal page response: %v", err))
	}
	return MockPDDResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewEmptyPageResponse creates a 200 OK envelope with no rows.
func NewEmptyPageResponse(total int) MockPDDResponse {
	return NewPageResponse(nil, total)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPDDResponse {
	return MockPDDResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"Message": "An error has occurred."}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockPDDResponse {
	return MockPDDResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"Message": "Request rate exceeded."}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewLoginPageResponse creates the HTML sign-in page the endpoint serves
// once a session expires. The body is deliberately not JSON so decode
// failures can be exercised.
func NewLoginPageResponse() MockPDDResponse {
	return MockPDDResponse{
		StatusCode: http.StatusOK,
		Body:       "<!DOCTYPE html>\n<html><head><title>Sign In</title></head><body>Session expired.</body></html>",
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}
