package testutil

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// FakeDocument is one record served by FakeAPI.
type FakeDocument struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	DocDate  string `json:"docdt"`
	Country  string `json:"count"`
	Language string `json:"lang"`
	DocType  string `json:"docty"`
	Abstract string `json:"abstract"`
}

// DefaultDocuments is the corpus FakeAPI serves unless replaced.
var DefaultDocuments = []FakeDocument{
	{ID: "10001", Title: "Energy access in rural Brazil", DocDate: "2021-03-15T00:00:00Z", Country: "Brazil", Language: "English", DocType: "Report", Abstract: "Solar mini-grids."},
	{ID: "10002", Title: "Hydropower and energy security", DocDate: "2020-07-01T00:00:00Z", Country: "Brazil", Language: "Portuguese", DocType: "Brief", Abstract: "Dam operations."},
	{ID: "10003", Title: "Energy subsidies review", DocDate: "2022-11-30T00:00:00Z", Country: "India", Language: "English", DocType: "Report", Abstract: "Fiscal costs."},
	{ID: "10004", Title: "Education outcomes in Kenya", DocDate: "2019-05-20T00:00:00Z", Country: "Kenya", Language: "English", DocType: "Working Paper", Abstract: "Learning poverty."},
	{ID: "10005", Title: "Renewable energy auctions", DocDate: "2023-02-10T00:00:00Z", Country: "Brazil", Language: "English", DocType: "Report", Abstract: "Wind and solar."},
	{ID: "10006", Title: "Transporte urbano", DocDate: "2021-09-09T00:00:00Z", Country: "Colombia", Language: "Spanish", DocType: "Brief", Abstract: "Bus rapid transit."},
	{ID: "10007", Title: "Energy efficiency in buildings", DocDate: "2020-01-25T00:00:00Z", Country: "India", Language: "English", DocType: "Report", Abstract: "Cooling demand."},
	{ID: "10008", Title: "Water utilities performance", DocDate: "2018-12-01T00:00:00Z", Country: "Kenya", Language: "English", DocType: "Report", Abstract: "Non-revenue water."},
	{ID: "10009", Title: "Energy transition financing", DocDate: "2023-06-18T00:00:00Z", Country: "Brazil", Language: "English", DocType: "Working Paper", Abstract: "Green bonds."},
	{ID: "10010", Title: "Electricity tariffs", DocDate: "2022-04-04T00:00:00Z", Country: "Colombia", Language: "Spanish", DocType: "Report", Abstract: "Energy pricing."},
	{ID: "10011", Title: "Off-grid energy markets", DocDate: "2021-10-12T00:00:00Z", Country: "Kenya", Language: "English", DocType: "Brief", Abstract: "Pay-as-you-go."},
	{ID: "10012", Title: "Energy poverty and gender", DocDate: "2022-08-08T00:00:00Z", Country: "Brazil", Language: "English", DocType: "Report", Abstract: "Household surveys."},
}

// Fault overrides the response for a path.
type Fault struct {
	StatusCode int
	Delay      time.Duration
	Body       string
}

// FakeAPI is an in-process document-search service with /wds and /health
// endpoints, shaped like the public documents API the tool targets.
type FakeAPI struct {
	*httptest.Server

	mu        sync.Mutex
	documents []FakeDocument
	faults    map[string]Fault
	hits      map[string]int

	noHealth      bool
	strictInputs  bool
	lenientErrors bool
	duplicateIDs  bool
}

// FakeOption configures a FakeAPI.
type FakeOption func(*FakeAPI)

// WithoutHealth makes /health return 404.
func WithoutHealth() FakeOption {
	return func(f *FakeAPI) { f.noHealth = true }
}

// WithDocuments replaces the served corpus.
func WithDocuments(docs []FakeDocument) FakeOption {
	return func(f *FakeAPI) { f.documents = docs }
}

// WithServerErrors makes invalid input produce 500 instead of 400.
func WithServerErrors() FakeOption {
	return func(f *FakeAPI) { f.strictInputs = true }
}

// WithLenientErrors makes invalid input produce 200 with the full corpus.
func WithLenientErrors() FakeOption {
	return func(f *FakeAPI) { f.lenientErrors = true }
}

// WithDuplicateIDs makes every page repeat its first document's id.
func WithDuplicateIDs() FakeOption {
	return func(f *FakeAPI) { f.duplicateIDs = true }
}

// NewFakeAPI starts a FakeAPI and registers its shutdown with t.Cleanup.
func NewFakeAPI(t testing.TB, opts ...FakeOption) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		documents: DefaultDocuments,
		faults:    make(map[string]Fault),
		hits:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}

	r := chi.NewRouter()
	r.Use(f.count)
	r.Use(f.faultInjection)
	r.Get("/wds", f.search)
	r.Get("/health", f.health)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

// SetFault installs a fault for path; a zero Fault clears it.
func (f *FakeAPI) SetFault(path string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fault == (Fault{}) {
		delete(f.faults, path)
		return
	}
	f.faults[path] = fault
}

// Hits returns how many requests path has received.
func (f *FakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) faultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fault, ok := f.faults[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.StatusCode == 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.StatusCode)
		if fault.Body != "" {
			fmt.Fprint(w, fault.Body)
			return
		}
		fmt.Fprintf(w, `{"error":{"message":"injected fault","code":%d}}`, fault.StatusCode)
	})
}

func (f *FakeAPI) health(w http.ResponseWriter, r *http.Request) {
	if f.noHealth {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func (f *FakeAPI) reject(w http.ResponseWriter, msg string) bool {
	switch {
	case f.lenientErrors:
		return false
	case f.strictInputs:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
	}
	return true
}

func (f *FakeAPI) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xml" {
		if f.reject(w, "unsupported format "+format) {
			return
		}
		format = "json"
	}

	rows, err := intParam(q.Get("rows"), 10)
	if err != nil || rows < 0 || rows > 100 {
		if f.reject(w, "rows must be an integer between 0 and 100") {
			return
		}
		rows = 10
	}
	offset, err := intParam(q.Get("os"), 0)
	if err != nil || offset < 0 {
		if f.reject(w, "os must be a non-negative integer") {
			return
		}
		offset = 0
	}

	start, end := q.Get("strdate"), q.Get("enddate")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			if f.reject(w, "dates must be YYYY-MM-DD") {
				return
			}
			start, end = "", ""
		}
	}
	if start != "" && end != "" && end < start {
		if f.reject(w, "enddate precedes strdate") {
			return
		}
		start, end = "", ""
	}

	var matched []FakeDocument
	term := strings.ToLower(q.Get("qterm"))
	for _, d := range f.documents {
		if term != "" && !strings.Contains(strings.ToLower(d.Title+" "+d.Abstract), term) {
			continue
		}
		if c := q.Get("count_exact"); c != "" && d.Country != c {
			continue
		}
		if l := q.Get("lang_exact"); l != "" && d.Language != l {
			continue
		}
		day := d.DocDate[:10]
		if start != "" && day < start {
			continue
		}
		if end != "" && day > end {
			continue
		}
		matched = append(matched, d)
	}

	page := matched[min(offset, len(matched)):]
	page = page[:min(rows, len(page))]

	var fields []string
	if fl := q.Get("fl"); fl != "" {
		fields = strings.Split(fl, ",")
	}

	if format == "xml" {
		writeXML(w, len(matched), page)
		return
	}

	docs := make(map[string]any, len(page))
	for i, d := range page {
		key := "D" + d.ID
		if f.duplicateIDs && i > 0 {
			key = fmt.Sprintf("D%s-%d", d.ID, i)
			d.ID = page[0].ID
		}
		docs[key] = project(d, fields)
	}

	pageNum := 1
	if rows > 0 {
		pageNum = offset/rows + 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":      rows,
		"os":        offset,
		"page":      pageNum,
		"total":     len(matched),
		"documents": docs,
	})
}

func project(d FakeDocument, fields []string) map[string]any {
	all := map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"docdt":    d.DocDate,
		"count":    d.Country,
		"lang":     d.Language,
		"docty":    d.DocType,
		"abstract": d.Abstract,
	}
	if len(fields) == 0 {
		return all
	}
	out := map[string]any{"id": d.ID}
	for _, name := range fields {
		name = strings.TrimSpace(name)
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type xmlDocuments struct {
	XMLName xml.Name `xml:"documents"`
	Total   int      `xml:"total,attr"`
	Docs    []xmlDoc `xml:"doc"`
}

type xmlDoc struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title"`
	Date  string `xml:"docdt"`
}

func writeXML(w http.ResponseWriter, total int, page []FakeDocument) {
	out := xmlDocuments{Total: total}
	for _, d := range page {
		out.Docs = append(out.Docs, xmlDoc{ID: d.ID, Title: d.Title, Date: d.DocDate})
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(out)
}

// DocumentIDs returns the ids of docs in order.
func DocumentIDs(docs []FakeDocument) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	slices.Sort(ids)
	return ids
}
