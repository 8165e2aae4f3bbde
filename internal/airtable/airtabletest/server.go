// Package airtabletest provides an in-process stand-in for the parts of the
// Airtable REST API the airtable backend uses: filtered and sorted list,
// create, and delete by record id.
package airtabletest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Defaults used by NewServer.
const (
	APIKey    = "TEST-KEY"
	Workspace = "appTEST"
	Table     = "pokemons"
)

var formulaRE = regexp.MustCompile(`^number=(\d+)$`)

// Server is a fake Airtable table. Records are kept as raw JSON maps so
// tests can seed malformed data.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  []map[string]any
	nextID   int
	hits     map[string]int
	pageSize int
}

// NewServer starts a fake table and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value to configure as the backend's base URL.
func (s *Server) BaseURL() string { return s.URL + "/v0" }

// Seed stores fields verbatim under a new record id and returns the id.
func (s *Server) Seed(fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(fields)
}

// SetPageSize splits list responses into pages of n records linked by an
// offset cursor. Zero returns everything in one page.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// Len returns the number of stored records.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Hits returns how many requests used method.
func (s *Server) Hits(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method]
}

func (s *Server) addLocked(fields map[string]any) string {
	s.nextID++
	id := fmt.Sprintf("rec%04d", s.nextID)
	s.records = append(s.records, map[string]any{"id": id, "fields": fields})
	return id
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[r.Method]++

	if r.Header.Get("Authorization") != "Bearer "+APIKey {
		http.Error(w, `{"error":"AUTHENTICATION_REQUIRED"}`, http.StatusUnauthorized)
		return
	}

	prefix := "/v0/" + Workspace + "/" + Table
	switch {
	case r.URL.Path == prefix && r.Method == http.MethodGet:
		s.list(w, r)
	case r.URL.Path == prefix && r.Method == http.MethodPost:
		s.create(w, r)
	case strings.HasPrefix(r.URL.Path, prefix+"/") && r.Method == http.MethodDelete:
		s.remove(w, strings.TrimPrefix(r.URL.Path, prefix+"/"))
	default:
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	}
}

func numberOf(rec map[string]any) (float64, bool) {
	fields, _ := rec["fields"].(map[string]any)
	n, ok := fields["number"].(float64)
	if !ok {
		if i, ok := fields["number"].(int); ok {
			return float64(i), true
		}
	}
	return n, ok
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(s.records))
	formula := r.URL.Query().Get("filterByFormula")
	for _, rec := range s.records {
		if formula != "" {
			m := formulaRE.FindStringSubmatch(formula)
			if m == nil {
				http.Error(w, `{"error":"INVALID_FILTER_BY_FORMULA"}`, http.StatusUnprocessableEntity)
				return
			}
			want, _ := strconv.Atoi(m[1])
			n, ok := numberOf(rec)
			if !ok || int(n) != want {
				continue
			}
		}
		out = append(out, rec)
	}

	if r.URL.Query().Get("sort[0][field]") == "number" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := numberOf(out[i])
			b, _ := numberOf(out[j])
			return a < b
		})
	}

	start := 0
	if off := r.URL.Query().Get("offset"); off != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(off, "itr"))
		if err != nil || n < 0 || n > len(out) {
			http.Error(w, `{"error":"LIST_RECORDS_ITERATOR_NOT_AVAILABLE"}`, http.StatusUnprocessableEntity)
			return
		}
		start = n
	}
	page := out[start:]
	resp := map[string]any{}
	if s.pageSize > 0 && len(page) > s.pageSize {
		page = page[:s.pageSize]
		resp["offset"] = fmt.Sprintf("itr%d", start+s.pageSize)
	}
	resp["records"] = page
	writeJSON(w, resp)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Records) == 0 {
		http.Error(w, `{"error":"INVALID_REQUEST_BODY"}`, http.StatusUnprocessableEntity)
		return
	}

	created := make([]map[string]any, 0, len(body.Records))
	for _, rec := range body.Records {
		id := s.addLocked(rec.Fields)
		created = append(created, map[string]any{"id": id, "fields": rec.Fields})
	}
	writeJSON(w, map[string]any{"records": created})
}

func (s *Server) remove(w http.ResponseWriter, id string) {
	for i, rec := range s.records {
		if rec["id"] == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			writeJSON(w, map[string]any{"id": id, "deleted": true})
			return
		}
	}
	http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
