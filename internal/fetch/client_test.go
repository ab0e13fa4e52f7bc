package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves search2 from a fixed list of hits and fetchOpportunity from details.
type fakeAPI struct {
	mu       sync.Mutex
	hits     []map[string]interface{}
	details  map[int]string // id -> synopsis JSON
	requests []searchRequest
	fail     bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search2", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if f.failing() {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Errorf("missing User-Agent")
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		end := req.StartRecordNum + req.Rows
		if end > len(f.hits) {
			end = len(f.hits)
		}
		page := []map[string]interface{}{}
		if req.StartRecordNum < len(f.hits) {
			page = f.hits[req.StartRecordNum:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errorcode": 0,
			"msg":       "Webservice Succeeds",
			"data":      map[string]interface{}{"hitCount": len(f.hits), "oppHits": page},
		})
	})
	mux.HandleFunc("/fetchOpportunity", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OpportunityID int `json:"opportunityId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		syn, ok := f.details[req.OpportunityID]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"errorcode":0,"msg":"ok","data":{"id":%d,"synopsis":%s}}`, req.OpportunityID, syn)
	})
	return mux
}

func (f *fakeAPI) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeAPI) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func makeHits(n int) []map[string]interface{} {
	hits := make([]map[string]interface{}, n)
	for i := range hits {
		hits[i] = map[string]interface{}{
			"id":         fmt.Sprintf("%d", 1000+i),
			"number":     fmt.Sprintf("DE-FOA-%04d", i),
			"title":      fmt.Sprintf("Opportunity %d", i),
			"agencyCode": "DOE",
			"agency":     "Department of Energy",
			"openDate":   "01/15/2024",
			"closeDate":  "03/31/2099",
			"oppStatus":  "posted",
			"docType":    "synopsis",
			"alnist":     []string{"81.049"},
		}
	}
	return hits
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		BaseURL:           url,
		PageSize:          2,
		RequestsPerSecond: 1000,
		HTTPClient:        &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
	})
}

func TestSearch_Paginates(t *testing.T) {
	api := &fakeAPI{hits: makeHits(5)}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).Search(context.Background(), Query{Keyword: "energy", Max: 50, Agencies: "doe"})
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, "1000", hits[0].ID.String())
	assert.Equal(t, []string{"81.049"}, hits[4].ALNs)

	require.Len(t, api.requests, 3)
	assert.Equal(t, 0, api.requests[0].StartRecordNum)
	assert.Equal(t, 2, api.requests[1].StartRecordNum)
	assert.Equal(t, 4, api.requests[2].StartRecordNum)
	assert.Equal(t, "forecasted|posted", api.requests[0].OppStatuses)
	assert.Equal(t, "DOE", api.requests[0].Agencies)
	assert.Equal(t, "energy", api.requests[0].Keyword)
}

func TestSearch_StopsAtMax(t *testing.T) {
	api := &fakeAPI{hits: makeHits(10)}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	hits, err := newTestClient(srv.URL).Search(context.Background(), Query{Keyword: "energy", Max: 3})
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	require.Len(t, api.requests, 2)
	assert.Equal(t, 1, api.requests[1].Rows, "last page only asks for the remainder")
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errorcode":1,"msg":"bad keyword"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), Query{Keyword: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPI))
	assert.Contains(t, err.Error(), "bad keyword")
}

func TestSearch_HTTPError(t *testing.T) {
	api := &fakeAPI{fail: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), Query{Keyword: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSearch_ContextCanceled(t *testing.T) {
	api := &fakeAPI{hits: makeHits(1)}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).Search(ctx, Query{Keyword: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"350012"`, "350012"},
		{`350012`, "350012"},
		{`1500000.5`, "1500000.5"},
		{`true`, "true"},
		{`null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexString
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f.String())
		})
	}

	var f flexString
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &f))
}
