package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pfrederiksen/grant-triage/internal/logger"
)

const (
	DefaultBaseURL = "https://api.grants.gov/v1/api"
	UserAgent      = "grant-triage/1.0 (github.com/pfrederiksen/grant-triage)"
	Timeout        = 30 * time.Second
	PageSize       = 25
)

// ErrAPI is returned when the API answers with a non-zero errorcode.
var ErrAPI = errors.New("grants API error")

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	UserAgent         string
	PageSize          int
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client talks to the Grants.gov search API.
type Client struct {
	baseURL    string
	userAgent  string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. Every request waits on a shared rate limiter.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.PageSize <= 0 {
		opts.PageSize = PageSize
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		pageSize:   opts.PageSize,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Hit is one opportunity from a search response.
type Hit struct {
	ID         flexString `json:"id"`
	Number     string     `json:"number"`
	Title      string     `json:"title"`
	AgencyCode string     `json:"agencyCode"`
	Agency     string     `json:"agency"`
	OpenDate   string     `json:"openDate"`
	CloseDate  string     `json:"closeDate"`
	OppStatus  string     `json:"oppStatus"`
	DocType    string     `json:"docType"`
	ALNs       []string   `json:"alnist"`
}

type searchRequest struct {
	Keyword            string `json:"keyword,omitempty"`
	Rows               int    `json:"rows"`
	StartRecordNum     int    `json:"startRecordNum"`
	OppStatuses        string `json:"oppStatuses,omitempty"`
	Agencies           string `json:"agencies,omitempty"`
	ALN                string `json:"aln,omitempty"`
	Eligibilities      string `json:"eligibilities,omitempty"`
	FundingCategories  string `json:"fundingCategories,omitempty"`
	FundingInstruments string `json:"fundingInstruments,omitempty"`
	SortBy             string `json:"sortBy,omitempty"`
}

type searchResponse struct {
	ErrorCode int    `json:"errorcode"`
	Msg       string `json:"msg"`
	Data      struct {
		HitCount int   `json:"hitCount"`
		OppHits  []Hit `json:"oppHits"`
	} `json:"data"`
}

// Search pages through results until q.Max hits are collected or the API
// runs out.
func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	q = q.Normalize()
	if q.Max <= 0 {
		q.Max = 50
	}

	hits := make([]Hit, 0, q.Max)
	for len(hits) < q.Max {
		rows := c.pageSize
		if remaining := q.Max - len(hits); remaining < rows {
			rows = remaining
		}
		req := searchRequest{
			Keyword:            q.Keyword,
			Rows:               rows,
			StartRecordNum:     len(hits),
			OppStatuses:        q.Statuses,
			Agencies:           q.Agencies,
			ALN:                q.ALN,
			Eligibilities:      q.Eligibilities,
			FundingCategories:  q.Categories,
			FundingInstruments: q.Instruments,
			SortBy:             q.SortBy,
		}

		var resp searchResponse
		if err := c.post(ctx, "/search2", req, &resp); err != nil {
			return nil, fmt.Errorf("searching page at %d: %w", len(hits), err)
		}
		if resp.ErrorCode != 0 {
			return nil, fmt.Errorf("%w %d: %s", ErrAPI, resp.ErrorCode, resp.Msg)
		}
		logger.IncrCounter("fetch.pages")
		logger.Debug("fetched search page", logger.Fields{
			"start":     len(hits),
			"returned":  len(resp.Data.OppHits),
			"hit_count": resp.Data.HitCount,
		})

		page := resp.Data.OppHits
		if len(page) > q.Max-len(hits) {
			page = page[:q.Max-len(hits)]
		}
		hits = append(hits, page...)
		if len(page) == 0 || len(hits) >= resp.Data.HitCount {
			break
		}
	}
	return hits, nil
}

// post sends body as JSON to path and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()
	logger.RecordTiming("fetch.request", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// flexString accepts a JSON string, number or boolean.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	switch {
	case text == "null":
		*f = ""
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case strings.HasPrefix(text, "{"), strings.HasPrefix(text, "["):
		return fmt.Errorf("unexpected JSON value %s", text)
	default:
		*f = flexString(text)
	}
	return nil
}

func (f flexString) String() string {
	return string(f)
}
