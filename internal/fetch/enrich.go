package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/grant-triage/internal/logger"
)

// DescriptionLimit caps the synopsis text in runes.
const DescriptionLimit = 500

// Detail holds the fields added by enrichment.
type Detail struct {
	Description  string
	AwardCeiling string
	AwardFloor   string
	CostSharing  string
}

type detailResponse struct {
	ErrorCode int    `json:"errorcode"`
	Msg       string `json:"msg"`
	Data      struct {
		Synopsis *struct {
			SynopsisDesc string     `json:"synopsisDesc"`
			AwardCeiling flexString `json:"awardCeiling"`
			AwardFloor   flexString `json:"awardFloor"`
			CostSharing  flexString `json:"costSharing"`
		} `json:"synopsis"`
	} `json:"data"`
}

// Detail fetches the synopsis for one opportunity.
func (c *Client) Detail(ctx context.Context, id string) (*Detail, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("invalid opportunity id %q", id)
	}

	var resp detailResponse
	if err := c.post(ctx, "/fetchOpportunity", map[string]int{"opportunityId": n}, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != 0 {
		return nil, fmt.Errorf("%w %d: %s", ErrAPI, resp.ErrorCode, resp.Msg)
	}

	d := &Detail{}
	if syn := resp.Data.Synopsis; syn != nil {
		d.Description = HTMLToText(syn.SynopsisDesc, DescriptionLimit)
		d.AwardCeiling = syn.AwardCeiling.String()
		d.AwardFloor = syn.AwardFloor.String()
		d.CostSharing = syn.CostSharing.String()
	}
	return d, nil
}

// Enricher fetches details for many hits with bounded concurrency.
type Enricher struct {
	client      *Client
	concurrency int
}

func NewEnricher(client *Client, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Enricher{client: client, concurrency: concurrency}
}

// Enrich returns details keyed by hit id. A hit whose lookup fails is logged
// and left out; only cancellation of ctx is returned as an error.
func (e *Enricher) Enrich(ctx context.Context, hits []Hit) (map[string]*Detail, error) {
	results := make([]*Detail, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, h := range hits {
		i, h := i, h
		g.Go(func() error {
			d, err := e.client.Detail(gctx, h.ID.String())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.IncrCounter("fetch.enrich_failed")
				logger.Warn("enrichment failed", logger.Fields{
					"id":    h.ID.String(),
					"error": err.Error(),
				})
				return nil
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enriching opportunities: %w", err)
	}

	details := make(map[string]*Detail, len(hits))
	for i, d := range results {
		if d != nil {
			details[hits[i].ID.String()] = d
		}
	}
	logger.AddCounter("fetch.enriched", int64(len(details)))
	return details, nil
}

// HTMLToText strips markup, collapses whitespace and truncates to limit runes.
func HTMLToText(html string, limit int) string {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		// keep block boundaries as word breaks
		doc.Find("br").ReplaceWithHtml(" ")
		doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").AppendHtml(" ")
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	if limit > 0 {
		if r := []rune(text); len(r) > limit {
			text = strings.TrimSpace(string(r[:limit]))
		}
	}
	return text
}
