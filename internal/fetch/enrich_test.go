package fetch

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEnrich(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &fakeAPI{
		hits: makeHits(3),
		details: map[int]string{
			1000: `{"synopsisDesc":"<p>Funds <b>solar</b> pilots.</p><p>Second&nbsp;para</p>","awardCeiling":"1500000","awardFloor":250000,"costSharing":true}`,
			1001: `{"synopsisDesc":"plain","awardCeiling":null,"awardFloor":"","costSharing":"No"}`,
			// 1002 is missing and fails
		},
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newTestClient(srv.URL)
	hits, err := client.Search(context.Background(), Query{Keyword: "solar", Max: 3})
	require.NoError(t, err)

	details, err := NewEnricher(client, 2).Enrich(context.Background(), hits)
	require.NoError(t, err)
	require.Len(t, details, 2)

	first := details["1000"]
	require.NotNil(t, first)
	assert.Equal(t, "Funds solar pilots. Second para", first.Description)
	assert.Equal(t, "1500000", first.AwardCeiling)
	assert.Equal(t, "250000", first.AwardFloor)
	assert.Equal(t, "true", first.CostSharing)

	assert.Equal(t, "No", details["1001"].CostSharing)
	assert.Nil(t, details["1002"])
}

func TestEnrich_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &fakeAPI{hits: makeHits(2), details: map[int]string{}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hits := []Hit{{ID: "1000"}, {ID: "1001"}}
	_, err := NewEnricher(newTestClient(srv.URL), 4).Enrich(ctx, hits)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"plain", "hello   world", 0, "hello world"},
		{"markup", "<div>one<br>two</div><ul><li>a</li><li>b</li></ul>", 0, "one two a b"},
		{"entities", "R&amp;D &lt;tech&gt;", 0, "R&D <tech>"},
		{"truncates runes", strings.Repeat("é", 600), 500, strings.Repeat("é", 500)},
		{"empty", "", 500, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in, tt.limit))
		})
	}
}
