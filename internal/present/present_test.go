package present

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

func ranked(n int) []*triage.Scored {
	rows := make([]*triage.Scored, n)
	deadline := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = &triage.Scored{
			Record: &opportunity.Record{
				GrantName: fmt.Sprintf("Grant %d", i+1),
				Sponsor:   "DOE",
				Link:      fmt.Sprintf("https://x/%d", i+1),
				Deadline:  &deadline,
				Row:       i,
			},
			Score:     float64(100 - i),
			Rank:      i + 1,
			Partition: triage.Clean,
		}
	}
	return rows
}

func readZip(t *testing.T, b []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func wellFormed(t *testing.T, name, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err, name)
	}
}

func TestDeck(t *testing.T) {
	rows := ranked(3)
	rows[1].GrantName = `R&D <Pilot> "Phase 2"`

	var buf bytes.Buffer
	require.NoError(t, NewDeck(50).Render(&buf, rows))

	files := readZip(t, buf.Bytes())
	for _, name := range []string{
		"[Content_Types].xml", "_rels/.rels", "ppt/presentation.xml",
		"ppt/slideMasters/slideMaster1.xml", "ppt/slideLayouts/slideLayout1.xml", "ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml", "ppt/slides/slide4.xml", "ppt/slides/_rels/slide4.xml.rels",
	} {
		require.Contains(t, files, name)
	}
	assert.NotContains(t, files, "ppt/slides/slide5.xml")

	for name, body := range files {
		wellFormed(t, name, body)
	}

	assert.Contains(t, files["ppt/slides/slide1.xml"], "EQORE Funding Deck")
	assert.Contains(t, files["ppt/slides/slide2.xml"], "1. Grant 1")
	assert.Contains(t, files["ppt/slides/slide2.xml"], "Deadline: 2099-01-01")
	assert.Contains(t, files["ppt/slides/slide2.xml"], "Score: 100")
	assert.Contains(t, files["ppt/slides/slide3.xml"], "R&amp;D &lt;Pilot&gt;")
	assert.Equal(t, 4, strings.Count(files["ppt/presentation.xml"], "<p:sldId "))
}

func TestDeck_Max(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDeck(2).Render(&buf, ranked(10)))

	files := readZip(t, buf.Bytes())
	assert.Contains(t, files, "ppt/slides/slide3.xml")
	assert.NotContains(t, files, "ppt/slides/slide4.xml")
}

func TestDeck_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, NewDeck(50).Render(&a, ranked(5)))
	require.NoError(t, NewDeck(50).Render(&b, ranked(5)))
	assert.True(t, bytes.Equal(a.Bytes(), b.Bytes()))
}

var pageObject = regexp.MustCompile(`/Type /Page[^s]`)

func TestOnePager(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOnePager(5).Render(&buf, ranked(20)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "%%EOF")
	assert.Len(t, pageObject.FindAllString(out, -1), 1)
}

func TestOnePager_PageBreak(t *testing.T) {
	rows := ranked(120)
	rows[0].GrantName = "Überförderung für Forschung"

	var buf bytes.Buffer
	require.NoError(t, NewOnePager(120).Render(&buf, rows))
	assert.Greater(t, len(pageObject.FindAllString(buf.String(), -1)), 1)
}

func TestDryRun(t *testing.T) {
	var buf bytes.Buffer
	var r Renderer = NewDryRun(FileDeck, 2)
	require.NoError(t, r.Render(&buf, ranked(4)))

	out := buf.String()
	assert.Contains(t, out, "EQORE_Deck.pptx (dry run, 2 opportunities)")
	assert.Contains(t, out, "1. Grant 1 | DOE | deadline 2099-01-01 | score 100")
	assert.NotContains(t, out, "Grant 3")
}

func TestRenderersImplementInterface(t *testing.T) {
	for _, r := range []Renderer{NewDeck(0), NewOnePager(0), NewDryRun("x", 0), NewCalendar(0, time.Time{})} {
		var buf bytes.Buffer
		assert.NoError(t, r.Render(&buf, nil))
	}
	assert.Equal(t, DefaultDeck, NewDeck(0).Max)
	assert.Equal(t, DefaultPDF, NewOnePager(-1).Max)
}

func TestCalendar(t *testing.T) {
	rows := ranked(3)
	rows[1].Deadline = nil
	rows[2].GrantName = "Solar, Wind; Storage"
	stamp := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, NewCalendar(0, stamp).Render(&buf, rows))
	ics := buf.String()

	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"), "rows without a deadline are skipped")
	assert.Contains(t, ics, "DTSTAMP:20240601T000000Z")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20990101")
	assert.Contains(t, ics, "DTEND;VALUE=DATE:20990102")
	assert.Contains(t, ics, "SUMMARY:Deadline: Grant 1")
	assert.Contains(t, ics, `SUMMARY:Deadline: Solar\, Wind\; Storage`)
	assert.Contains(t, ics, "URL:https://x/3")
	assert.NotContains(t, ics, "Grant 2")

	var again bytes.Buffer
	require.NoError(t, NewCalendar(0, stamp).Render(&again, rows))
	assert.Equal(t, ics, again.String(), "event ids and stamp are stable")
}

func TestCalendar_Max(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCalendar(2, time.Time{}).Render(&buf, ranked(5)))
	assert.Equal(t, 2, strings.Count(buf.String(), "BEGIN:VEVENT"))
}

func TestEscapeICS(t *testing.T) {
	assert.Equal(t, `a\\b\,c\;d\ne`, escapeICS("a\\b,c;d\ne"))
}
