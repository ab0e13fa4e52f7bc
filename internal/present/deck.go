package present

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Slide geometry in EMU (16:9).
const (
	slideWidth  = 12192000
	slideHeight = 6858000
	margin      = 457200
)

// zipTime is stamped on every part so identical input gives identical bytes.
var zipTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Deck renders a PowerPoint deck: a title slide, then one slide per opportunity.
type Deck struct {
	Max      int
	Title    string
	Subtitle string
}

func NewDeck(limit int) *Deck {
	if limit <= 0 {
		limit = DefaultDeck
	}
	return &Deck{Max: limit, Title: "EQORE Funding Deck", Subtitle: "Auto-generated deck"}
}

type part struct {
	name string
	body string
}

func (d *Deck) Render(w io.Writer, rows []*triage.Scored) error {
	rows = top(rows, d.Max)

	slides := []string{titleSlide(d.Title, fmt.Sprintf("%s: top %d opportunities", d.Subtitle, len(rows)))}
	for _, sc := range rows {
		slides = append(slides, opportunitySlide(sc))
	}

	parts := []part{
		{"[Content_Types].xml", contentTypes(len(slides))},
		{"_rels/.rels", rootRels},
		{"ppt/presentation.xml", presentation(len(slides))},
		{"ppt/_rels/presentation.xml.rels", presentationRels(len(slides))},
		{"ppt/slideMasters/slideMaster1.xml", slideMaster},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRels},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayout},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRels},
		{"ppt/theme/theme1.xml", theme},
	}
	for i, s := range slides {
		parts = append(parts,
			part{fmt.Sprintf("ppt/slides/slide%d.xml", i+1), s},
			part{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), slideRels},
		)
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: zipTime})
		if err != nil {
			return fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing deck: %w", err)
	}
	return nil
}

func titleSlide(title, subtitle string) string {
	return slide(
		textBox(2, "Title", margin, 2286000, slideWidth-2*margin, 1143000, paragraph(title, 4400, true)),
		textBox(3, "Subtitle", margin, 3581400, slideWidth-2*margin, 685800, paragraph(subtitle, 2000, false)),
	)
}

func opportunitySlide(sc *triage.Scored) string {
	body := strings.Join([]string{
		paragraph("Sponsor: "+sc.Sponsor, 2000, false),
		paragraph("Deadline: "+deadlineText(sc), 2000, false),
		paragraph("Score: "+triage.FormatScore(sc.Score), 2000, false),
		paragraph(sc.Link, 1600, false),
	}, "")
	return slide(
		textBox(2, "Title", margin, margin, slideWidth-2*margin, 1143000,
			paragraph(fmt.Sprintf("%d. %s", sc.Rank, sc.GrantName), 3200, true)),
		textBox(3, "Details", margin, 1828800, slideWidth-2*margin, 4114800, body),
	)
}

func slide(shapes ...string) string {
	return xmlHeader + `<p:sld ` + namespaces + `><p:cSld><p:spTree>` + groupProps +
		strings.Join(shapes, "") +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func textBox(id int, name string, x, y, cx, cy int, paragraphs string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, name, x, y, cx, cy, paragraphs)
}

func paragraph(text string, size int, bold bool) string {
	b := "0"
	if bold {
		b = "1"
	}
	return fmt.Sprintf(`<a:p><a:r><a:rPr lang="en-US" sz="%d" b="%s" dirty="0"/><a:t>%s</a:t></a:r></a:p>`, size, b, escape(text))
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
