package pdfext

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"foxfeed/internal"
	"foxfeed/internal/util"
)

// CatalogExtraction partitions recovered records by whether the source
// row carried a live link.
type CatalogExtraction struct {
	WithURL       []internal.ExtractedRecord
	WithoutURL    []internal.ExtractedRecord
	TotalProducts int
}

type Extractor struct {
	layout Layout
}

func NewExtractor(tolerance, bucketSize float64) *Extractor {
	layout := NewLayout()
	if tolerance > 0 {
		layout.Tolerance = tolerance
	}
	if bucketSize > 0 {
		layout.BucketSize = bucketSize
	}
	return &Extractor{layout: layout}
}

// ExtractCatalog drives the layout reconstructor and row parser across
// all pages. A corrupt document fails the call; a single malformed page
// only loses that page.
func (e *Extractor) ExtractCatalog(blob []byte) (CatalogExtraction, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return CatalogExtraction{}, fmt.Errorf("open pdf: %w", err)
	}

	out := CatalogExtraction{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		runs := pageTextRuns(p)
		if len(runs) == 0 {
			continue
		}
		links := pageLinkAnnotations(p)

		for _, row := range e.layout.ReconstructRows(runs, links) {
			var url *string
			if row.URL != "" {
				url = util.StringPtr(row.URL)
			}
			rec := ParseRow(row.Text, url)
			if rec == nil {
				continue
			}
			if url != nil {
				out.WithURL = append(out.WithURL, *rec)
			} else {
				out.WithoutURL = append(out.WithoutURL, *rec)
			}
		}
	}

	out.WithURL = dedupeByURL(out.WithURL)
	out.WithoutURL = dedupeByIdentity(out.WithoutURL)
	out.TotalProducts = len(out.WithURL) + len(out.WithoutURL)
	return out, nil
}

// pageTextRuns reads the text layer and coalesces glyph-level fragments
// into word-level runs: fragments on the same baseline whose X positions
// are contiguous belong to one run.
func pageTextRuns(p pdf.Page) []TextRun {
	const joinGap = 2.0

	content := p.Content()
	out := make([]TextRun, 0, len(content.Text))
	var cur *TextRun
	var curEnd float64

	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		if cur != nil && cur.Y == t.Y && t.X >= curEnd && t.X-curEnd < joinGap {
			cur.Text += t.S
			curEnd = t.X + t.W
			continue
		}
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			out = append(out, *cur)
		}
		cur = &TextRun{Text: t.S, X: t.X, Y: t.Y}
		curEnd = t.X + t.W
	}
	if cur != nil && strings.TrimSpace(cur.Text) != "" {
		out = append(out, *cur)
	}
	return out
}

// pageLinkAnnotations walks the page's Annots array for link annotations
// with an URI action.
func pageLinkAnnotations(p pdf.Page) []LinkAnnotation {
	annots := p.V.Key("Annots")
	if annots.IsNull() || annots.Kind() != pdf.Array {
		return nil
	}

	out := make([]LinkAnnotation, 0, annots.Len())
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.IsNull() || a.Key("Subtype").Name() != "Link" {
			continue
		}
		uri := a.Key("A").Key("URI")
		if uri.IsNull() {
			continue
		}
		target := strings.TrimSpace(uri.RawString())
		if target == "" {
			continue
		}
		rect := a.Key("Rect")
		if rect.Kind() != pdf.Array || rect.Len() < 4 {
			continue
		}
		out = append(out, LinkAnnotation{
			URL: target,
			X0:  rect.Index(0).Float64(),
			Y0:  rect.Index(1).Float64(),
			X1:  rect.Index(2).Float64(),
			Y1:  rect.Index(3).Float64(),
		})
	}
	return out
}

func dedupeByURL(records []internal.ExtractedRecord) []internal.ExtractedRecord {
	seen := map[string]struct{}{}
	out := make([]internal.ExtractedRecord, 0, len(records))
	for _, rec := range records {
		if rec.URL == nil {
			out = append(out, rec)
			continue
		}
		if _, ok := seen[*rec.URL]; ok {
			continue
		}
		seen[*rec.URL] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// dedupeByIdentity keeps the first record per article number or EAN; a
// later record matching either key of an earlier one is a duplicate.
func dedupeByIdentity(records []internal.ExtractedRecord) []internal.ExtractedRecord {
	seenArticle := map[string]struct{}{}
	seenEAN := map[string]struct{}{}
	out := make([]internal.ExtractedRecord, 0, len(records))
	for _, rec := range records {
		dup := false
		if rec.ArticleNumber != nil {
			if _, ok := seenArticle[*rec.ArticleNumber]; ok {
				dup = true
			}
		}
		if !dup && rec.EANCode != nil {
			if _, ok := seenEAN[*rec.EANCode]; ok {
				dup = true
			}
		}
		if dup {
			continue
		}
		if rec.ArticleNumber != nil {
			seenArticle[*rec.ArticleNumber] = struct{}{}
		}
		if rec.EANCode != nil {
			seenEAN[*rec.EANCode] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}
