package pdfext

import (
	"math"
	"sort"
	"strings"
)

// TextRun is one positioned text fragment from a page's text layer.
type TextRun struct {
	Text string
	X, Y float64
}

// LinkAnnotation is a clickable region from a page's annotation layer.
type LinkAnnotation struct {
	URL            string
	X0, Y0, X1, Y1 float64
}

// Row is the unit the row parser consumes: the joined text of one visual
// table row, plus the link target when the row carries one.
type Row struct {
	Text string
	URL  string
}

// Layout groups text runs into rows. Tolerance is the Y window used both
// to attach runs to a link annotation and to exclude already-claimed
// bands; BucketSize is the rounding step for the URL-less pass.
type Layout struct {
	Tolerance  float64
	BucketSize float64
}

func NewLayout() Layout {
	return Layout{Tolerance: 15, BucketSize: 5}
}

// ReconstructRows runs the two-pass banding algorithm. Link-bearing rows
// are recovered first and claim their Y band; remaining runs are bucketed
// by rounded Y and only kept when they look like a product row. A text
// run joins at most one row per pass.
func (l Layout) ReconstructRows(runs []TextRun, links []LinkAnnotation) []Row {
	tol := l.Tolerance
	if tol <= 0 {
		tol = 15
	}
	bucket := l.BucketSize
	if bucket <= 0 {
		bucket = 5
	}

	rows := make([]Row, 0)
	claimed := make([]float64, 0, len(links))
	used := make([]bool, len(runs))

	for _, link := range links {
		mid := (link.Y0 + link.Y1) / 2

		selected := make([]int, 0, 8)
		for i, run := range runs {
			if used[i] {
				continue
			}
			if math.Abs(run.Y-mid) <= tol {
				selected = append(selected, i)
			}
		}
		if len(selected) == 0 {
			continue
		}

		sort.Slice(selected, func(a, b int) bool { return runs[selected[a]].X < runs[selected[b]].X })
		parts := make([]string, 0, len(selected))
		for _, i := range selected {
			used[i] = true
			parts = append(parts, strings.TrimSpace(runs[i].Text))
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		rows = append(rows, Row{Text: text, URL: link.URL})
		claimed = append(claimed, mid)
	}

	buckets := map[float64][]int{}
	for i, run := range runs {
		if used[i] {
			continue
		}
		key := math.Round(run.Y/bucket) * bucket
		buckets[key] = append(buckets[key], i)
	}

	keys := make([]float64, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	// top of page first; PDF Y grows upward
	sort.Sort(sort.Reverse(sort.Float64Slice(keys)))

	for _, key := range keys {
		if withinClaimedBand(claimed, key, tol) {
			continue
		}
		idxs := buckets[key]
		sort.Slice(idxs, func(a, b int) bool { return runs[idxs[a]].X < runs[idxs[b]].X })
		parts := make([]string, 0, len(idxs))
		for _, i := range idxs {
			parts = append(parts, strings.TrimSpace(runs[i].Text))
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" || !looksLikeProductRow(text) {
			continue
		}
		rows = append(rows, Row{Text: text})
	}

	return rows
}

func withinClaimedBand(claimed []float64, y, tol float64) bool {
	for _, band := range claimed {
		if math.Abs(band-y) <= tol {
			return true
		}
	}
	return false
}

// looksLikeProductRow is the validation bar for rows recovered without a
// link: an article-shaped token, an EAN-shaped token and a decimal price
// token must all be present.
func looksLikeProductRow(text string) bool {
	if eanPattern.FindString(text) == "" {
		return false
	}
	if article, _ := findArticleNumber(text); article == "" {
		return false
	}
	return len(pricePattern.FindAllString(text, -1)) > 0
}
