package pipeline

import (
	"regexp"
	"strings"
)

type DetectResult struct {
	IsPriceList bool
	Score       float64
	Reason      string
}

var detectKeywords = []string{
	"preisliste", "preis-liste", "katalog", "sortiment",
	"konditionen", "rabatt", "artikelliste", "price list",
}

var eanDetectPattern = regexp.MustCompile(`\b\d{13}\b`)

// DetectPriceList scores whether a mail carries supplier catalog data
// worth extracting. Pure rules, no model call.
func DetectPriceList(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.3
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	eanHits := len(eanDetectPattern.FindAllString(text, 3))
	if eanHits >= 2 {
		score += 0.4
	} else if eanHits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".pdf") {
			score += 0.3
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}

	isPriceList := score >= 0.45
	reason := "rules_negative"
	if isPriceList {
		reason = "rules_positive"
	}

	return DetectResult{IsPriceList: isPriceList, Score: score, Reason: reason}
}
