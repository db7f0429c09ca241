package pdfext

import (
	"fmt"
	"regexp"
	"strings"

	"foxfeed/internal"
	"foxfeed/internal/util"
)

const defaultDeliveryQuantity = "1 Stück"

var (
	eanPattern         = regexp.MustCompile(`\b\d{13}\b`)
	hyphenGroupPattern = regexp.MustCompile(`\b\d+(?:-\d+)+\b`)
	bareArticlePattern = regexp.MustCompile(`\b\d{8,10}\b`)
	articleShape       = regexp.MustCompile(`^\d{8,10}$`)

	// two-decimal tokens in either locale, optional trailing currency
	pricePattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})*,\d{2}\b|\b\d+\.\d{2}\b`)

	vePattern = regexp.MustCompile(`\bVE[:\s]+(\S+)`)

	namePattern = regexp.MustCompile(`[A-Za-zÄÖÜäöüß][A-Za-zÄÖÜäöüß0-9 ./+&-]{3,98}[A-Za-zÄÖÜäöüß0-9]`)

	deliveryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)er\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*Stück\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*Karton\b`),
		regexp.MustCompile(`(?i)\b(\d+)\s*Pack\b`),
	}
	deliveryFormats = []string{"%ser", "%s Stück", "%s Karton", "%s Pack"}

	rowStopwords = []*regexp.Regexp{
		regexp.MustCompile(`\bVE\b`),
		regexp.MustCompile(`\bEK\b`),
		regexp.MustCompile(`\bUEVP\b`),
		regexp.MustCompile(`\bUVP\b`),
		regexp.MustCompile(`\bEAN\b`),
		regexp.MustCompile(`(?i)\bStück\b`),
		regexp.MustCompile(`€|EUR`),
	}

	// legal/navigational boilerplate that disqualifies a row outright
	boilerplateTokens = []string{
		"agb", "impressum", "datenschutz", "cookie", "widerruf",
		"kontakt", "newsletter", "sitemap", "login", "mein konto",
		"versandkosten", "zahlungsarten", "terms", "privacy", "imprint",
	}
)

// ParseRow turns one reconstructed row into a candidate product record.
// Every field is recovered independently, first matching pattern wins;
// rows that fail the product filter yield nil.
func ParseRow(text string, url *string) *internal.ExtractedRecord {
	compact := util.NormalizeSpaces(text)
	if compact == "" {
		return nil
	}

	article, articleRaw := findArticleNumber(compact)
	ean := eanPattern.FindString(compact)
	prices := pricePattern.FindAllString(compact, -1)

	rec := &internal.ExtractedRecord{}
	rec.URL = url
	if article != "" {
		rec.ArticleNumber = util.StringPtr(article)
		if articleRaw != article {
			rec.ManufacturerArticleNumber = util.StringPtr(articleRaw)
		}
	}
	if ean != "" {
		rec.EANCode = util.StringPtr(ean)
	}

	// the final price token is conventionally the list price (UEVP) and
	// must not be mistaken for the purchase price
	switch {
	case len(prices) >= 2:
		rec.EKPrice = util.StringPtr(prices[len(prices)-2])
	case len(prices) == 1:
		rec.EKPrice = util.StringPtr(prices[0])
	}

	brand := ""
	if fields := strings.Fields(compact); len(fields) > 0 {
		brand = fields[0]
		rec.Marke = util.StringPtr(brand)
	}

	rec.ProductName = extractName(compact, brand, articleRaw, ean, prices)
	rec.Liefermenge, rec.LiefermengeDefaulted = extractDeliveryQuantity(compact)
	if m := vePattern.FindStringSubmatch(compact); m != nil {
		rec.VE = util.StringPtr(m[1])
	}

	if url != nil {
		rec.Confidence = 0.9
	} else {
		rec.Confidence = 0.6
	}

	if !isValidProduct(rec) {
		return nil
	}
	return rec
}

func findArticleNumber(text string) (normalized, raw string) {
	for _, m := range hyphenGroupPattern.FindAllString(text, -1) {
		stripped := strings.ReplaceAll(m, "-", "")
		if articleShape.MatchString(stripped) {
			return stripped, m
		}
	}
	// \b keeps 8-10 digit spans inside a 13-digit EAN from matching
	if m := bareArticlePattern.FindString(text); m != "" {
		return m, m
	}
	return "", ""
}

// extractName recovers the free-text name by removal: everything already
// claimed by another pattern is stripped and the longest alphabetic
// residue survives.
func extractName(compact, brand, articleRaw, ean string, prices []string) string {
	residue := compact
	for _, tok := range prices {
		residue = strings.Replace(residue, tok, " ", 1)
	}
	if articleRaw != "" {
		residue = strings.Replace(residue, articleRaw, " ", 1)
	}
	if ean != "" {
		residue = strings.Replace(residue, ean, " ", 1)
	}
	if brand != "" {
		residue = strings.Replace(residue, brand, " ", 1)
	}
	for _, re := range rowStopwords {
		residue = re.ReplaceAllString(residue, " ")
	}
	residue = util.NormalizeSpaces(residue)

	best := ""
	for _, m := range namePattern.FindAllString(residue, -1) {
		m = strings.TrimSpace(m)
		n := len([]rune(m))
		if n >= 5 && n <= 100 && n > len([]rune(best)) {
			best = m
		}
	}
	if best == "" {
		return "Unknown Product"
	}
	return best
}

func extractDeliveryQuantity(text string) (string, bool) {
	for i, re := range deliveryPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return fmt.Sprintf(deliveryFormats[i], m[1]), false
		}
	}
	return defaultDeliveryQuantity, true
}

// isValidProduct drops rows without any identifier and rows whose name or
// URL is legal/navigational boilerplate. This is noise suppression, not
// an error path.
func isValidProduct(rec *internal.ExtractedRecord) bool {
	if rec.ArticleNumber == nil && rec.EANCode == nil {
		return false
	}
	probe := strings.ToLower(rec.ProductName)
	if rec.URL != nil {
		probe += " " + strings.ToLower(*rec.URL)
	}
	for _, tok := range boilerplateTokens {
		if strings.Contains(probe, tok) {
			return false
		}
	}
	return true
}
