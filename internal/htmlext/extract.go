package htmlext

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"foxfeed/internal/util"
)

// PageExtraction is the structured result of one supplier product page.
type PageExtraction struct {
	Title             *string
	Bullets           []string
	SupplierTableHTML *string
	Tech              map[string]string
	Description       *string
}

// bulletSelectors is the prioritized list of places suppliers put real
// selling points.
var bulletSelectors = []string{
	".features li",
	".benefits li",
	".product-features li",
	".product-highlights li",
	".product-advantages li",
	"ul.features li",
	".description ul li",
}

var descriptionSelectors = []string{
	".product-description",
	".description",
	"#description",
}

// bulletDenylist covers navigation, account and accessibility phrases
// that supplier shops bury inside list markup. Removal is a first-class
// step: by tag alone these items are indistinguishable from selling
// points.
var bulletDenylist = []string{
	"drücken sie", "eingabetaste", "press enter", "skip to",
	"navigation", "menü", "startseite", "kategorie", "filter",
	"sortier", "warenkorb", "zur kasse", "merkzettel", "wunschliste",
	"vergleichsliste", "anmelden", "registrieren", "passwort",
	"kundenkonto", "mein konto", "newsletter", "cookies", "cookie",
	"impressum", "datenschutz", "agb", "widerruf", "versandkosten",
	"zahlungsarten", "bewertung abgeben", "alle rechte", "zurück zur",
}

// techLabels maps normalized attribute keys to the German labels
// suppliers use for them.
var techLabels = map[string][]string{
	"voltage":          {"spannung", "nennspannung"},
	"capacity":         {"kapazität", "nennkapazität"},
	"dischargeCurrent": {"entladestrom", "dauerstrom", "max. strom"},
	"weight":           {"gewicht"},
	"size":             {"abmessung", "abmessungen", "größe", "maße"},
	"cellType":         {"zellentyp", "zellengröße", "bauform"},
	"connector":        {"stecker", "anschluss", "steckertyp"},
	"chemistry":        {"chemie", "technologie", "zelltechnologie"},
}

// techKeyOrder keeps regex fallback passes deterministic.
var techKeyOrder = []string{
	"voltage", "capacity", "dischargeCurrent", "weight",
	"size", "cellType", "connector", "chemistry",
}

var (
	titleVoltagePattern  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*V\b`)
	titleCapacityPattern = regexp.MustCompile(`(\d+)\s*mAh\b`)
)

// techTextPatterns holds one compiled label-colon-value pattern per
// synonym in techLabels, in techKeyOrder probe order.
var techTextPatterns = func() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(techLabels))
	for key, probes := range techLabels {
		for _, probe := range probes {
			out[key] = append(out[key],
				regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(probe)+`\s*[:\t]\s*([^\n\t]+)`))
		}
	}
	return out
}()

type Extractor struct {
	sanitizer *bluemonday.Policy
}

func NewExtractor() *Extractor {
	policy := bluemonday.UGCPolicy()
	policy.AllowTables()
	return &Extractor{sanitizer: policy}
}

// Extract parses a supplier product page. A document that cannot be
// parsed at all fails the call; everything below that degrades to
// absent fields.
func (e *Extractor) Extract(html string) (PageExtraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageExtraction{}, fmt.Errorf("parse html: %w", err)
	}

	out := PageExtraction{Tech: map[string]string{}}
	out.Title = extractTitle(doc)
	out.Bullets = e.extractBullets(doc)

	if table := doc.Find("table").First(); table.Length() > 0 {
		if raw, err := goquery.OuterHtml(table); err == nil {
			sanitized := strings.TrimSpace(e.sanitizer.Sanitize(raw))
			if sanitized != "" {
				out.SupplierTableHTML = util.StringPtr(sanitized)
			}
		}
	}

	e.extractTechFromTable(doc, out.Tech)
	extractTechFromText(doc.Text(), out.Tech)
	extractTechFromTitle(util.Deref(out.Title), out.Tech)

	out.Description = e.extractDescription(doc)
	return out, nil
}

func extractTitle(doc *goquery.Document) *string {
	for _, sel := range []string{"h1", "h2", "title"} {
		if text := util.NormalizeSpaces(doc.Find(sel).First().Text()); text != "" {
			return util.StringPtr(text)
		}
	}
	return nil
}

func (e *Extractor) extractBullets(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	out := []string{}
	collect := func(_ int, item *goquery.Selection) {
		text := util.NormalizeSpaces(item.Text())
		if !acceptBullet(text) {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}

	for _, sel := range bulletSelectors {
		doc.Find(sel).Each(collect)
	}
	if len(out) > 0 {
		return out
	}

	doc.Find("li").Slice(0, min(doc.Find("li").Length(), 20)).Each(collect)
	return out
}

func acceptBullet(text string) bool {
	n := len([]rune(text))
	if n < 10 || n > 200 {
		return false
	}
	if !strings.Contains(text, " ") {
		return false
	}
	lower := strings.ToLower(text)
	for _, tok := range bulletDenylist {
		if strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}

// extractTechFromTable reads label/value cell pairs of the first table.
// Earlier stages win per attribute, so it only ever fills empty keys.
func (e *Extractor) extractTechFromTable(doc *goquery.Document, tech map[string]string) {
	doc.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th,td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(util.NormalizeSpaces(cells.Eq(0).Text()))
		value := util.NormalizeSpaces(cells.Eq(1).Text())
		if label == "" || value == "" {
			return
		}
		for _, key := range techKeyOrder {
			for _, probe := range techLabels[key] {
				if strings.Contains(label, probe) {
					setTech(tech, key, value)
					return
				}
			}
		}
	})
}

// extractTechFromText scans the flattened page text for label-colon-value
// and tab-separated label pairs (the "Weitere Informationen" block).
func extractTechFromText(flat string, tech map[string]string) {
	for _, key := range techKeyOrder {
		if tech[key] != "" {
			continue
		}
		for _, re := range techTextPatterns[key] {
			if m := re.FindStringSubmatch(flat); m != nil {
				setTech(tech, key, util.NormalizeSpaces(m[1]))
				break
			}
		}
	}
}

// extractTechFromTitle is the last resort for voltage and capacity,
// which suppliers routinely put in the product title itself.
func extractTechFromTitle(title string, tech map[string]string) {
	if title == "" {
		return
	}
	if tech["voltage"] == "" {
		if m := titleVoltagePattern.FindStringSubmatch(title); m != nil {
			setTech(tech, "voltage", m[1]+" V")
		}
	}
	if tech["capacity"] == "" {
		if m := titleCapacityPattern.FindStringSubmatch(title); m != nil {
			setTech(tech, "capacity", m[1]+" mAh")
		}
	}
}

func setTech(tech map[string]string, key, value string) {
	if tech[key] != "" {
		return
	}
	switch key {
	case "weight":
		value = util.NormalizeWeight(value)
	case "size":
		value = util.NormalizeDimensions(value)
	}
	tech[key] = value
}

func (e *Extractor) extractDescription(doc *goquery.Document) *string {
	for _, sel := range descriptionSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		raw, err := goquery.OuterHtml(node)
		if err != nil {
			continue
		}
		md, err := htmltomarkdown.ConvertString(raw)
		if err != nil {
			continue
		}
		md = strings.TrimSpace(md)
		if md != "" {
			return util.StringPtr(md)
		}
	}
	return nil
}
