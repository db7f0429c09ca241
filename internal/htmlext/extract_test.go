package htmlext

import (
	"strings"
	"testing"
)

func TestExtractBulletsFiltersNavigationNoise(t *testing.T) {
	html := `<html><body>
<h1>RC-Akku 7,2 V 5200 mAh</h1>
<ul class="features">
<li>Drücken Sie die Eingabetaste, um zur nächsten Seite zu gelangen</li>
<li>Integrierter LED-Indikator zur Ladestandsanzeige</li>
</ul>
</body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Bullets) != 1 {
		t.Fatalf("bullets=%v", page.Bullets)
	}
	if page.Bullets[0] != "Integrierter LED-Indikator zur Ladestandsanzeige" {
		t.Fatalf("bullet=%q", page.Bullets[0])
	}
}

func TestExtractBulletsFallbackScansPlainListItems(t *testing.T) {
	html := `<html><body>
<ul>
<li>Warenkorb anzeigen</li>
<li>Schnellladefähig in unter zwei Stunden</li>
<li>kurz</li>
</ul>
</body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Bullets) != 1 || page.Bullets[0] != "Schnellladefähig in unter zwei Stunden" {
		t.Fatalf("bullets=%v", page.Bullets)
	}
}

func TestExtractTitlePriority(t *testing.T) {
	page, err := NewExtractor().Extract(`<html><head><title>Shop</title></head><body><h2>Akku Pack</h2></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if page.Title == nil || *page.Title != "Akku Pack" {
		t.Fatalf("title=%v", page.Title)
	}
}

func TestExtractTechFromTableWithUnitNormalization(t *testing.T) {
	html := `<html><body>
<table>
<tr><th>Spannung</th><td>7,2 V</td></tr>
<tr><th>Gewicht</th><td>0.102 kg</td></tr>
<tr><th>Abmessungen</th><td>5.7 × 2 × 6.9 cm</td></tr>
</table>
</body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if page.Tech["voltage"] != "7,2 V" {
		t.Fatalf("voltage=%q", page.Tech["voltage"])
	}
	if page.Tech["weight"] != "102 g" {
		t.Fatalf("weight=%q", page.Tech["weight"])
	}
	if page.Tech["size"] != "57 × 20 × 69 mm" {
		t.Fatalf("size=%q", page.Tech["size"])
	}
	if page.SupplierTableHTML == nil || !strings.Contains(*page.SupplierTableHTML, "<table") {
		t.Fatalf("supplierTableHtml=%v", page.SupplierTableHTML)
	}
}

func TestExtractTechTextFallback(t *testing.T) {
	html := `<html><body>
<h1>Akku Pack</h1>
<p>Weitere Informationen</p>
<p>Entladestrom: 30 A</p>
</body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if page.Tech["dischargeCurrent"] != "30 A" {
		t.Fatalf("dischargeCurrent=%q", page.Tech["dischargeCurrent"])
	}
}

func TestExtractTechTitleFallback(t *testing.T) {
	html := `<html><body><h1>RC-Akku 7,2 V 5200 mAh Stick Pack</h1></body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if page.Tech["voltage"] != "7,2 V" {
		t.Fatalf("voltage=%q", page.Tech["voltage"])
	}
	if page.Tech["capacity"] != "5200 mAh" {
		t.Fatalf("capacity=%q", page.Tech["capacity"])
	}
}

func TestExtractTableStagesWinOverText(t *testing.T) {
	html := `<html><body>
<table><tr><th>Spannung</th><td>7,2 V</td></tr></table>
<p>Spannung: 11,1 V</p>
</body></html>`

	page, err := NewExtractor().Extract(html)
	if err != nil {
		t.Fatal(err)
	}
	if page.Tech["voltage"] != "7,2 V" {
		t.Fatalf("voltage=%q", page.Tech["voltage"])
	}
}
