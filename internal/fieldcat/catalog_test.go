package fieldcat

import "testing"

func TestDiscover(t *testing.T) {
	records := []map[string]any{
		{
			"productName": "Akku Pack",
			"ekPrice":     "12,50",
			"technicalSpecs": map[string]any{
				"voltage": "7,2 V",
			},
			"bullets": []any{"Schnellladefähig", "Hohe Kapazität"},
		},
		{
			"productName": "Ladegerät",
			"confidence":  0.9,
		},
	}

	fields := Discover(records)
	byPath := map[string]FieldInfo{}
	for _, f := range fields {
		byPath[f.Path] = f
	}

	name, ok := byPath["productName"]
	if !ok || name.Count != 2 || name.Frequency != 1.0 || name.Type != "string" {
		t.Fatalf("productName=%+v", name)
	}
	if fields[0].Path != "productName" {
		t.Fatalf("expected productName ranked first, got %q", fields[0].Path)
	}

	voltage, ok := byPath["technicalSpecs.voltage"]
	if !ok || voltage.Count != 1 || voltage.Frequency != 0.5 {
		t.Fatalf("voltage=%+v", voltage)
	}

	bullet, ok := byPath["bullets[0]"]
	if !ok || bullet.Sample != "Schnellladefähig" {
		t.Fatalf("bullets=%+v", bullet)
	}

	conf, ok := byPath["confidence"]
	if !ok || conf.Type != "number" {
		t.Fatalf("confidence=%+v", conf)
	}
}
