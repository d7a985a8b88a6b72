package classify

import "testing"

func TestExtractEntities_Regulations(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"what does the FDA require", []string{"FDA"}},
		{"21 CFR part 820 requirements", []string{"FDA"}},
		{"EU MDR classification rules", []string{"EU MDR"}},
		{"compare ISO 13485 and ISO 14971", []string{"ISO 13485", "ISO 14971"}},
		{"hipaa and gdpr overlap", []string{"HIPAA", "GDPR"}},
		{"how do I make coffee", nil},
	}

	for _, tt := range tests {
		got := ExtractEntities(tt.query)
		if len(got.Regulations) != len(tt.want) {
			t.Errorf("%q: regulations = %v, want %v", tt.query, got.Regulations, tt.want)
			continue
		}
		for i := range tt.want {
			if got.Regulations[i] != tt.want[i] {
				t.Errorf("%q: regulations[%d] = %q, want %q", tt.query, i, got.Regulations[i], tt.want[i])
			}
		}
	}
}

func TestExtractEntities_DeviceTypes(t *testing.T) {
	got := ExtractEntities("software for a pacemaker and an insulin pump")
	if len(got.DeviceTypes) != 2 {
		t.Fatalf("deviceTypes = %v, want 2 entries", got.DeviceTypes)
	}
}

func TestExtractEntities_DateRange(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"recalls from last week", "last week"},
		{"changes in the last 30 days", "last 30 days"},
		{"this month's updates", "this month"},
		{"guidance from June 2024", "June 2024"},
		{"what happened in 2023", "2023"},
		{"no dates in here", ""},
	}

	for _, tt := range tests {
		got := ExtractEntities(tt.query)
		if got.DateRange != tt.want {
			t.Errorf("%q: dateRange = %q, want %q", tt.query, got.DateRange, tt.want)
		}
	}
}

func TestBackfillEntities(t *testing.T) {
	entities := map[string]any{
		"templateType": nil,
		"regulation":   nil,
		"deviceType":   "pacemaker",
		"dateRange":    "null",
	}
	backfillEntities(entities, "FDA risk analysis for a pacemaker, updated 2024")

	if entities["regulation"] != "FDA" {
		t.Errorf("regulation = %v, want backfilled FDA", entities["regulation"])
	}
	if entities["deviceType"] != "pacemaker" {
		t.Errorf("deviceType = %v, model-provided value must win", entities["deviceType"])
	}
	if entities["dateRange"] != "2024" {
		t.Errorf("dateRange = %v, want backfilled 2024", entities["dateRange"])
	}
}
