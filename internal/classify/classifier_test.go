package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/regsense/assistant-gateway/internal/types"
)

// fakeGenerator is a scripted escalation backend.
type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Name() string { return "openai" }

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestClassify_SpecificTemplates(t *testing.T) {
	tests := []struct {
		query        string
		templateType string
	}{
		{"Need a DHF template for a device", "DHF"},
		{"where is the design history file", "DHF"},
		{"show me an SOP", "SOP"},
		{"standard operating procedure for sterilization", "SOP"},
		{"open a CAPA", "CAPA"},
		{"corrective and preventive action record", "CAPA"},
		{"RMF please", "RMF"},
		{"risk management file contents", "RMF"},
		{"DMR structure", "DMR"},
		{"device master record", "DMR"},
		{"QMS documentation", "QMS"},
		{"quality management system structure", "QMS"},
		{"IEC 62304 lifecycle", "IEC 62304"},
		{"iec62304 classes", "IEC 62304"},
	}

	c := New(nil)
	for _, tt := range tests {
		got := c.Classify(context.Background(), tt.query)
		if got.IntendedPage != types.PageTemplates {
			t.Errorf("%q: page = %q, want templates", tt.query, got.IntendedPage)
		}
		if got.Flow != types.FlowStructuredPage {
			t.Errorf("%q: flow = %q, want C", tt.query, got.Flow)
		}
		if got.Confidence < ConfidenceSpecificTemplate {
			t.Errorf("%q: confidence = %f, want >= %f", tt.query, got.Confidence, ConfidenceSpecificTemplate)
		}
		if got.Entities["templateType"] != tt.templateType {
			t.Errorf("%q: templateType = %v, want %q", tt.query, got.Entities["templateType"], tt.templateType)
		}
	}
}

func TestClassify_GenericTemplateKeyword(t *testing.T) {
	c := New(nil)
	query := "do you have a checklist for audits"
	got := c.Classify(context.Background(), query)

	if got.IntendedPage != types.PageTemplates {
		t.Fatalf("page = %q, want templates", got.IntendedPage)
	}
	if got.Confidence != ConfidenceGenericTemplate {
		t.Errorf("confidence = %f, want exactly %f", got.Confidence, ConfidenceGenericTemplate)
	}
	if got.Confidence >= ConfidenceSpecificTemplate {
		t.Error("generic match must score strictly below a specific-type match")
	}
	// With no specific type, the raw query seeds the template search.
	if got.Entities["templateType"] != query {
		t.Errorf("templateType = %v, want raw query", got.Entities["templateType"])
	}
}

func TestClassify_Alerts(t *testing.T) {
	c := New(nil)

	tests := []struct {
		query     string
		dateRange any
	}{
		{"any recalls last week?", "last week"},
		{"show me FDA warning letters", nil},
		{"recent changes to EU MDR", nil},
		{"notifications from 2024", "2024"},
	}

	for _, tt := range tests {
		got := c.Classify(context.Background(), tt.query)
		if got.IntendedPage != types.PageAlerts {
			t.Errorf("%q: page = %q, want alerts", tt.query, got.IntendedPage)
		}
		if got.Flow != types.FlowStructuredPage {
			t.Errorf("%q: flow = %q, want C", tt.query, got.Flow)
		}
		if got.Confidence != ConfidenceAlert {
			t.Errorf("%q: confidence = %f, want %f", tt.query, got.Confidence, ConfidenceAlert)
		}
		if got.Entities["dateRange"] != tt.dateRange {
			t.Errorf("%q: dateRange = %v, want %v", tt.query, got.Entities["dateRange"], tt.dateRange)
		}
		if got.Entities["query"] != tt.query {
			t.Errorf("%q: entities.query not carried through", tt.query)
		}
	}
}

func TestClassify_DefaultsToChat(t *testing.T) {
	c := New(nil)
	got := c.Classify(context.Background(), "What are my obligations under ISO 14971?")

	if got.IntendedPage != types.PageChat {
		t.Errorf("page = %q, want chat", got.IntendedPage)
	}
	if got.Flow != types.FlowConversational {
		t.Errorf("flow = %q, want A", got.Flow)
	}
	if got.Confidence != ConfidenceChat {
		t.Errorf("confidence = %f, want %f", got.Confidence, ConfidenceChat)
	}
	if len(got.Entities) != 0 {
		t.Errorf("entities = %v, want empty", got.Entities)
	}
}

func TestClassify_TemplatesWinOverAlerts(t *testing.T) {
	// Matches both a template type and an alert keyword; the template table
	// runs first.
	c := New(nil)
	got := c.Classify(context.Background(), "any updates to the DHF checklist?")
	if got.IntendedPage != types.PageTemplates {
		t.Errorf("page = %q, want templates (template rules take priority)", got.IntendedPage)
	}
}

func TestClassify_HighConfidenceSkipsEscalation(t *testing.T) {
	gen := &fakeGenerator{response: `{"intent":"chat","confidence":0.99,"entities":{}}`}
	c := New(gen)

	got := c.Classify(context.Background(), "Need a DHF template")
	if got.IntendedPage != types.PageTemplates {
		t.Fatalf("page = %q, want templates", got.IntendedPage)
	}
	if gen.calls != 0 {
		t.Errorf("escalation was invoked %d times despite confidence >= 0.8", gen.calls)
	}
}

func TestClassify_EscalationParsed(t *testing.T) {
	gen := &fakeGenerator{response: `Here is my analysis:
{"intent":"alerts","confidence":0.85,"entities":{"dateRange":"June 2024","regulation":null}}`}
	c := New(gen)

	got := c.Classify(context.Background(), "anything interesting happen around june?")
	if gen.calls != 1 {
		t.Fatalf("expected 1 escalation call, got %d", gen.calls)
	}
	if got.IntendedPage != types.PageAlerts {
		t.Errorf("page = %q, want alerts", got.IntendedPage)
	}
	if got.Flow != types.FlowStructuredPage {
		t.Errorf("flow = %q, want C", got.Flow)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %f, want 0.85", got.Confidence)
	}
	if got.Entities["dateRange"] != "June 2024" {
		t.Errorf("dateRange = %v, want June 2024", got.Entities["dateRange"])
	}
}

func TestClassify_EscalationFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"network error", &fakeGenerator{err: errors.New("connection refused")}},
		{"no JSON", &fakeGenerator{response: "I cannot classify that."}},
		{"malformed JSON", &fakeGenerator{response: `{"intent": "alerts", "confidence":`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.gen)
			got := c.Classify(context.Background(), "tell me about sterilization validation")
			// Keyword result must come back untouched.
			if got.IntendedPage != types.PageChat {
				t.Errorf("page = %q, want chat fallback", got.IntendedPage)
			}
			if got.Confidence != ConfidenceChat {
				t.Errorf("confidence = %f, want %f", got.Confidence, ConfidenceChat)
			}
		})
	}
}

func TestClassify_EscalationUnknownIntent(t *testing.T) {
	gen := &fakeGenerator{response: `{"intent":"banana","confidence":0.9,"entities":{}}`}
	c := New(gen)

	got := c.Classify(context.Background(), "some ambiguous request")
	if got.IntendedPage != types.PageChat {
		t.Errorf("page = %q, want chat for unknown intent", got.IntendedPage)
	}
	if got.Flow != types.FlowConversational {
		t.Errorf("flow = %q, want A for unknown intent", got.Flow)
	}
}

func TestClassify_EscalationMissingConfidence(t *testing.T) {
	gen := &fakeGenerator{response: `{"intent":"templates","entities":{}}`}
	c := New(gen)

	got := c.Classify(context.Background(), "something vaguely documenty")
	if got.Confidence != 0.7 {
		t.Errorf("confidence = %f, want default 0.7", got.Confidence)
	}
	if got.IntendedPage != types.PageTemplates {
		t.Errorf("page = %q, want templates", got.IntendedPage)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`, true},
		{`{"a":"brace } in string"}`, `{"a":"brace } in string"}`, true},
		{`{"a":"escaped \" quote}"}`, `{"a":"escaped \" quote}"}`, true},
		{`no braces here`, ``, false},
		{`{"unterminated":`, ``, false},
		{`{"first":1} {"second":2}`, `{"first":1}`, true},
	}

	for _, tt := range tests {
		got, ok := extractJSONObject(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("extractJSONObject(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
