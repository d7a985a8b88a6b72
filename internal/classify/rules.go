package classify

import "regexp"

// Confidence levels produced by the keyword pass. A specific template name
// always scores above the generic template keyword, which scores above an
// alert match's score floor for redirecting.
const (
	ConfidenceSpecificTemplate = 0.9
	ConfidenceGenericTemplate  = 0.75
	ConfidenceAlert            = 0.8
	ConfidenceChat             = 0.6
)

// templateRule maps a template-intent pattern to the template type it names.
// Rules are evaluated in order; the first match wins.
type templateRule struct {
	re *regexp.Regexp
	// templateType is empty when only the generic template keyword matched.
	templateType string
}

var templateRules = []templateRule{
	{regexp.MustCompile(`(?i)\bdhf\b|design history file`), "DHF"},
	{regexp.MustCompile(`(?i)\bsop\b|standard operating procedure`), "SOP"},
	{regexp.MustCompile(`(?i)\bcapa\b|corrective.*preventive`), "CAPA"},
	{regexp.MustCompile(`(?i)\brmf\b|risk management file`), "RMF"},
	{regexp.MustCompile(`(?i)\bdmr\b|device master record`), "DMR"},
	{regexp.MustCompile(`(?i)\bqms\b|quality management system`), "QMS"},
	{regexp.MustCompile(`(?i)iec\s*62304`), "IEC 62304"},
	{regexp.MustCompile(`(?i)template|form|checklist|document\s+template`), ""},
}

// alertRules match queries asking about regulatory alerts, updates, or news.
// Template rules are checked first, so a query matching both categories
// routes to templates.
var alertRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\balert`),
	regexp.MustCompile(`(?i)\bupdate`),
	regexp.MustCompile(`(?i)\brecall`),
	regexp.MustCompile(`(?i)\bwarning`),
	regexp.MustCompile(`(?i)\bnotification`),
	regexp.MustCompile(`(?i)\bnews\b`),
	regexp.MustCompile(`(?i)\bchanges?\s+to\b`),
	regexp.MustCompile(`(?i)last\s+(week|month|day)`),
	regexp.MustCompile(`(?i)recent\s+(changes?|updates?)`),
}

// alertDatePattern pulls a date phrase out of an alert query.
var alertDatePattern = regexp.MustCompile(`(?i)(last\s+\w+|yesterday|today|this\s+\w+|\d{4}|january|february|march|april|may|june|july|august|september|october|november|december)`)
