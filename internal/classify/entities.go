package classify

import "regexp"

// ExtractedEntities holds slot values found by keyword scanning, used to
// backfill escalation results that came back with empty slots.
type ExtractedEntities struct {
	Regulations []string
	DeviceTypes []string
	DateRange   string
}

type regulationRule struct {
	re   *regexp.Regexp
	name string
}

var regulationRules = []regulationRule{
	{regexp.MustCompile(`(?i)fda|21\s*cfr`), "FDA"},
	{regexp.MustCompile(`(?i)eu\s*mdr|mdr\s*2017`), "EU MDR"},
	{regexp.MustCompile(`(?i)iso\s*13485`), "ISO 13485"},
	{regexp.MustCompile(`(?i)iso\s*14971`), "ISO 14971"},
	{regexp.MustCompile(`(?i)iec\s*62304`), "IEC 62304"},
	{regexp.MustCompile(`(?i)hipaa`), "HIPAA"},
	{regexp.MustCompile(`(?i)gdpr`), "GDPR"},
}

var devicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(pacemaker|defibrillator|icd)\b`),
	regexp.MustCompile(`(?i)\b(ventilator|respirator)\b`),
	regexp.MustCompile(`(?i)\b(insulin pump|infusion pump)\b`),
	regexp.MustCompile(`(?i)\b(x-ray|ct scan|mri|imaging)\b`),
	regexp.MustCompile(`(?i)\b(catheter|stent)\b`),
	regexp.MustCompile(`(?i)\b(implant|prosthetic)\b`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)last\s+(week|month|year|day|\d+\s+days?)`),
	regexp.MustCompile(`(?i)this\s+(week|month|year)`),
	regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)\s*\d{4}`),
	regexp.MustCompile(`\d{4}`),
}

// ExtractEntities scans a query for regulations, device types, and a date
// range.
func ExtractEntities(query string) ExtractedEntities {
	var out ExtractedEntities

	for _, rule := range regulationRules {
		if rule.re.MatchString(query) {
			out.Regulations = append(out.Regulations, rule.name)
		}
	}

	for _, re := range devicePatterns {
		if m := re.FindString(query); m != "" {
			out.DeviceTypes = append(out.DeviceTypes, m)
		}
	}

	for _, re := range datePatterns {
		if m := re.FindString(query); m != "" {
			out.DateRange = m
			break
		}
	}

	return out
}

// backfillEntities fills empty slots in an escalation result from keyword
// extraction. Slots the model already filled are left alone.
func backfillEntities(entities map[string]any, query string) {
	extracted := ExtractEntities(query)

	if isEmptySlot(entities["regulation"]) && len(extracted.Regulations) > 0 {
		entities["regulation"] = extracted.Regulations[0]
	}
	if isEmptySlot(entities["deviceType"]) && len(extracted.DeviceTypes) > 0 {
		entities["deviceType"] = extracted.DeviceTypes[0]
	}
	if isEmptySlot(entities["dateRange"]) && extracted.DateRange != "" {
		entities["dateRange"] = extracted.DateRange
	}
}

func isEmptySlot(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && (s == "" || s == "null")
}
