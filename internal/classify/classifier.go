package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/regsense/assistant-gateway/internal/llm"
	"github.com/regsense/assistant-gateway/internal/types"
)

// escalationCutoff is the keyword-pass confidence at or above which the
// generative escalation is skipped entirely.
const escalationCutoff = 0.8

// Classifier turns a free-text query into a routing decision. The keyword
// pass is deterministic and side-effect-free; below escalationCutoff and
// with a live generation backend configured, the decision is escalated to
// the backend. Escalation failures never surface to the caller.
type Classifier struct {
	gen llm.Generator
}

func New(gen llm.Generator) *Classifier {
	return &Classifier{gen: gen}
}

func (c *Classifier) Classify(ctx context.Context, query string) types.Classification {
	kw := classifyByKeywords(query)
	if kw.Confidence >= escalationCutoff {
		return kw
	}
	if c.gen == nil || c.gen.Name() == llm.ProviderStub {
		return kw
	}

	esc, err := c.escalate(ctx, query)
	if err != nil {
		slog.Debug("classification escalation discarded", "error", err)
		return kw
	}
	return esc
}

// classifyByKeywords runs the ordered pattern tables: templates, then
// alerts, then the chat default.
func classifyByKeywords(query string) types.Classification {
	for _, rule := range templateRules {
		if !rule.re.MatchString(query) {
			continue
		}
		templateType := rule.templateType
		confidence := ConfidenceSpecificTemplate
		if templateType == "" {
			// Generic keyword only: route to templates, seed the search
			// with the raw query.
			templateType = query
			confidence = ConfidenceGenericTemplate
		}
		return types.Classification{
			Flow:         types.FlowStructuredPage,
			IntendedPage: types.PageTemplates,
			Entities:     types.Entities{"templateType": templateType},
			Confidence:   confidence,
		}
	}

	for _, re := range alertRules {
		if !re.MatchString(query) {
			continue
		}
		entities := types.Entities{"dateRange": nil, "query": query}
		if m := alertDatePattern.FindString(query); m != "" {
			entities["dateRange"] = m
		}
		return types.Classification{
			Flow:         types.FlowStructuredPage,
			IntendedPage: types.PageAlerts,
			Entities:     entities,
			Confidence:   ConfidenceAlert,
		}
	}

	return types.Classification{
		Flow:         types.FlowConversational,
		IntendedPage: types.PageChat,
		Entities:     types.Entities{},
		Confidence:   ConfidenceChat,
	}
}

const escalationPromptFormat = `Analyze this user query and classify their intent.

Query: %q

Classify the intent as ONE of the following:
1. "templates" - User wants to find/view regulatory templates (DHF, SOP, CAPA, RMF, etc.)
2. "alerts" - User wants to see regulatory alerts, updates, recalls, or compliance news
3. "chat" - User has a general regulatory question that needs an AI answer

Also extract any entities:
- templateType: specific template mentioned (e.g., "DHF", "SOP", "CAPA")
- dateRange: date/time mentioned (e.g., "last week", "June 2024")
- regulation: regulation mentioned (e.g., "FDA", "EU MDR", "ISO 13485")
- deviceType: medical device type mentioned

Respond in valid JSON format only:
{
  "intent": "templates" | "alerts" | "chat",
  "confidence": 0.0-1.0,
  "entities": {
    "templateType": "string or null",
    "dateRange": "string or null",
    "regulation": "string or null",
    "deviceType": "string or null"
  }
}`

var (
	intentToPage = map[string]string{
		"templates": types.PageTemplates,
		"alerts":    types.PageAlerts,
		"chat":      types.PageChat,
	}
	intentToFlow = map[string]string{
		"templates": types.FlowStructuredPage,
		"alerts":    types.FlowStructuredPage,
		"chat":      types.FlowConversational,
	}
)

type escalationResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

func (c *Classifier) escalate(ctx context.Context, query string) (types.Classification, error) {
	response, err := c.gen.Generate(ctx, fmt.Sprintf(escalationPromptFormat, query))
	if err != nil {
		return types.Classification{}, fmt.Errorf("escalation generate: %w", err)
	}

	raw, ok := extractJSONObject(response)
	if !ok {
		return types.Classification{}, fmt.Errorf("no JSON object in escalation response")
	}

	var parsed escalationResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.Classification{}, fmt.Errorf("parse escalation response: %w", err)
	}

	page, ok := intentToPage[parsed.Intent]
	if !ok {
		page = types.PageChat
	}
	flow, ok := intentToFlow[parsed.Intent]
	if !ok {
		flow = types.FlowConversational
	}
	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = 0.7
	}

	entities := types.Entities{}
	for k, v := range parsed.Entities {
		entities[k] = v
	}
	backfillEntities(entities, query)

	return types.Classification{
		Flow:         flow,
		IntendedPage: page,
		Entities:     entities,
		Confidence:   confidence,
	}, nil
}

// extractJSONObject returns the first balanced {...} block in s. Braces
// inside JSON strings do not count toward the balance.
func extractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
