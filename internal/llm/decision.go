package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/mailcouncil/pkg/models"
)

// decisionPayload is the JSON shape the decision maker is instructed to
// emit.
type decisionPayload struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
}

// ParseDecision extracts the synthesized decision from raw model output.
// Fenced or prose-wrapped JSON is unwrapped and malformed JSON goes through
// jsonrepair. If nothing structured survives, the whole text becomes a
// summary-only decision: a decision turn that produced any text never fails
// the task over formatting.
func ParseDecision(raw, decidedBy string) models.Decision {
	text := extractJSON(raw)

	var payload decisionPayload
	if text != "" {
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			if repaired, rerr := jsonrepair.JSONRepair(text); rerr == nil {
				if json.Unmarshal([]byte(repaired), &payload) == nil {
					log.Debug().Str("role", decidedBy).Msg("Decision JSON repaired")
				}
			}
		}
	}

	if strings.TrimSpace(payload.Summary) == "" {
		log.Debug().Str("role", decidedBy).Msg("Decision output was not structured; keeping raw text as summary")
		return models.Decision{
			Summary:     strings.TrimSpace(raw),
			ActionItems: []string{},
			DecidedBy:   decidedBy,
		}
	}

	items := make([]string, 0, len(payload.ActionItems))
	for _, it := range payload.ActionItems {
		if s := strings.TrimSpace(it); s != "" {
			items = append(items, s)
		}
	}

	return models.Decision{
		Summary:     strings.TrimSpace(payload.Summary),
		ActionItems: items,
		DecidedBy:   decidedBy,
	}
}

// extractJSON pulls the JSON object out of mixed text: models wrap output
// in code fences or lead with prose despite instructions.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Pure JSON: done.
	if strings.HasPrefix(raw, "{") {
		return raw
	}

	// Fenced blocks: collect the fenced content.
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		if len(jsonLines) > 0 {
			return strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	// Prose-wrapped object: slice from the first { to its matching }.
	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		return ""
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			count++
		case '}':
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// Truncated object; jsonrepair gets a chance at it.
	return raw[startIdx:]
}
