// Package parser turns raw model output into a Decision. Models wrap
// JSON in prose and code fences often enough that a strict unmarshal
// alone throws away usable verdicts, so parsing is tolerant; a response
// that still cannot be parsed yields nil and the engine fails open.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// Parse extracts a Decision from raw model output. It tries a direct
// unmarshal first, then the outermost brace-delimited span. A nil
// return with no error means the output was unusable.
func Parse(raw string) *models.Decision {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var d models.Decision
	if err := json.Unmarshal([]byte(trimmed), &d); err == nil {
		return &d
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &d); err == nil {
			return &d
		}
	}

	log.Warn().Str("raw", truncate(trimmed, 500)).Msg("unparseable model response, failing open")
	return nil
}

// NormalizeAction canonicalizes the model's action string. An absent
// action resolves to STAY_SILENT; anything else passes through
// uppercased, so unrecognized names reach the registry's fallback
// handler instead of being silently remapped.
func NormalizeAction(action string) string {
	a := strings.ToUpper(strings.TrimSpace(action))
	if a == "" {
		return models.ActionStaySilent
	}
	return a
}

// MissingInterventionFields lists the required coaching fields an
// INTERVENE decision failed to supply. Empty means complete.
func MissingInterventionFields(d *models.Decision) []string {
	var missing []string
	if d == nil || d.Intervention == nil {
		return []string{"validation", "rewrite1", "rewrite2"}
	}
	if strings.TrimSpace(d.Intervention.Validation) == "" {
		missing = append(missing, "validation")
	}
	if strings.TrimSpace(d.Intervention.Rewrite1) == "" {
		missing = append(missing, "rewrite1")
	}
	if strings.TrimSpace(d.Intervention.Rewrite2) == "" {
		missing = append(missing, "rewrite2")
	}
	return missing
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
