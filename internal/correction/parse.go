package correction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meetscribe/insights/internal/models"
)

// correctionsEnvelope is the mandated response shape.
type correctionsEnvelope struct {
	Corrections []models.Correction `json:"corrections"`
}

// ParseCorrections decodes the provider's response. The output is untrusted
// free text: a decode failure is an error for the caller to log and treat as
// zero corrections, never to re-raise.
func ParseCorrections(raw string) ([]models.Correction, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty completion response")
	}

	var envelope correctionsEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("decode corrections response: %w", err)
	}

	return envelope.Corrections, nil
}

// dropReason explains why a proposed correction was rejected during
// validation; used only for logging.
type dropReason string

const (
	dropEmptyField      dropReason = "empty_field"
	dropBadConfidence   dropReason = "confidence_out_of_range"
	dropUnknownEntry    dropReason = "unknown_knowledge_entry"
	dropNotInTranscript dropReason = "original_not_in_transcript"
	dropNotPlausible    dropReason = "phonetically_implausible"
	dropIdentity        dropReason = "original_equals_corrected"
)

// validateCorrection checks one proposed correction against the consulted
// entries and the transcript. Shape problems and references outside the
// supplied knowledge context are rejected; the model's output never reaches
// storage unchecked.
func validateCorrection(
	c models.Correction,
	entriesByID map[string]models.KnowledgeEntry,
	transcript string,
	screen *Screen,
) (dropReason, bool) {
	if strings.TrimSpace(c.Original) == "" || strings.TrimSpace(c.Corrected) == "" || c.KnowledgeEntryID == "" {
		return dropEmptyField, false
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return dropBadConfidence, false
	}

	if strings.EqualFold(c.Original, c.Corrected) {
		return dropIdentity, false
	}

	entry, ok := entriesByID[c.KnowledgeEntryID]
	if !ok {
		return dropUnknownEntry, false
	}

	if !strings.Contains(strings.ToLower(transcript), strings.ToLower(c.Original)) {
		return dropNotInTranscript, false
	}

	if !screen.Plausible(c.Original, entry.Term) {
		return dropNotPlausible, false
	}

	return "", true
}
