// Package correction proposes non-destructive term corrections for completed
// transcripts using a project's terminology knowledge base and an external
// text-completion provider. The whole pipeline is best-effort: no failure
// here may ever surface to the caller that produced the transcript.
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meetscribe/insights/internal/models"
)

// KnowledgeSource supplies the applicable terminology entries.
type KnowledgeSource interface {
	GetApplicableKnowledge(ctx context.Context, projectID, organizationID uuid.UUID) ([]models.KnowledgeEntry, error)
}

// CompletionProvider is the external text-completion contract.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// InsightContentStore is the slice of the insight store the corrector needs.
type InsightContentStore interface {
	GetByTypeInternal(ctx context.Context, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error)
	UpdateContentInternal(ctx context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error)
}

// Metrics records correction outcomes; nil disables recording.
type Metrics interface {
	RecordCorrection(ctx context.Context, outcome string)
}

// Corrector runs one correction pass over a transcript.
type Corrector struct {
	knowledge   KnowledgeSource
	completions CompletionProvider
	insights    InsightContentStore
	screen      *Screen
	metrics     Metrics
}

// NewCorrector creates a corrector. metrics may be nil when metrics are disabled.
func NewCorrector(
	knowledge KnowledgeSource,
	completions CompletionProvider,
	insights InsightContentStore,
	screen *Screen,
	metrics Metrics,
) *Corrector {
	if screen == nil {
		screen = NewScreen()
	}

	return &Corrector{
		knowledge:   knowledge,
		completions: completions,
		insights:    insights,
		screen:      screen,
		metrics:     metrics,
	}
}

// Correct proposes corrections for the transcript and merges the accepted
// ones into the recording's transcription insight.
//
// Malformed provider output, an empty knowledge base, and a missing insight
// are terminal no-ops (logged, nil returned). Only transient failures —
// knowledge lookup, the completion call, store reads/writes — return an
// error, so the surrounding job runner can retry them; nothing propagates to
// the transcription caller either way.
func (c *Corrector) Correct(ctx context.Context, transcriptText string, recordingID, projectID, organizationID uuid.UUID) error {
	entries, err := c.knowledge.GetApplicableKnowledge(ctx, projectID, organizationID)
	if err != nil {
		c.recordOutcome(ctx, "knowledge_lookup_failed")

		return fmt.Errorf("correction: knowledge lookup: %w", err)
	}

	if len(entries) == 0 {
		slog.Debug("correction: no applicable knowledge, skipping", "recording_id", recordingID)
		c.recordOutcome(ctx, "no_knowledge")

		return nil
	}

	raw, err := c.completions.Complete(ctx, systemPrompt, BuildUserPrompt(BuildKnowledgeContext(entries), transcriptText))
	if err != nil {
		c.recordOutcome(ctx, "completion_failed")

		return fmt.Errorf("correction: completion call: %w", err)
	}

	proposed, err := ParseCorrections(raw)
	if err != nil {
		// Untrusted output; a parse failure means zero corrections, never a crash.
		slog.Warn("correction: unparseable completion response",
			"recording_id", recordingID,
			"error", err,
		)
		c.recordOutcome(ctx, "unparseable_response")

		return nil
	}

	accepted := c.filterCorrections(ctx, proposed, entries, transcriptText, recordingID)
	if len(accepted) == 0 {
		slog.Debug("correction: no corrections proposed", "recording_id", recordingID)
		c.recordOutcome(ctx, "no_corrections")

		return nil
	}

	insight, err := c.insights.GetByTypeInternal(ctx, recordingID, models.InsightTypeTranscription)
	if err != nil {
		c.recordOutcome(ctx, "insight_lookup_failed")

		return fmt.Errorf("correction: insight lookup: %w", err)
	}

	if insight == nil {
		slog.Warn("correction: no transcription insight to attach to", "recording_id", recordingID)
		c.recordOutcome(ctx, "insight_missing")

		return nil
	}

	merged, err := mergeCorrections(insight.Content, accepted)
	if err != nil {
		slog.Warn("correction: stored content is not mergeable",
			"recording_id", recordingID,
			"insight_id", insight.ID,
			"error", err,
		)
		c.recordOutcome(ctx, "content_not_mergeable")

		return nil
	}

	// Known boundary: a concurrent content write between the read above and
	// this update is last-write-wins; see the service tests.
	if _, err := c.insights.UpdateContentInternal(ctx, insight.ID, merged, insight.ConfidenceScore); err != nil {
		c.recordOutcome(ctx, "store_write_failed")

		return fmt.Errorf("correction: persist corrections: %w", err)
	}

	slog.Info("correction: corrections stored",
		"recording_id", recordingID,
		"insight_id", insight.ID,
		"count", len(accepted),
	)
	c.recordOutcome(ctx, "success")

	return nil
}

// filterCorrections validates each proposal against the consulted entries,
// the transcript, and the phonetic screen. Rejected proposals are logged and
// dropped, never stored.
func (c *Corrector) filterCorrections(
	ctx context.Context,
	proposed []models.Correction,
	entries []models.KnowledgeEntry,
	transcript string,
	recordingID uuid.UUID,
) []models.Correction {
	entriesByID := make(map[string]models.KnowledgeEntry, len(entries))
	for _, entry := range entries {
		entriesByID[entry.ID.String()] = entry
	}

	accepted := make([]models.Correction, 0, len(proposed))
	for _, proposal := range proposed {
		reason, ok := validateCorrection(proposal, entriesByID, transcript, c.screen)
		if !ok {
			slog.Debug("correction: proposal dropped",
				"recording_id", recordingID,
				"original", proposal.Original,
				"reason", string(reason),
			)
			c.recordOutcome(ctx, "proposal_dropped")

			continue
		}

		accepted = append(accepted, proposal)
	}

	return accepted
}

// mergeCorrections sets the corrections key on the stored content object,
// preserving every other field untouched. Corrections are advisory overlays;
// the original transcript text is never rewritten.
func mergeCorrections(content json.RawMessage, corrections []models.Correction) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &fields); err != nil {
			return nil, fmt.Errorf("unmarshal stored content: %w", err)
		}
	}

	encoded, err := json.Marshal(corrections)
	if err != nil {
		return nil, fmt.Errorf("marshal corrections: %w", err)
	}
	fields["corrections"] = encoded

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal merged content: %w", err)
	}

	return merged, nil
}

func (c *Corrector) recordOutcome(ctx context.Context, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCorrection(ctx, outcome)
	}
}
