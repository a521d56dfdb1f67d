// Package diarization turns a provider's word- and utterance-level output
// into the speaker and utterance lists stored on a transcription insight.
// Pure transformation: no I/O, no side effects.
package diarization

import (
	"sort"

	"github.com/meetscribe/insights/internal/asr"
	"github.com/meetscribe/insights/internal/models"
)

// ExtractSpeakers groups words by their speaker tag and returns one entry
// per distinct speaker, sorted by speaker id. Words without a speaker tag
// are excluded from every speaker's count.
//
// The Utterances field counts words attributed to the speaker, not utterance
// spans. Downstream consumers and the stored payload rely on this count.
func ExtractSpeakers(words []asr.Word) []models.Speaker {
	counts := make(map[int]int)
	for _, w := range words {
		if w.Speaker == nil {
			continue
		}
		counts[*w.Speaker]++
	}

	speakers := make([]models.Speaker, 0, len(counts))
	for id, count := range counts {
		speakers = append(speakers, models.Speaker{ID: id, Utterances: count})
	}

	sort.Slice(speakers, func(i, j int) bool { return speakers[i].ID < speakers[j].ID })

	return speakers
}

// ExtractUtterances maps provider utterances into the stored shape,
// preserving the provider's chronological order. A missing speaker tag
// defaults to 0, never a null, so downstream consumers stay total.
func ExtractUtterances(utterances []asr.Utterance) []models.Utterance {
	out := make([]models.Utterance, 0, len(utterances))
	for _, u := range utterances {
		speaker := 0
		if u.Speaker != nil {
			speaker = *u.Speaker
		}

		out = append(out, models.Utterance{
			Speaker:    speaker,
			Text:       u.Transcript,
			Start:      u.Start,
			End:        u.End,
			Confidence: u.Confidence,
		})
	}

	return out
}
