package correction

import (
	"strings"

	"github.com/meetscribe/insights/internal/models"
)

// systemPrompt instructs the model to propose corrections only, as a closed
// JSON format, referencing knowledge entry ids from the supplied context.
const systemPrompt = `You review meeting transcripts produced by automatic speech recognition.
You are given a terminology knowledge base. Each line has the form:
<entry-id> | <term>: <definition>

Find words or phrases in the transcript that are likely mis-transcriptions of
one of the knowledge-base terms. Propose a correction only when you are
confident the speaker meant the term. Do not correct words that are already
spelled correctly and do not invent terms that are not in the knowledge base.

Respond with JSON only, shaped exactly as:
{"corrections":[{"original":"<text as transcribed>","corrected":"<term>","knowledgeEntryId":"<entry-id>","confidence":<0..1>}]}

When nothing needs correcting, respond with {"corrections":[]}.`

// BuildKnowledgeContext renders entries as "<id> | <term>: <definition>"
// lines. The id is embedded so the model's structured output can reference
// which entry justified a given correction.
func BuildKnowledgeContext(entries []models.KnowledgeEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.ID.String()+" | "+entry.Term+": "+entry.Definition)
	}

	return strings.Join(lines, "\n")
}

// BuildUserPrompt combines the knowledge context and the transcript into the
// user message.
func BuildUserPrompt(knowledgeContext, transcript string) string {
	var b strings.Builder
	b.WriteString("Knowledge base:\n")
	b.WriteString(knowledgeContext)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript)

	return b.String()
}
