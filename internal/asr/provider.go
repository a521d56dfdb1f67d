// Package asr defines the speech-to-text provider contract and a client for
// hosted transcription APIs.
package asr

import "context"

// Word is one word of the provider's word-level output. Speaker is nil when
// the provider could not attribute the word to a diarized speaker.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// Utterance is one span of the provider's utterance-level output.
type Utterance struct {
	Transcript string  `json:"transcript"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// Request describes one transcription call.
type Request struct {
	// FileURL points at the recorded audio; the provider fetches it.
	FileURL string `json:"file_url"`
	// Language is the BCP-47 target language (e.g. "en").
	Language string `json:"language"`
	// Diarize requests speaker attribution on words and utterances.
	Diarize bool `json:"diarize"`
	// Vocabulary carries domain terms as recognition hints.
	Vocabulary []string `json:"vocabulary,omitempty"`
}

// Result is the provider's transcription output.
type Result struct {
	Transcript string      `json:"transcript"`
	Confidence float64     `json:"confidence"`
	Words      []Word      `json:"words"`
	Utterances []Utterance `json:"utterances"`
}

// Provider transcribes a recorded audio file. Implementations must respect
// context cancellation; the pipeline bounds each call with a deadline.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
