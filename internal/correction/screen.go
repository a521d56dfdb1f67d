package correction

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultSimilarityThreshold is the minimum Jaro-Winkler score accepted when
// the mis-heard text and the term share no Double Metaphone code.
const defaultSimilarityThreshold = 0.80

// Screen judges whether a proposed correction is phonetically plausible:
// whether the text the model claims was mis-heard could actually sound like
// the knowledge term it is being corrected to. It is a defensive filter on
// untrusted model output, not a matcher in its own right.
//
// Safe for concurrent use; a Screen is read-only after construction.
type Screen struct {
	similarityThreshold float64
}

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithSimilarityThreshold sets the minimum Jaro-Winkler score for proposals
// without phonetic-code overlap. Default: 0.80.
func WithSimilarityThreshold(threshold float64) ScreenOption {
	return func(s *Screen) {
		s.similarityThreshold = threshold
	}
}

// NewScreen returns a Screen with default thresholds.
func NewScreen(opts ...ScreenOption) *Screen {
	s := &Screen{similarityThreshold: defaultSimilarityThreshold}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Plausible reports whether original could be a mis-hearing of term.
// Accepts when any Double Metaphone code of original's tokens overlaps with
// term's codes, or when Jaro-Winkler similarity of the space-stripped
// strings reaches the threshold.
func (s *Screen) Plausible(original, term string) bool {
	original = strings.ToLower(strings.TrimSpace(original))
	term = strings.ToLower(strings.TrimSpace(term))

	if original == "" || term == "" {
		return false
	}

	if codesOverlap(codesForTokens(strings.Fields(original)), codesForTokens(strings.Fields(term))) {
		return true
	}

	// Strip separators so hyphenated mis-hearings ("cooper-net-ees") compare
	// against the term as one token.
	stripped := stripSeparators(original)
	return matchr.JaroWinkler(stripped, stripSeparators(term), false) >= s.similarityThreshold
}

// codesForTokens returns the union of all Double Metaphone codes for the
// tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		t = stripSeparators(t)
		if t == "" {
			continue
		}

		primary, secondary := matchr.DoubleMetaphone(t)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}

	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}

	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}

	return false
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\'' {
			return -1
		}
		return r
	}, s)
}
