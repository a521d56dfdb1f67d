package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreen_Plausible(t *testing.T) {
	screen := NewScreen()

	tests := []struct {
		name     string
		original string
		term     string
		want     bool
	}{
		{
			name:     "hyphenated mis-hearing of a technical term",
			original: "cooper-net-ees",
			term:     "Kubernetes",
			want:     true,
		},
		{
			name:     "homophone-ish product name",
			original: "post gress",
			term:     "Postgres",
			want:     true,
		},
		{
			name:     "identical strings",
			original: "Terraform",
			term:     "Terraform",
			want:     true,
		},
		{
			name:     "unrelated words",
			original: "banana",
			term:     "Kubernetes",
			want:     false,
		},
		{
			name:     "empty original",
			original: "",
			term:     "Kubernetes",
			want:     false,
		},
		{
			name:     "empty term",
			original: "cooper-net-ees",
			term:     "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, screen.Plausible(tt.original, tt.term))
		})
	}
}

func TestScreen_WithSimilarityThreshold(t *testing.T) {
	// A permissive threshold accepts pairs the default would reject on the
	// Jaro-Winkler path.
	strict := NewScreen(WithSimilarityThreshold(0.999))
	loose := NewScreen(WithSimilarityThreshold(0.1))

	original, term := "grafena", "xylophone"

	assert.False(t, strict.Plausible(original, term))
	assert.True(t, loose.Plausible(original, term))
}
