package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDotTip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single word", "hello", "h...o"},
		{"sentence keeps first and last letter", "I have a dream", "I .... . ....m"},
		{"apostrophe not counted as a letter", "don't stop", "d... ...p"},
		{"digits only fall back to length", "1234", "1..4"},
		{"empty", "", ""},
		{"spaces only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dotTip(tt.in))
		})
	}
}
