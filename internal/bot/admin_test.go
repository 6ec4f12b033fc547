package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/listenbot/pkg/models"
)

func TestSessionProgress(t *testing.T) {
	tests := []struct {
		name      string
		sess      *models.StudySession
		wantDone  int
		wantTotal int
	}{
		{"no session yet", nil, 0, 0},
		{"empty queue", &models.StudySession{}, 0, 0},
		{"mid queue", &models.StudySession{Queue: models.StringList{"a", "b", "c"}, Pos: 1}, 1, 3},
		{"finished", &models.StudySession{Queue: models.StringList{"a", "b"}, Pos: 2}, 2, 2},
		{"cursor past queue clamps", &models.StudySession{Queue: models.StringList{"a", "b"}, Pos: 5}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, total := sessionProgress(tt.sess)
			assert.Equal(t, tt.wantDone, done)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
