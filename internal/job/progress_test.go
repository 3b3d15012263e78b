package job

import (
	"testing"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name   string
		status models.JobStatus
		done   int
		total  int
		want   int
	}{
		{"ratio", models.JobRunning, 1, 4, 25},
		{"clamped high", models.JobRunning, 9, 4, 100},
		{"clamped low", models.JobRunning, -3, 4, 0},
		{"indeterminate running", models.JobRunning, 5, 0, PlaceholderPercent},
		{"indeterminate starting", models.JobStarting, 0, 0, PlaceholderPercent},
		{"restarting", models.JobRestarting, 0, 0, 0},
		{"finished", models.JobFinished, 0, 0, 100},
		{"idle", models.JobIdle, 0, 0, 0},
		{"failed", models.JobFailed, 0, 0, 0},
		{"cancelled", models.JobCancelled, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressPercent(tt.status, tt.done, tt.total))
		})
	}
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "Sitemapy stiahnuté", StageLabel("1/5 Zber sitemap"))
	assert.Equal(t, "Filtrované", StageLabel("2/5 Prvé filtrovanie"))
	assert.Equal(t, "Vyhodnotené", StageLabel("5/5 OpenAI filtrovanie"))
	assert.Equal(t, "Neznáma fáza", StageLabel("Neznáma fáza"))
	assert.Equal(t, "", StageLabel(""))
}

func TestIdentity(t *testing.T) {
	assert.True(t, None().IsNone())
	assert.True(t, Provisional("").IsNone())
	assert.True(t, Confirmed("").IsNone())

	p := Provisional("123")
	assert.True(t, p.IsProvisional())
	assert.True(t, p.Matches("123"))
	assert.False(t, p.Matches(""))
	assert.Equal(t, "provisional:123", p.String())

	c := p.Confirm("srv-1")
	assert.True(t, c.IsConfirmed())
	assert.Equal(t, "srv-1", c.ID())
	assert.Equal(t, p, p.Confirm(""))
	assert.False(t, None().Matches(""))
}
