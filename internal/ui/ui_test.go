package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernoscraper/inferno/internal/models"
)

func TestMergeHidden(t *testing.T) {
	tests := []struct {
		name   string
		prev   []string
		shown  []string
		chosen []string
		want   []string
	}{
		{"nothing hidden", []string{"Košice"}, []string{"Košice", "Prešov"}, []string{"Prešov"}, []string{"Prešov"}},
		{"hidden kept", []string{"Košice", "Žilina"}, []string{"Košice", "Prešov"}, []string{"Prešov"}, []string{"Žilina", "Prešov"}},
		{"no duplicates", []string{"Žilina"}, []string{"Košice"}, []string{"Košice", "Košice"}, []string{"Žilina", "Košice"}},
		{"empty", nil, nil, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeHidden(tt.prev, tt.shown, tt.chosen))
		})
	}
}

func TestBuildScrapeFilters(t *testing.T) {
	f, err := buildScrapeFilters(nil, "", "")
	require.NoError(t, err)
	assert.NotNil(t, f.Subcategories)
	assert.Empty(t, f.Subcategories)
	assert.True(t, f.DateStart.IsZero())
	assert.True(t, f.DateEnd.IsZero())

	f, err = buildScrapeFilters([]string{"Byty"}, "20/03/2025", "01/03/2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Byty"}, f.Subcategories)
	assert.Equal(t, 1, f.DateStart.Day())
	assert.Equal(t, 20, f.DateEnd.Day())

	_, err = buildScrapeFilters(nil, "2025-13-45", "")
	assert.Error(t, err)
}

func TestValidateDay(t *testing.T) {
	assert.NoError(t, validateDay(""))
	assert.NoError(t, validateDay("05/11/2024"))
	assert.Error(t, validateDay("zajtra"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Košice", sanitizeInput("Ko\x00šice\x07"))
	assert.Equal(t, "a\tb", sanitizeInput("a\tb"))
}

func TestCalculateColumns(t *testing.T) {
	cols := CalculateColumns(ResultColumns(), 106)
	require.Len(t, cols, 6)
	assert.Equal(t, 5, cols[0].Width)
	assert.Equal(t, 6, cols[4].Width)
	assert.Equal(t, 10, cols[5].Width)

	total := 0
	for _, c := range cols {
		total += c.Width + 2
	}
	assert.LessOrEqual(t, total, 106)
	assert.Greater(t, cols[1].Width, cols[2].Width)

	narrow := CalculateColumns(ResultColumns(), 10)
	assert.GreaterOrEqual(t, narrow[1].Width, 30)
}

func TestResultRows(t *testing.T) {
	rows := ResultRows(sampleRecords())
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0])
	assert.Equal(t, "https://example.sk/1", rows[0][1])
	assert.Equal(t, "01/03/2025", rows[0][5])
	// unparseable dates are shown as sent
	assert.Equal(t, "bad", rows[1][5])
}

func TestNewLayout(t *testing.T) {
	l := NewLayout(0, 0)
	assert.Equal(t, DefaultLayout(), l)

	wide := NewLayout(400, 60)
	assert.Equal(t, MaxViewportWidth, wide.ViewportWidth)
	assert.Equal(t, MaxViewportWidth-2, wide.InnerWidth)

	short := NewLayout(120, 10)
	assert.Equal(t, MinViewportHeight, short.ViewportHeight)
	assert.Equal(t, MinTableHeight, short.TableHeight)
}

func TestPageStateStatusExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPageState(DefaultLayout())
	p.now = func() time.Time { return now }

	p.SetStatus("hotovo", StatusSuccess, time.Second)
	assert.True(t, p.HasStatus())

	p.ClearExpiredStatus()
	assert.True(t, p.HasStatus())

	now = now.Add(2 * time.Second)
	p.ClearExpiredStatus()
	assert.False(t, p.HasStatus())

	p.SetStatus("trvalé", StatusInfo, 0)
	now = now.Add(time.Hour)
	p.ClearExpiredStatus()
	assert.True(t, p.HasStatus())

	assert.False(t, p.UpdateLayout(DefaultWidth, DefaultHeight))
	assert.True(t, p.UpdateLayout(140, 40))
}

func TestWriteResultSets(t *testing.T) {
	var buf bytes.Buffer
	writeResultSets(&buf, nil)
	assert.Contains(t, buf.String(), "Archív je prázdny.")

	buf.Reset()
	writeResultSets(&buf, []models.ResultSet{
		{ID: 2, Mode: "latest", JobID: "job-7", Count: 40, FetchedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)},
		{ID: 1, Mode: "history", Count: 3, FetchedAt: time.Date(2025, 2, 28, 9, 30, 0, 0, time.Local)},
	})
	out := buf.String()
	assert.Contains(t, out, "job-7")
	assert.Contains(t, out, "01/03/2025 10:00")
	assert.Contains(t, out, "history")
	assert.Contains(t, out, " - ")
}

func TestCenterText(t *testing.T) {
	assert.Equal(t, "   ab", CenterText("ab", 8))
	assert.Equal(t, "abcdef", CenterText("abcdef", 4))
}
