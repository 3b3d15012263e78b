package job

import (
	"fmt"

	"github.com/infernoscraper/inferno/internal/models"
)

// PlaceholderPercent is shown while a job is active but reports no total
const PlaceholderPercent = 10

// DoneLabel is shown once a job finished without a stage of its own
const DoneLabel = "Hotovo"

// stageLabels maps server phase strings to the stage names shown to users
var stageLabels = map[string]string{
	"1/5 Zber sitemap":         "Sitemapy stiahnuté",
	"2/5 Prvé filtrovanie":     "Filtrované",
	"3/5 Sťahovanie inzerátov": "Stiahnuté",
	"4/5 Filtrovanie popisov":  "Filtrované",
	"5/5 OpenAI filtrovanie":   "Vyhodnotené",
}

// StageLabel returns the user-facing name of a server phase. Unknown phases
// are returned verbatim.
func StageLabel(phase string) string {
	if label, ok := stageLabels[phase]; ok {
		return label
	}
	return phase
}

// ProgressPercent projects job counters onto 0-100
func ProgressPercent(status models.JobStatus, done, total int) int {
	if total > 0 {
		pct := done * 100 / total
		switch {
		case pct < 0:
			return 0
		case pct > 100:
			return 100
		}
		return pct
	}

	switch {
	case status.IsActive():
		return PlaceholderPercent
	case status == models.JobFinished:
		return 100
	}
	return 0
}

// Counter renders "<stage>: done/total", dropping the prefix for phases
// without a stage name
func Counter(phase string, done, total int) string {
	if label, ok := stageLabels[phase]; ok {
		return fmt.Sprintf("%s: %d/%d", label, done, total)
	}
	return fmt.Sprintf("%d/%d", done, total)
}
