package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/infernoscraper/inferno/internal/models"
)

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(SuccessStyle.Render(message))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(ErrorStyle.Render("Chyba: " + message))
}

// PrintInfo prints a neutral message
func PrintInfo(message string) {
	fmt.Println(AccentStyle.Render(message))
}

// PrintResultSets lists archived result sets newest first
func PrintResultSets(sets []models.ResultSet) {
	writeResultSets(os.Stdout, sets)
}

func writeResultSets(w io.Writer, sets []models.ResultSet) {
	if len(sets) == 0 {
		fmt.Fprintln(w, RenderDim("Archív je prázdny."))
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers("ID", "Režim", "Zber", "Počet", "Načítané").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
			}
			return lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)
		})

	for _, s := range sets {
		jobID := s.JobID
		if jobID == "" {
			jobID = "-"
		}
		t.Row(strconv.FormatInt(s.ID, 10), s.Mode, jobID, strconv.Itoa(s.Count), s.FetchedAt.Local().Format("02/01/2006 15:04"))
	}
	fmt.Fprintln(w, t.Render())
}
