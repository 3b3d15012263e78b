package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/infernoscraper/inferno/internal/db"
	"github.com/infernoscraper/inferno/internal/export"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/ui"
)

func main() {
	dbPath := flag.String("db", "inferno.db", "Path to SQLite result archive")
	outputPath := flag.String("output", "vysledky.txt", "Output file")
	setID := flag.Int64("id", 0, "Result set to export (0 = newest)")
	formatFlag := flag.String("format", "", "Output format: txt or csv (default: from the output extension)")
	list := flag.Bool("list", false, "List archived result sets and exit")
	flag.Parse()

	database, err := db.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if *list {
		sets, err := database.ListResultSets(0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list result sets: %v\n", err)
			os.Exit(1)
		}
		ui.PrintResultSets(sets)
		return
	}

	format := export.FormatFor(*outputPath)
	if *formatFlag != "" {
		if format, err = export.ParseFormat(*formatFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	var (
		set     models.ResultSet
		records []models.ResultRecord
	)
	if *setID > 0 {
		set, records, err = database.GetResultSet(*setID)
	} else {
		set, records, err = database.LatestResultSet()
	}
	if errors.Is(err, db.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "No matching result set in the archive. Use -list to see what is there.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load result set: %v\n", err)
		os.Exit(1)
	}

	if err := export.SaveFile(*outputPath, format, records); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d results from set %d (%s) to %s\n", len(records), set.ID, set.Mode, *outputPath)
}
