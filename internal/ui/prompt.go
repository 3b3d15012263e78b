package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/infernoscraper/inferno/internal/filter"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// ErrCancelled is returned when the user leaves a prompt with esc or ctrl+c
var ErrCancelled = errors.New("zrušené")

// sanitizeInput removes null bytes and other invisible control characters from input
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			return -1
		}
		return r
	}, s)
}

func runForm(groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithTheme(NewAppTheme()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}

// validateDay accepts a blank value or a date ParseDay understands
func validateDay(s string) error {
	s = strings.TrimSpace(sanitizeInput(s))
	if s == "" {
		return nil
	}
	if _, err := normalize.ParseDay(s); err != nil {
		return fmt.Errorf("zadaj dátum v tvare DD/MM/RRRR")
	}
	return nil
}

// parseOptionalDay returns the zero time for blank input
func parseOptionalDay(s string) (time.Time, error) {
	s = strings.TrimSpace(sanitizeInput(s))
	if s == "" {
		return time.Time{}, nil
	}
	return normalize.ParseDay(s)
}

// PromptPassword asks for the service password
func PromptPassword(attemptsLeft int) (string, error) {
	var password string

	desc := "Heslo sa neukladá"
	if attemptsLeft > 0 {
		desc = fmt.Sprintf("Zostávajúce pokusy: %d", attemptsLeft)
	}

	err := runForm(huh.NewGroup(
		huh.NewInput().
			Title("Prihlásenie").
			Description(desc).
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("heslo nemôže byť prázdne")
				}
				return nil
			}),
	))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sanitizeInput(password)), nil
}

// PromptJobFilters asks for the subcategories and dates of a new job or a
// history request. prev pre-fills the form.
func PromptJobFilters(title string, prev models.ScrapeFilters) (models.ScrapeFilters, error) {
	subcats := append([]string(nil), prev.Subcategories...)
	start := normalize.FormatDay(prev.DateStart)
	end := normalize.FormatDay(prev.DateEnd)

	err := runForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Description("Vyber kategórie (žiadna = všetky)").
				Value(&subcats).
				Options(huh.NewOptions(models.Categories...)...).
				Height(len(models.Categories)+2),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Dátum od").
				Placeholder("DD/MM/RRRR").
				Value(&start).
				Validate(validateDay),
			huh.NewInput().
				Title("Dátum do").
				Placeholder("DD/MM/RRRR").
				Value(&end).
				Validate(validateDay),
		),
	)
	if err != nil {
		return models.ScrapeFilters{}, err
	}
	return buildScrapeFilters(subcats, start, end)
}

func buildScrapeFilters(subcats []string, start, end string) (models.ScrapeFilters, error) {
	from, err := parseOptionalDay(start)
	if err != nil {
		return models.ScrapeFilters{}, err
	}
	to, err := parseOptionalDay(end)
	if err != nil {
		return models.ScrapeFilters{}, err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		from, to = to, from
	}
	if subcats == nil {
		subcats = []string{}
	}
	return models.ScrapeFilters{Subcategories: subcats, DateStart: from, DateEnd: to}, nil
}

// FacetChoice is the outcome of the result filter form
type FacetChoice struct {
	Subcategories []string
	Cities        []string
	Zips          []string
}

// PromptFacets lets the user pick subcategory, city and zip values. Cities
// and zips are narrowed by an optional search term first; selections hidden
// by the search are kept.
func PromptFacets(facets models.FilterFacets, sel models.FilterSelection) (FacetChoice, error) {
	var cityTerm, zipTerm string
	if len(facets.Cities) > 20 || len(facets.Zips) > 20 {
		err := runForm(huh.NewGroup(
			huh.NewInput().Title("Hľadať mesto").Placeholder("časť názvu, prázdne = všetky").Value(&cityTerm),
			huh.NewInput().Title("Hľadať PSČ").Placeholder("časť PSČ, prázdne = všetky").Value(&zipTerm),
		))
		if err != nil {
			return FacetChoice{}, err
		}
	}

	shownCities := filter.SearchFacet(facets.Cities, sanitizeInput(cityTerm))
	shownZips := filter.SearchFacet(facets.Zips, sanitizeInput(zipTerm))

	subcats := setValues(sel.Subcategories)
	cities := setValues(sel.Cities)
	zips := setValues(sel.Zips)
	prevCities := append([]string(nil), cities...)
	prevZips := append([]string(nil), zips...)

	var fields []huh.Field
	if len(facets.Subcategories) > 0 {
		fields = append(fields, facetSelect("Kategórie", facets.Subcategories, &subcats))
	}
	if len(shownCities) > 0 {
		fields = append(fields, facetSelect("Mestá", shownCities, &cities))
	}
	if len(shownZips) > 0 {
		fields = append(fields, facetSelect("PSČ", shownZips, &zips))
	}
	if len(fields) == 0 {
		return FacetChoice{}, fmt.Errorf("žiadne hodnoty na filtrovanie")
	}

	groups := make([]*huh.Group, len(fields))
	for i, f := range fields {
		groups[i] = huh.NewGroup(f)
	}
	if err := runForm(groups...); err != nil {
		return FacetChoice{}, err
	}

	return FacetChoice{
		Subcategories: subcats,
		Cities:        MergeHidden(prevCities, shownCities, cities),
		Zips:          MergeHidden(prevZips, shownZips, zips),
	}, nil
}

func facetSelect(title string, values []string, target *[]string) *huh.MultiSelect[string] {
	height := len(values) + 2
	if height > 15 {
		height = 15
	}
	return huh.NewMultiSelect[string]().
		Title(title).
		Description("medzerník vyberie, / hľadá, enter potvrdí").
		Value(target).
		Options(huh.NewOptions(values...)...).
		Filterable(true).
		Height(height)
}

// MergeHidden combines the values chosen from the shown options with the
// previous selections that the search hid
func MergeHidden(prev, shown, chosen []string) []string {
	visible := make(map[string]struct{}, len(shown))
	for _, v := range shown {
		visible[v] = struct{}{}
	}

	out := make([]string, 0, len(prev)+len(chosen))
	seen := make(map[string]struct{}, len(prev)+len(chosen))
	for _, v := range prev {
		if _, ok := visible[v]; ok {
			continue
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range chosen {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func setValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// PromptDateRange asks for the result date filter bounds as DD/MM/YYYY
// strings; blank means unset
func PromptDateRange(sel models.FilterSelection, available models.DateRange) (start, end string, err error) {
	start = normalize.FormatDay(sel.StartDay)
	end = normalize.FormatDay(sel.EndDay)

	desc := "Prázdne pole = bez obmedzenia"
	if !available.IsEmpty() {
		desc = fmt.Sprintf("Dostupné: %s – %s", normalize.FormatDay(available.Min), normalize.FormatDay(available.Max))
	}

	err = runForm(huh.NewGroup(
		huh.NewInput().Title("Od").Description(desc).Placeholder("DD/MM/RRRR").Value(&start).Validate(validateDay),
		huh.NewInput().Title("Do").Placeholder("DD/MM/RRRR").Value(&end).Validate(validateDay),
	))
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(sanitizeInput(start)), strings.TrimSpace(sanitizeInput(end)), nil
}

// PromptFeedback asks for a keyword to suggest to the service
func PromptFeedback() (string, error) {
	var keyword string
	err := runForm(huh.NewGroup(
		huh.NewInput().
			Title("Spätná väzba").
			Description("Kľúčové slovo, ktoré má zber sledovať").
			CharLimit(200).
			Value(&keyword).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("zadaj kľúčové slovo")
				}
				return nil
			}),
	))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sanitizeInput(keyword)), nil
}

// Confirm asks a yes/no question
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := runForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Áno").
			Negative("Nie").
			Value(&ok),
	))
	if err != nil {
		return false, err
	}
	return ok, nil
}
