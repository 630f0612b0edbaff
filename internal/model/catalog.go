package model

import "strings"

// NoneSelected is stored for a multi-choice question answered with nothing.
const NoneSelected = "selection: none"

// Catalog is the fixed set of options of a choice question.
type Catalog struct {
	Name    string
	Options []string
	Default string
}

var (
	// Hobbies is the multi-choice hobby catalog.
	Hobbies = Catalog{
		Name:    ColHobbies,
		Options: []string{"Exercise", "Reading", "Movies", "Music", "Games", "Travel", "Coding"},
	}
	// Grades is the single-choice year-of-study catalog.
	Grades = Catalog{
		Name:    ColGrade,
		Options: []string{"Freshman", "Sophomore", "Junior", "Senior", "Graduate"},
		Default: "Freshman",
	}
	// Satisfactions is ordered from least to most satisfied.
	Satisfactions = Catalog{
		Name:    ColSatisfaction,
		Options: []string{"Very dissatisfied", "Dissatisfied", "Neutral", "Satisfied", "Very satisfied"},
		Default: "Neutral",
	}
	// Plans is the single-choice post-graduation plan catalog.
	Plans = Catalog{
		Name:    ColPlan,
		Options: []string{"Employment", "Graduate school", "Startup", "Public service", "Undecided"},
		Default: "Undecided",
	}
	// Languages is the multi-choice programming language catalog.
	Languages = Catalog{
		Name:    ColLanguages,
		Options: []string{"Go", "Python", "Java", "C/C++", "JavaScript", "Rust", "Other"},
	}
)

// Has reports whether opt is one of the catalog options.
func (c Catalog) Has(opt string) bool {
	for _, o := range c.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Choose returns v if it is a known option and the catalog default otherwise.
func (c Catalog) Choose(v string) string {
	if c.Has(v) {
		return v
	}
	return c.Default
}

// Join keeps the known options of selected in catalog order and joins them
// with ", ". An empty selection yields NoneSelected.
func (c Catalog) Join(selected []string) string {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}
	var out []string
	for _, o := range c.Options {
		if picked[o] {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return NoneSelected
	}
	return strings.Join(out, ", ")
}

// Split reverses Join. The original selection order is not recoverable.
func Split(joined string) []string {
	if joined == "" || joined == NoneSelected {
		return nil
	}
	return strings.Split(joined, ", ")
}
