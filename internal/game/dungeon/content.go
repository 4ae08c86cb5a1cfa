package dungeon

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

//go:embed content.yaml
var contentYAML []byte

// Affinity is a theme's curated content preferences.
type Affinity struct {
	Puzzles    []PuzzleType
	Challenges []Challenge
	Epithets   []string
}

type yamlContent struct {
	DefaultEpithets []string                `yaml:"default_epithets"`
	Themes          map[string]yamlAffinity `yaml:"themes"`
}

type yamlAffinity struct {
	Puzzles    []string `yaml:"puzzles"`
	Challenges []string `yaml:"challenges"`
	Epithets   []string `yaml:"epithets"`
}

// contentTable is built once at package init and never mutated.
type contentTable struct {
	defaultEpithets []string
	affinities      map[Theme]Affinity
}

var content = mustLoadContent(contentYAML)

func mustLoadContent(data []byte) contentTable {
	t, err := loadContent(data)
	if err != nil {
		panic(err)
	}
	return t
}

// loadContent parses and validates a theme content table.
//
// Postcondition: Returns a table whose every name is in its enumeration, or
// a non-nil error naming the first unknown entry.
func loadContent(data []byte) (contentTable, error) {
	var raw yamlContent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return contentTable{}, fmt.Errorf("parsing theme content YAML: %w", err)
	}
	if len(raw.DefaultEpithets) == 0 {
		return contentTable{}, fmt.Errorf("theme content: default_epithets must not be empty")
	}

	puzzles := make(map[PuzzleType]bool, len(AllPuzzles))
	for _, p := range AllPuzzles {
		puzzles[p] = true
	}
	challenges := make(map[Challenge]bool, len(AllChallenges))
	for _, c := range AllChallenges {
		challenges[c] = true
	}

	t := contentTable{
		defaultEpithets: raw.DefaultEpithets,
		affinities:      make(map[Theme]Affinity, len(raw.Themes)),
	}
	for name, ya := range raw.Themes {
		theme := Theme(name)
		if !theme.Valid() {
			return contentTable{}, fmt.Errorf("theme content: unknown theme %q", name)
		}
		var a Affinity
		for _, p := range ya.Puzzles {
			if !puzzles[PuzzleType(p)] {
				return contentTable{}, fmt.Errorf("theme content: %s: unknown puzzle %q", name, p)
			}
			a.Puzzles = append(a.Puzzles, PuzzleType(p))
		}
		for _, c := range ya.Challenges {
			if !challenges[Challenge(c)] {
				return contentTable{}, fmt.Errorf("theme content: %s: unknown challenge %q", name, c)
			}
			a.Challenges = append(a.Challenges, Challenge(c))
		}
		a.Epithets = ya.Epithets
		t.affinities[theme] = a
	}
	return t, nil
}

// AffinityFor returns the curated affinity of theme.
//
// Postcondition: ok is false for themes without a curated entry.
func AffinityFor(theme Theme) (Affinity, bool) {
	a, ok := content.affinities[theme]
	return a, ok
}

// SelectPuzzles picks 2–8 distinct puzzle types for theme. With a 70–80%
// chance the list opens with one of the theme's favoured puzzles.
//
// Postcondition: 2 <= len(result) <= 8 and result has no duplicates.
func SelectPuzzles(theme Theme, src dice.Source) []PuzzleType {
	a, _ := AffinityFor(theme)
	return selectDistinct(src, a.Puzzles, AllPuzzles, dice.Between(src, 2, 8))
}

// SelectChallenges picks 1–4 distinct environmental challenges for theme.
//
// Postcondition: 1 <= len(result) <= 4 and result has no duplicates.
func SelectChallenges(theme Theme, src dice.Source) []Challenge {
	a, _ := AffinityFor(theme)
	return selectDistinct(src, a.Challenges, AllChallenges, dice.Between(src, 1, 4))
}

func selectDistinct[T comparable](src dice.Source, favoured, all []T, count int) []T {
	count = min(count, len(all))
	out := make([]T, 0, count)
	seen := make(map[T]bool, count)
	if len(favoured) > 0 && dice.Percent(src, dice.Between(src, 70, 80)) {
		pick := dice.Pick(src, favoured)
		out = append(out, pick)
		seen[pick] = true
	}
	for len(out) < count {
		pick := dice.Pick(src, all)
		if seen[pick] {
			continue
		}
		out = append(out, pick)
		seen[pick] = true
	}
	return out
}

var titleCaser = cases.Title(language.English)

// DisplayName builds a dungeon name such as "The Ancient Temple of Whispering Stone".
func DisplayName(theme Theme, src dice.Source) string {
	epithets := content.defaultEpithets
	if a, ok := AffinityFor(theme); ok && len(a.Epithets) > 0 {
		epithets = a.Epithets
	}
	base := titleCaser.String(strings.ReplaceAll(string(theme), "_", " "))
	return fmt.Sprintf("The %s %s", base, dice.Pick(src, epithets))
}
