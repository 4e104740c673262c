// Package sortname derives bibliographic sort strings for titles and person
// names following library conventions.
package sortname

import (
	"strings"
)

// TitleArticles are moved to the end of a sort title
// (e.g. "The Hobbit" -> "Hobbit, The").
var TitleArticles = []string{
	"The",
	"A",
	"An",
}

// GenerationalSuffixes distinguish different people and are preserved.
var GenerationalSuffixes = []string{
	"Jr.", "Jr", "Sr.", "Sr", "Junior", "Senior",
	"I", "II", "III", "IV", "V",
}

// Prefixes are honorifics stripped from the sort name.
var Prefixes = []string{
	"Dr.", "Dr", "Mr.", "Mr", "Mrs.", "Mrs", "Ms.", "Ms",
	"Prof.", "Prof", "Rev.", "Rev", "Sir", "Dame", "Lord", "Lady",
}

// Particles move to the end with the given name
// ("Ludwig van Beethoven" -> "Beethoven, Ludwig van").
var Particles = []string{
	"van", "von", "de", "da", "di", "du", "del", "della",
	"la", "le", "el", "al", "bin", "ibn",
}

// ForTitle generates a sort title with leading articles moved to the end:
// "The Hobbit" -> "Hobbit, The".
func ForTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	for _, article := range TitleArticles {
		prefix := article + " "
		if strings.EqualFold(title[:min(len(prefix), len(title))], prefix) && len(title) > len(prefix) {
			actualArticle := title[:len(article)]
			rest := strings.TrimSpace(title[len(prefix):])
			if rest != "" {
				return rest + ", " + actualArticle
			}
		}
	}

	return title
}

// ForPerson generates a "Last, First" sort name. Honorific prefixes are
// stripped, generational suffixes preserved, and name particles kept with the
// given name.
func ForPerson(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return name
	}

	for len(parts) > 1 && containsFold(Prefixes, parts[0]) {
		parts = parts[1:]
	}

	var suffixes []string
	for len(parts) > 1 {
		last := strings.TrimSuffix(parts[len(parts)-1], ",")
		if !containsFold(GenerationalSuffixes, last) {
			break
		}
		suffixes = append([]string{last}, suffixes...)
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 1 {
		if len(suffixes) > 0 {
			return parts[0] + ", " + strings.Join(suffixes, ", ")
		}
		return parts[0]
	}

	surname := parts[len(parts)-1]
	given := parts[:len(parts)-1]

	var particles []string
	for len(given) > 0 && containsFold(Particles, given[len(given)-1]) {
		particles = append([]string{given[len(given)-1]}, particles...)
		given = given[:len(given)-1]
	}

	var b strings.Builder
	b.WriteString(surname)
	if len(given) > 0 || len(particles) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(append(given, particles...), " "))
	}
	if len(suffixes) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(suffixes, ", "))
	}
	return b.String()
}

func containsFold(list []string, word string) bool {
	for _, item := range list {
		if strings.EqualFold(word, item) {
			return true
		}
	}
	return false
}
