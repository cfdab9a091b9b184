package similarity

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	punctuation = regexp.MustCompile(`[“”«»"'.,;:!?()\[\]]`)

	// Verb-derived suffixes are stripped first, then the common inflection endings.
	verbSuffix = regexp.MustCompile(
		`(ов)*ува(в|вши|вшись|ла|ло|ли|ння|нні|нням|нню|ти|вся|всь|лись|лися|тись|тися)$`,
	)
	inflection = regexp.MustCompile(`(ами|ів|ої|ий|им|их|а|у|і|е|о|я|ю|ь|ти|тися)$`)
)

// minTokenLen is the shortest stem kept by Tokenize, in runes.
const minTokenLen = 3

// Stem reduces a lowercase Ukrainian word to a crude stem by stripping common endings.
func Stem(word string) string {
	word = verbSuffix.ReplaceAllString(word, "")
	return inflection.ReplaceAllString(word, "")
}

// Tokenize lowercases text, strips punctuation, stems each word and
// returns the set of stems at least minTokenLen runes long.
func Tokenize(text string) map[string]struct{} {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(text), "")

	set := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		s := Stem(w)
		if utf8.RuneCountInString(s) >= minTokenLen {
			set[s] = struct{}{}
		}
	}
	return set
}

// Indicators returns the stems shared by a document line and a template fragment, sorted.
func Indicators(line, fragment string) []string {
	lineTokens := Tokenize(line)
	fragTokens := Tokenize(fragment)

	shared := make([]string, 0)
	for t := range lineTokens {
		if _, ok := fragTokens[t]; ok {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return shared
}
