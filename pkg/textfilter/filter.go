package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultReplacements maps common US English profanity to workplace-safe
// alternatives. Slurs have no alternative and are censored.
var defaultReplacements = map[string]string{
	"fuck":         "fudge",
	"fucking":      "freaking",
	"shit":         "shoot",
	"damn":         "dang",
	"hell":         "heck",
	"ass":          "butt",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"pissed":       "ticked",
	"cock":         "[censored]",
	"dick":         "jerk",
	"pussy":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"nigger":       "[censored]",
	"nigga":        "[censored]",
	"spic":         "[censored]",
	"chink":        "[censored]",
	"kike":         "[censored]",
	"motherfucker": "mother-trucker",
	"goddamn":      "gosh-dang",
	"jesus christ": "jeez",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douchebag":    "jerk",
	"douche":       "jerk",
}

// ProfanityFilter replaces profanity in generated narration for scenarios
// that ask for clean language.
type ProfanityFilter struct {
	pattern      *regexp.Regexp
	replacements map[string]string
}

// NewProfanityFilter creates a filter with the built-in word list.
func NewProfanityFilter() *ProfanityFilter {
	return NewProfanityFilterWith(defaultReplacements)
}

// NewProfanityFilterWith creates a filter from a word to replacement map.
// Multi-word entries match any run of whitespace between the words.
func NewProfanityFilterWith(replacements map[string]string) *ProfanityFilter {
	pf := &ProfanityFilter{replacements: make(map[string]string, len(replacements))}

	words := make([]string, 0, len(replacements))
	for w, r := range replacements {
		key := normalize(w)
		pf.replacements[key] = r
		words = append(words, key)
	}
	// Longest first so "motherfucker" wins over "fuck" in the alternation.
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	alts := make([]string, len(words))
	for i, w := range words {
		parts := strings.Fields(w)
		for k := range parts {
			parts[k] = regexp.QuoteMeta(parts[k])
		}
		alts[i] = strings.Join(parts, `\s+`) + pluralSuffix(w)
	}
	if len(alts) > 0 {
		pf.pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	}
	return pf
}

// FilterText replaces profanity in text, keeping the case shape of each
// match.
func (pf *ProfanityFilter) FilterText(text string) string {
	if pf.pattern == nil {
		return text
	}
	return pf.pattern.ReplaceAllStringFunc(text, func(match string) string {
		replacement, ok := pf.lookup(normalize(match))
		if !ok {
			return match
		}
		return preserveCase(match, replacement)
	})
}

// lookup resolves a matched word, allowing a plural suffix.
func (pf *ProfanityFilter) lookup(word string) (string, bool) {
	if r, ok := pf.replacements[word]; ok {
		return r, true
	}
	for _, suffix := range []string{"s", "es"} {
		if r, ok := pf.replacements[strings.TrimSuffix(word, suffix)]; ok && strings.HasSuffix(word, suffix) {
			if strings.HasSuffix(r, "]") {
				return r, true
			}
			return r + "s", true
		}
	}
	return "", false
}

// ContainsProfanity checks if the text contains any listed word.
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	return pf.pattern != nil && pf.pattern.MatchString(text)
}

// Count returns the number of listed words in text.
func (pf *ProfanityFilter) Count(text string) int {
	if pf.pattern == nil {
		return 0
	}
	return len(pf.pattern.FindAllStringIndex(text, -1))
}

// pluralSuffix returns the optional plural ending a word may carry.
func pluralSuffix(w string) string {
	for _, end := range []string{"s", "sh", "ch", "x"} {
		if strings.HasSuffix(w, end) {
			return `(?:es)?`
		}
	}
	return `s?`
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// preserveCase applies the case pattern of the original word to the replacement
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}

	titleCaser := cases.Title(language.English)
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	case titleCaser.String(strings.ToLower(original)) == original:
		return titleCaser.String(replacement)
	}

	// Mixed case: copy the shape rune by rune, lowercase past the end.
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
