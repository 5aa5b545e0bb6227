package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b(1\d{3}|20\d{2})\b`)

var personTriggers = []string{"who was", "who is", "tell me about", "biography"}

// Matcher extracts a capture from prompt. ok is false when it does not apply.
type Matcher func(prompt string) (capture string, ok bool)

// RegexpMatcher returns a Matcher yielding the first capturing group of pattern.
func RegexpMatcher(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(prompt string) (string, bool) {
		m := re.FindStringSubmatch(prompt)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

// Evaluated in order; the first matcher that applies wins.
var personMatchers = []Matcher{
	RegexpMatcher(`(?i)who (?:was|is) (.+?)\?`),
	RegexpMatcher(`(?i)tell me about (.+?)\?`),
	RegexpMatcher(`(?i)biography of (.+?)\?`),
}

// ExtractYear returns the first year-like number in prompt: 1000-1999 or 2000-2099.
func ExtractYear(prompt string) (int, bool) {
	match := yearPattern.FindString(prompt)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// HasPersonTrigger reports whether prompt contains biography-style phrasing.
func HasPersonTrigger(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, trigger := range personTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// ExtractPerson returns the trimmed name captured by the first applicable
// matcher. An empty name after trimming counts as no match.
func ExtractPerson(prompt string) (string, bool) {
	for _, m := range personMatchers {
		capture, ok := m(prompt)
		if !ok {
			continue
		}
		name := strings.TrimSpace(capture)
		return name, name != ""
	}
	return "", false
}
