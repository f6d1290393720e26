package courseresolve

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	trailingParenthetical = regexp.MustCompile(`\s*[(\[][^()\[\]]*[)\]]\s*$`)
	dashSplit             = regexp.MustCompile(`[-\x{2013}\x{2014}:|]`)
	trailingUpperSuffix   = regexp.MustCompile(`\s+[A-Z]{1,3}$`)
)

// normalizeTopic applies Unicode NFC normalization so accented characters
// (e.g. "Matemáticas") compare equal across decomposed/composed forms
// before any string matching happens — the same golang.org/x/text/unicode/norm
// NFC normalization used elsewhere in this module for filename
// normalization, applied here to meeting topics instead.
func normalizeTopic(topic string) string {
	return norm.NFC.String(strings.TrimSpace(topic))
}

// trimTrailingParenthetical implements spec §4.5 variant (a): drop a
// trailing "(...)" or "[...]" group, e.g. "Course (EP)" -> "Course".
func trimTrailingParenthetical(s string) string {
	return strings.TrimSpace(trailingParenthetical.ReplaceAllString(s, ""))
}

// leftOfDashSplit implements spec §4.5 variant (b): take the segment before
// the first em-dash/en-dash/hyphen/colon/pipe.
func leftOfDashSplit(s string) string {
	loc := dashSplit.FindStringIndex(s)
	if loc == nil {
		return s
	}

	return strings.TrimSpace(s[:loc[0]])
}

// stripUppercaseSuffix implements spec §4.5 variant (c): drop a trailing
// 1-3 letter uppercase suffix, e.g. "Course EP" -> "Course".
func stripUppercaseSuffix(s string) string {
	return strings.TrimSpace(trailingUpperSuffix.ReplaceAllString(s, ""))
}

// normalizedVariants repeatedly applies whichever of (a, b, c) changes the
// current string, in that priority order, collecting each intermediate
// result. This reproduces spec §9's worked example exactly: topic
// "Matemáticas Básicas (EP) - Lunes" yields, in order, "Matemáticas Básicas
// (EP)" (step b fires first since there is no trailing parenthetical to
// trim yet) then "Matemáticas Básicas" (step a now fires, since the dash
// split exposed a trailing parenthetical) — a strict single pass of a, b, c
// against only the original topic would miss the second transformation.
func normalizedVariants(topic string) []string {
	var variants []string

	current := topic

	for {
		next := current

		switch {
		case trimTrailingParenthetical(current) != current:
			next = trimTrailingParenthetical(current)
		case leftOfDashSplit(current) != current:
			next = leftOfDashSplit(current)
		case stripUppercaseSuffix(current) != current:
			next = stripUppercaseSuffix(current)
		}

		if next == current || next == "" {
			break
		}

		variants = append(variants, next)
		current = next
	}

	return variants
}

// truncationVariants implements spec §4.5's progressive right-truncation:
// drop the last word, then the last two, then the last three, each
// requiring at least 2 words to remain.
func truncationVariants(topic string) []string {
	words := strings.Fields(topic)

	var variants []string

	for drop := 1; drop <= 3; drop++ {
		remaining := len(words) - drop
		if remaining < 2 {
			break
		}

		variants = append(variants, strings.Join(words[:remaining], " "))
	}

	return variants
}
