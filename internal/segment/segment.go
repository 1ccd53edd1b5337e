package segment

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Granularity selects the unit size a document is cut into.
type Granularity string

const (
	GranularitySentence  Granularity = "sentence"
	GranularityParagraph Granularity = "paragraph"
)

// ParseGranularity converts a string into a known Granularity.
func ParseGranularity(value string) (Granularity, bool) {
	switch Granularity(strings.ToLower(strings.TrimSpace(value))) {
	case GranularitySentence:
		return GranularitySentence, true
	case GranularityParagraph:
		return GranularityParagraph, true
	default:
		return "", false
	}
}

// Options tunes the minimum fragment lengths. Zero values fall back to the
// repository defaults.
type Options struct {
	ParagraphMinChars int
	SentenceMinChars  int
}

const (
	defaultParagraphMinChars = 20
	defaultSentenceMinChars  = 10
)

// sentenceTerminals covers Latin punctuation plus the sentence-final marks of
// the scripts the pipeline translates into (Arabic, Urdu, Devanagari, CJK).
var sentenceTerminals = map[rune]struct{}{
	'.':        {},
	'!':        {},
	'?':        {},
	'…':   {}, // ellipsis
	'؟':   {}, // Arabic question mark
	'۔':   {}, // Urdu full stop
	'।':   {}, // Devanagari danda
	'॥':   {}, // Devanagari double danda
	'。':   {}, // ideographic full stop
	'！':   {}, // fullwidth exclamation mark
	'？':   {}, // fullwidth question mark
}

// clauseSeparators are stripped from fragment tails so list items and trailing
// clauses do not count toward the length threshold.
const clauseSeparators = ",;:،؛、-–—"

// Split cuts a document into ordered translation fragments. Output depends
// only on the input text, granularity, and options; segmenting the same
// document twice yields the same sequence.
func Split(text string, granularity Granularity, opts Options) []string {
	normalized := norm.NFC.String(text)
	switch granularity {
	case GranularityParagraph:
		return splitParagraphs(normalized, minChars(opts.ParagraphMinChars, defaultParagraphMinChars))
	case GranularitySentence:
		return splitSentences(normalized, minChars(opts.SentenceMinChars, defaultSentenceMinChars))
	default:
		return nil
	}
}

func minChars(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

func splitParagraphs(text string, min int) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var fragments []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		fragment := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if utf8.RuneCountInString(fragment) > min {
			fragments = append(fragments, fragment)
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return fragments
}

func splitSentences(text string, min int) []string {
	var fragments []string
	var builder strings.Builder

	flush := func() {
		fragment := strings.TrimSpace(builder.String())
		builder.Reset()
		fragment = strings.TrimRight(fragment, clauseSeparators)
		fragment = strings.TrimSpace(fragment)
		if utf8.RuneCountInString(fragment) > min {
			fragments = append(fragments, fragment)
		}
	}

	for _, r := range text {
		if _, terminal := sentenceTerminals[r]; terminal {
			flush()
			continue
		}
		builder.WriteRune(r)
	}
	flush()
	return fragments
}
