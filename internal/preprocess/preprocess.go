// Package preprocess prepares narration text for synthesis: it strips
// characters that make the TTS engine stumble, removes accidentally
// duplicated sentences, and builds the spoken introduction line.
package preprocess

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/lunareadings/narrator/internal/model"
	"github.com/lunareadings/narrator/internal/segment"
)

// DefaultIntroTemplate formats the spoken introduction from the reading
// type, the subject name(s) and the generation date, in that order.
const DefaultIntroTemplate = "This is your %s reading for %s, created on %s."

var (
	markupRegex     = regexp.MustCompile("[*_#`~\\[\\]{}<>|\\\\^=]+")
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Clean strips markup characters, symbols and control characters that cause
// the TTS engine to produce garbled audio, and collapses whitespace runs.
// Skipping this step downstream is not an option: unstripped markup reliably
// derails the synthesis of the surrounding sentence.
func Clean(text string) string {
	text = markupRegex.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		if unicode.In(r, unicode.So, unicode.Sk, unicode.Cs, unicode.Co) {
			continue
		}

		b.WriteRune(r)
	}

	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(b.String(), " "))
}

// DedupeSentences drops sentences that literally repeat their predecessor,
// which happens when generated narration text accidentally stutters around
// paragraph boundaries. The comparison ignores case and punctuation, so this
// is a best-effort cleanup rather than a guarantee.
func DedupeSentences(text string) string {
	sentences := segment.Sentences(text)
	kept := make([]string, 0, len(sentences))
	previous := ""

	for _, sentence := range sentences {
		normalized := normalizeSentence(sentence)
		if normalized != "" && normalized == previous {
			continue
		}

		kept = append(kept, sentence)
		previous = normalized
	}

	return strings.Join(kept, " ")
}

// Intro builds the deterministic spoken introduction for a reading.
// An empty template selects DefaultIntroTemplate.
func Intro(meta model.Metadata, template string) string {
	if template == "" {
		template = DefaultIntroTemplate
	}

	subjects := "you"
	if len(meta.Subjects) > 0 {
		subjects = joinNames(meta.Subjects)
	}

	readingType := meta.ReadingType
	if readingType == "" {
		readingType = "personal"
	}

	return fmt.Sprintf(template, readingType, subjects, meta.GeneratedAt.Format("January 2, 2006"))
}

func joinNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}

	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func normalizeSentence(s string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}
