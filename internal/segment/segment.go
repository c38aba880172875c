// Package segment splits narration text into bounded-length chunks that the
// remote TTS engine can voice without truncating or garbling, while never
// cutting a sentence in the middle.
package segment

import (
	"regexp"
	"strings"
)

const (
	// DefaultOverflowTolerance allows a chunk to overshoot the maximum
	// length in order to finish a sentence that would not fit into a
	// fresh chunk either.
	DefaultOverflowTolerance = 1.5
	// DefaultWordSplitThreshold is the factor beyond which a single
	// sentence is considered unvoiceable as a whole and is split at
	// word boundaries instead.
	DefaultWordSplitThreshold = 2.0
)

type Options struct {
	OverflowTolerance  float64
	WordSplitThreshold float64
}

func (o Options) withDefaults() Options {
	if o.OverflowTolerance <= 0 {
		o.OverflowTolerance = DefaultOverflowTolerance
	}
	if o.WordSplitThreshold <= 0 {
		o.WordSplitThreshold = DefaultWordSplitThreshold
	}
	return o
}

// sentenceRegex matches a run of non-terminator characters followed by one
// or more sentence terminators, or a trailing remainder without a terminator.
// Together the matches cover every input character exactly once, in order.
var sentenceRegex = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// Sentences splits text into trimmed, non-empty sentence candidates.
func Sentences(text string) []string {
	matches := sentenceRegex.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))

	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}

	return sentences
}

// Split partitions text into chunks of at most maxLen characters without
// cutting any sentence, unless a single sentence alone exceeds
// maxLen*WordSplitThreshold, in which case that sentence is packed greedily
// at word boundaries. A sentence that fits into no chunk on its own but
// completes the current chunk within maxLen*OverflowTolerance is appended to
// it rather than emitted oversized on its own.
//
// The output is a pure function of the inputs. Empty input yields a single
// chunk holding the original text, never an empty slice.
func Split(text string, maxLen int, opts Options) []string {
	opts = opts.withDefaults()

	overflowLimit := int(float64(maxLen) * opts.OverflowTolerance)
	wordSplitLimit := int(float64(maxLen) * opts.WordSplitThreshold)

	var chunks []string
	var chunk string

	for _, sentence := range Sentences(text) {
		candidate := sentence
		if chunk != "" {
			candidate = chunk + " " + sentence
		}

		if len(candidate) <= maxLen {
			chunk = candidate
			continue
		}

		if len(sentence) > wordSplitLimit {
			if chunk != "" {
				chunks = append(chunks, chunk)
				chunk = ""
			}

			chunks = append(chunks, splitByWords(sentence, maxLen)...)

			continue
		}

		if len(sentence) > maxLen && len(candidate) <= overflowLimit {
			// The sentence overflows a fresh chunk too, so finish it
			// here instead of emitting it oversized on its own.
			chunks = append(chunks, candidate)
			chunk = ""

			continue
		}

		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		chunk = sentence
	}

	if chunk != "" {
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return []string{text}
	}

	return chunks
}

// splitByWords packs words greedily into chunks of at most maxLen characters.
// A single word longer than maxLen is emitted as its own chunk since there is
// no boundary left to split it at.
func splitByWords(sentence string, maxLen int) []string {
	var chunks []string
	var chunk string

	for _, word := range strings.Fields(sentence) {
		candidate := word
		if chunk != "" {
			candidate = chunk + " " + word
		}

		if len(candidate) <= maxLen {
			chunk = candidate
			continue
		}

		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		chunk = word
	}

	if chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}
