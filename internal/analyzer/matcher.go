// Package analyzer extracts term occurrences from crawled content. The
// pipeline's entity extraction sink uses it to mine topic terms and their
// surrounding sentences from each document.
package analyzer

import (
	"strings"
	"unicode"
)

// TermMatch represents occurrences of a term within one document.
type TermMatch struct {
	Term      string   `json:"term"`
	URL       string   `json:"url"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// sentenceData holds original and lowercase versions together.
type sentenceData struct {
	original string
	lower    string
}

// FindTermMatches scans the content for each term (case-insensitive) and
// returns a match per term that occurs at least once, with the sentences
// containing it. Sentences are naively split on '.', '!' and '?'.
func FindTermMatches(content, url string, terms []string) []TermMatch {
	if len(content) == 0 || len(terms) == 0 {
		return nil
	}

	results := make([]TermMatch, 0, len(terms))

	// Lowercase the content and sentences once, not per-term
	lowerContent := strings.ToLower(content)
	sentences := splitIntoSentences(content)

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		count := strings.Count(lowerContent, lowerTerm)
		if count == 0 {
			continue
		}

		var matched []string
		for _, sd := range sentences {
			if strings.Contains(sd.lower, lowerTerm) {
				matched = append(matched, sd.original)
			}
		}

		results = append(results, TermMatch{
			Term:      term,
			URL:       url,
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

// splitIntoSentences splits text on sentence delimiters, keeping the
// delimiter at the end of each sentence.
func splitIntoSentences(text string) []sentenceData {
	if len(text) == 0 {
		return nil
	}

	// Estimate sentence count: roughly 1 sentence per 50 chars average
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}

	sentences := make([]sentenceData, 0, estimated)
	start := 0

	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			// Include the delimiter
			end := i + 1
			// Include following whitespace
			for end < len(text) && unicode.IsSpace(rune(text[end])) {
				end++
			}
			orig := strings.TrimSpace(text[start:end])
			if orig != "" {
				sentences = append(sentences, sentenceData{
					original: orig,
					lower:    strings.ToLower(orig),
				})
			}
			start = end
		}
	}

	if start < len(text) {
		orig := strings.TrimSpace(text[start:])
		if orig != "" {
			sentences = append(sentences, sentenceData{
				original: orig,
				lower:    strings.ToLower(orig),
			})
		}
	}

	return sentences
}
