// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package search

import "strings"

// tokenize splits text into words, lowercased with surrounding
// punctuation trimmed. Stop words are kept: keyword relevance is a
// fraction over all query tokens, so dropping common words would
// silently shrink the denominator.
func tokenize(text string) []string {
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}

	return tokens
}

// keywordRelevance returns the fraction of query tokens present in the
// document, in [0,1]. A query with no tokens scores 0.
func keywordRelevance(document, query string) float64 {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return 0
	}

	docWords := tokenize(document)
	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	matched := 0
	for _, qWord := range queryWords {
		if docWordSet[qWord] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

// normalizeQuery canonicalizes query text for fingerprinting:
// lowercased with whitespace runs collapsed to single spaces.
func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
