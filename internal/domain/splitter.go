package domain

import (
	"strings"
	"unicode/utf8"
)

// splitSectionText splits a section's text into pieces no longer than
// maxChars, breaking at sentence boundaries. A section shorter than the
// limit comes back as a single piece.
func splitSectionText(text string, maxChars int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(trimmed) <= maxChars {
		return []string{trimmed}
	}

	sentences := splitIntoSentences(trimmed)
	var result []string
	var piece string

	for _, sentence := range sentences {
		pieceLen := utf8.RuneCountInString(piece)
		sentenceLen := utf8.RuneCountInString(sentence)
		spaceLen := 0
		if pieceLen > 0 {
			spaceLen = 1
		}

		if pieceLen > 0 && pieceLen+spaceLen+sentenceLen > maxChars {
			result = append(result, piece)
			piece = sentence
		} else {
			if piece != "" {
				piece += " "
			}
			piece += sentence
		}
	}

	if piece != "" {
		result = append(result, piece)
	}

	return result
}

// splitIntoSentences splits text at common sentence boundaries: . ! ?
// followed by a space or newline, plus the Japanese period 。
func splitIntoSentences(text string) []string {
	var sentences []string
	var current string

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current += string(runes[i])

		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' || runes[i] == '。' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				sentences = append(sentences, strings.TrimSpace(current))
				current = ""
			}
		}
	}

	if trimmed := strings.TrimSpace(current); trimmed != "" {
		sentences = append(sentences, trimmed)
	}

	return sentences
}
