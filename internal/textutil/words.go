package textutil

import (
	"unicode"
	"unicode/utf8"
)

// RuneLen returns the number of runes in word.
func RuneLen(word string) int {
	return utf8.RuneCountInString(word)
}

// IsAlpha reports whether word is non-empty and made only of letters.
func IsAlpha(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
