package application

import "strings"

// MaxAnswerWords is the word ceiling applied to encyclopedia answers.
const MaxAnswerWords = 200

// Truncate keeps at most ceiling whitespace-delimited words. Text within the
// ceiling is returned unchanged; longer text is rejoined with single spaces.
func Truncate(text string, ceiling int) string {
	words := strings.Fields(text)
	if len(words) <= ceiling {
		return text
	}
	return strings.Join(words[:ceiling], " ")
}
