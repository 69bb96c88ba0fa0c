package batching

import "unicode/utf8"

// charsPerToken is the fixed approximation used for all budget math.
// Both pipelines size LLM context with the same heuristic, so changing
// it changes batch shapes everywhere at once.
const charsPerToken = 4

// TokenCost approximates the token cost of text as ceil(chars / 4),
// counting runes rather than bytes so umlauts and other multi-byte
// characters are not over-counted.
func TokenCost(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}
