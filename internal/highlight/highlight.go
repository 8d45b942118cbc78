// Package highlight locates a generated conversation turn inside the source
// context and wraps it in a <mark> tag. It is a best-effort convenience: an
// exact substring hit is preferred, otherwise the closest sentence by
// similarity ratio is marked, and below the similarity floor the context is
// returned untouched.
package highlight

import (
	"fmt"
	"strings"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/conversation"

	"github.com/pmezard/go-difflib/difflib"
)

// InvalidSelection is shown when the requested turn index is out of range.
const InvalidSelection = "Invalid conversation selection."

// minRatio is the similarity floor below which no sentence is marked.
const minRatio = 0.3

// Highlight marks the turn's text within context. Returns the marked-up
// context and the full text of the selected turn.
func Highlight(context string, payload conversation.Payload, turnIndex int, theme string) (string, string) {
	if turnIndex < 0 || turnIndex >= len(payload.Conversation) {
		return InvalidSelection, ""
	}

	turnText := payload.Conversation[turnIndex].Text

	markStyle := "background-color:yellow; color:black"
	if strings.EqualFold(strings.TrimSpace(theme), "dark") {
		markStyle = "background-color:orange; color:black"
	}

	if strings.Contains(context, turnText) && turnText != "" {
		marked := strings.Replace(context, turnText,
			fmt.Sprintf("<mark style='%s'>%s</mark>", markStyle, turnText), 1)
		return marked, turnText
	}

	bestRatio := 0.0
	bestSentence := ""
	for _, sentence := range SplitSentences(context) {
		ratio := similarity(sentence, turnText)
		if ratio > bestRatio {
			bestRatio = ratio
			bestSentence = sentence
		}
	}

	if bestSentence != "" && bestRatio > minRatio {
		marked := strings.Replace(context, bestSentence,
			fmt.Sprintf("<mark style='%s'>%s</mark>", markStyle, bestSentence), 1)
		return marked, turnText
	}

	return context, turnText
}

// SplitSentences splits text after '.', '!' or the Persian question mark
// '؟' when followed by whitespace.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '؟' {
			// Consume the whitespace separating sentences.
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j > i+1 {
				sentences = append(sentences, current.String())
				current.Reset()
				i = j - 1
			}
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// similarity is a character-granular sequence-matcher ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}
