package highlight

import (
	"strings"
	"testing"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/conversation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(texts ...string) conversation.Payload {
	p := conversation.Payload{}
	for _, text := range texts {
		p.Conversation = append(p.Conversation, conversation.Turn{Speaker: "A", Text: text})
	}
	return p
}

func TestHighlightInvalidIndex(t *testing.T) {
	marked, turnText := Highlight("some context", payload("x"), 5, "light")
	assert.Equal(t, InvalidSelection, marked)
	assert.Equal(t, "", turnText)

	marked, _ = Highlight("some context", payload("x"), -1, "light")
	assert.Equal(t, InvalidSelection, marked)
}

func TestHighlightExactSubstring(t *testing.T) {
	context := "The weather was fine. Everyone went home."
	marked, turnText := Highlight(context, payload("went home"), 0, "light")

	assert.Equal(t, "went home", turnText)
	assert.Contains(t, marked, "<mark style='background-color:yellow; color:black'>went home</mark>")
	// Only the first occurrence is wrapped.
	assert.Equal(t, 1, strings.Count(marked, "<mark"))
}

func TestHighlightDarkThemeUsesOrange(t *testing.T) {
	marked, _ := Highlight("abc def", payload("def"), 0, "dark")
	assert.Contains(t, marked, "background-color:orange")
}

func TestHighlightApproximateSentenceMatch(t *testing.T) {
	context := "هوا امروز بسیار خوب است. فردا باران می بارد."
	// Close to the second sentence but not an exact substring.
	turn := "فردا باران می‌بارد"

	marked, turnText := Highlight(context, payload(turn), 0, "light")
	assert.Equal(t, turn, turnText)
	assert.Contains(t, marked, "<mark")
	assert.Contains(t, marked, "فردا باران")
}

func TestHighlightNoMatchReturnsContextUntouched(t *testing.T) {
	context := "Completely unrelated text about something else."
	marked, turnText := Highlight(context, payload("زمینه کاملا متفاوت"), 0, "light")

	assert.Equal(t, context, marked)
	assert.Equal(t, "زمینه کاملا متفاوت", turnText)
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("اول. دوم! سوم؟ چهارم")
	require.Len(t, sentences, 4)
	assert.Equal(t, "اول.", sentences[0])
	assert.Equal(t, "دوم!", sentences[1])
	assert.Equal(t, "سوم؟", sentences[2])
	assert.Equal(t, "چهارم", sentences[3])
}

func TestSplitSentencesNoTrailingSeparator(t *testing.T) {
	sentences := SplitSentences("one. two. three")
	require.Len(t, sentences, 3)
	assert.Equal(t, "three", sentences[2])
}

func TestSplitSentencesPunctuationWithoutSpaceDoesNotSplit(t *testing.T) {
	sentences := SplitSentences("version 1.5 is out")
	require.Len(t, sentences, 1)
}
