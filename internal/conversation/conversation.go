// Package conversation parses the JSON payload the generation provider is
// prompted to return: {"conversation": [{"speaker": ..., "text": ...}, ...]}.
package conversation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Turn is one exchange in a generated conversation.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Payload is the decoded conversation document.
type Payload struct {
	Conversation []Turn `json:"conversation"`
}

var (
	leadingFence  = regexp.MustCompile("^```json\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// CleanFences strips a leading ```json marker and a trailing ``` marker.
// Models routinely wrap their JSON in markdown fences despite instructions.
func CleanFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = leadingFence.ReplaceAllString(s, "")
	}
	if strings.HasSuffix(s, "```") {
		s = trailingFence.ReplaceAllString(s, "")
	}
	return s
}

// Parse decodes a candidate string into a Payload, tolerating markdown fences.
func Parse(s string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(CleanFences(s)), &p); err != nil {
		return Payload{}, fmt.Errorf("failed to parse conversation JSON: %w", err)
	}
	return p, nil
}

// TurnOptions renders dropdown labels for each turn: "0: Speaker - snippet...".
// The snippet is the first 30 runes of the turn text.
func TurnOptions(p Payload) []string {
	options := make([]string, 0, len(p.Conversation))
	for i, turn := range p.Conversation {
		speaker := turn.Speaker
		if speaker == "" {
			speaker = "Speaker?"
		}
		snippet := turn.Text
		if runes := []rune(snippet); len(runes) > 30 {
			snippet = string(runes[:30])
		}
		options = append(options, fmt.Sprintf("%d: %s - %s...", i, speaker, snippet))
	}
	return options
}
