package grammar

import "strings"

// Span marks a half-open [Start, End) character range in the original
// utterance. Tokenization happens upstream; spans arrive with the tokens.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Token is one tagged unit of a tokenized utterance. Clients send these
// already typed and tagged; the parser never looks at raw text beyond
// what the terminal matchers ask for.
type Token struct {
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Tags     []string `json:"tags,omitempty"`
	Span     Span     `json:"span"`
	Original string   `json:"original,omitempty"`
}

// HasTag reports whether the token carries the given tag, ignoring case.
func (t Token) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if strings.EqualFold(candidate, tag) {
			return true
		}
	}
	return false
}

func (t Token) String() string {
	if t.Type == "" {
		return t.Text
	}
	return t.Text + "<" + t.Type + ">"
}
