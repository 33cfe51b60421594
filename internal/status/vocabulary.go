// Package status holds the status vocabulary, sender identity resolution and the
// record type persisted for every recognized status message.
package status

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyVocabulary is returned when a vocabulary is built without keywords.
var ErrEmptyVocabulary = errors.New("status vocabulary is empty")

// Vocabulary is the fixed, ordered list of recognized status keywords.
type Vocabulary struct {
	keywords []string
	lowered  []string
}

// NewVocabulary builds a vocabulary from keywords in declaration order.
// Blank and duplicate keywords are rejected.
func NewVocabulary(keywords []string) (*Vocabulary, error) {
	if len(keywords) == 0 {
		return nil, ErrEmptyVocabulary
	}

	v := &Vocabulary{
		keywords: make([]string, 0, len(keywords)),
		lowered:  make([]string, 0, len(keywords)),
	}
	seen := make(map[string]struct{}, len(keywords))
	for i, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			return nil, fmt.Errorf("status keyword %d is blank", i)
		}
		low := strings.ToLower(kw)
		if _, dup := seen[low]; dup {
			return nil, fmt.Errorf("status keyword %q is declared twice", kw)
		}
		seen[low] = struct{}{}
		v.keywords = append(v.keywords, kw)
		v.lowered = append(v.lowered, low)
	}
	return v, nil
}

// Extract returns the first keyword, in declaration order, contained in text.
// Matching is a case-insensitive substring test, so a keyword inside a longer
// word still matches. The keyword is returned as declared, not as typed.
func (v *Vocabulary) Extract(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	low := strings.ToLower(text)
	for i, kw := range v.lowered {
		if strings.Contains(low, kw) {
			return v.keywords[i], true
		}
	}
	return "", false
}

// Keywords returns a copy of the declared keywords.
func (v *Vocabulary) Keywords() []string {
	out := make([]string, len(v.keywords))
	copy(out, v.keywords)
	return out
}
