package segmentation

import (
	"fmt"
	"strings"
	"unicode"
)

// RenderWord is the flattened, UI-ready projection of one literal or one
// dictionary word. The embedded reading's fields are copied through; Text
// shadows the embedded Text and is always set.
type RenderWord struct {
	WordReading
	ID            string `json:"id"`
	Text          string `json:"text"`
	Romaji        string `json:"romaji,omitempty"`
	IsPunctuation bool   `json:"is_punctuation"`
}

// Flatten turns a segmentation into one RenderWord per literal and one per
// chain word, in encounter order. Identifiers are "chain-{i}" for literals and
// "chain-{i}-word-{j}" for words. It is pure: the same input always yields a
// deep-equal output.
func Flatten(r Result) ([]RenderWord, error) {
	out := make([]RenderWord, 0, Len(r))
	for i, el := range r {
		switch v := el.(type) {
		case Literal:
			s := string(v)
			out = append(out, RenderWord{
				WordReading:   WordReading{Reading: s, Text: s},
				ID:            fmt.Sprintf("chain-%d", i),
				Text:          s,
				IsPunctuation: IsPunctuation(s),
			})
		case WordChain:
			if len(v.Words) == 0 {
				return nil, fmt.Errorf("%w: chain %d has no words", ErrContractViolation, i)
			}
			for j, w := range v.Words {
				wr, err := Primary(w.Alternatives)
				if err != nil {
					return nil, fmt.Errorf("chain %d word %d: %w", i, j, err)
				}
				if wr.Text == "" {
					return nil, fmt.Errorf("%w: chain %d word %d has no text", ErrContractViolation, i, j)
				}
				out = append(out, RenderWord{
					WordReading: wr,
					ID:          fmt.Sprintf("chain-%d-word-%d", i, j),
					Text:        wr.Text,
					Romaji:      w.Romaji,
				})
			}
		default:
			return nil, fmt.Errorf("%w: element %d has unknown type %T", ErrContractViolation, i, el)
		}
	}
	return out, nil
}

// Primary returns the reading to render for a word: the reading itself, or the
// first candidate of an alternative set. Later candidates are dropped.
func Primary(a Alternatives) (WordReading, error) {
	switch v := a.(type) {
	case WordReading:
		return v, nil
	case AlternativeSet:
		if len(v) == 0 {
			return WordReading{}, fmt.Errorf("%w: empty alternative set", ErrContractViolation)
		}
		return v[0], nil
	case nil:
		return WordReading{}, fmt.Errorf("%w: missing alternatives", ErrContractViolation)
	default:
		return WordReading{}, fmt.Errorf("%w: unknown alternatives type %T", ErrContractViolation, a)
	}
}

// Len is the number of entries Flatten produces for r.
func Len(r Result) int {
	n := 0
	for _, el := range r {
		switch v := el.(type) {
		case Literal:
			n++
		case WordChain:
			n += len(v.Words)
		}
	}
	return n
}

// Validate reports the first contract violation Flatten would hit.
func (r Result) Validate() error {
	_, err := Flatten(r)
	return err
}

// IsPunctuation reports whether s is non-empty and has no letter or number
// in any script.
func IsPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsNumber(c) {
			return false
		}
	}
	return true
}

// SentenceContext joins the texts before and after words[idx].
func SentenceContext(words []RenderWord, idx int) (preceding, succeeding string) {
	if idx < 0 || idx >= len(words) {
		return "", ""
	}
	var b strings.Builder
	for _, w := range words[:idx] {
		b.WriteString(w.Text)
	}
	preceding = b.String()

	b.Reset()
	for _, w := range words[idx+1:] {
		b.WriteString(w.Text)
	}
	return preceding, b.String()
}
