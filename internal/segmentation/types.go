// Package segmentation models the morphological analysis stored per speech
// bubble and reshapes it into render-ready word lists.
//
// A Result is a sequence of Elements. Each Element is either a Literal (a span
// the analyzer found no dictionary entry for, usually punctuation or foreign
// script) or a WordChain (one scored decomposition into dictionary words).
package segmentation

import "errors"

// ErrContractViolation marks a segmentation value whose shape breaks the
// upstream format (empty word chain, empty alternative set, word without text).
var ErrContractViolation = errors.New("segmentation contract violation")

// Result is the full analysis of one block's newline-joined lines.
type Result []Element

// Element is implemented by Literal and WordChain only.
type Element interface {
	isElement()
}

// Literal is an un-analyzable span of text.
type Literal string

func (Literal) isElement() {}

// WordChain is one (words, score) pair. Score is carried but never used for ordering.
type WordChain struct {
	Words []Word
	Score float64
}

func (WordChain) isElement() {}

// Word is one entry of a chain: its romanized reading, the candidate readings
// and the reserved trailing slot, which is always empty and not modelled.
type Word struct {
	Romaji       string
	Alternatives Alternatives
}

// Alternatives is implemented by WordReading (a single direct reading) and
// AlternativeSet (a wrapper holding several candidates).
type Alternatives interface {
	isAlternatives()
}

// AlternativeSet holds candidate readings in analyzer order. Only index 0 is
// ever rendered.
type AlternativeSet []WordReading

func (AlternativeSet) isAlternatives() {}

// WordReading is the dictionary record for one word.
type WordReading struct {
	Reading    string        `json:"reading,omitempty"`
	Text       string        `json:"text,omitempty"`
	Kana       string        `json:"kana,omitempty"`
	Score      int           `json:"score,omitempty"`
	Seq        int           `json:"seq,omitempty"`
	Gloss      []Gloss       `json:"gloss,omitempty"`
	Conj       []Conj        `json:"conj,omitempty"`
	Compound   []string      `json:"compound,omitempty"`
	Components []WordReading `json:"components,omitempty"`
	Suffix     string        `json:"suffix,omitempty"`
}

func (WordReading) isAlternatives() {}

type Gloss struct {
	Pos   string `json:"pos"`
	Gloss string `json:"gloss"`
	Info  string `json:"info,omitempty"`
}

type Conj struct {
	Prop    []Prop  `json:"prop"`
	Reading string  `json:"reading"`
	Gloss   []Gloss `json:"gloss,omitempty"`
	ReadOK  bool    `json:"readok"`
}

type Prop struct {
	Pos  string `json:"pos"`
	Type string `json:"type"`
}

// Walk visits r and every nested component reading depth-first, parents
// before children. Components have no depth limit, so an explicit stack is
// used instead of recursion.
func (r WordReading) Walk(visit func(depth int, wr WordReading)) {
	type frame struct {
		depth int
		wr    WordReading
	}
	stack := []frame{{0, r}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(f.depth, f.wr)
		for i := len(f.wr.Components) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.depth + 1, f.wr.Components[i]})
		}
	}
}
