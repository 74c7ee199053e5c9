// Package localseg produces segmentation values offline with the kagome
// tokenizer and the IPA dictionary. Output has the same shape as the ichiran
// service so stored values are interchangeable, though it carries no English
// glosses.
package localseg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"bilingualmanga/internal/segmentation"
)

type Segmenter struct {
	tk *tokenizer.Tokenizer
}

func New() (*Segmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome: %w", err)
	}
	return &Segmenter{tk: t}, nil
}

// Segment returns the encoded segmentation for text. Empty text yields (nil, nil).
func (s *Segmenter) Segment(ctx context.Context, text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.Analyze(text)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode segmentation: %w", err)
	}
	return raw, nil
}

// morpheme is one kagome token reduced to what the segmentation needs.
type morpheme struct {
	surface string
	pos     []string
	base    string
	reading string // hiragana
}

// Analyze splits text into literals (symbols) and word chains (runs of
// dictionary words between symbols or whitespace).
func (s *Segmenter) Analyze(text string) segmentation.Result {
	var (
		out     segmentation.Result
		chain   []segmentation.Word
		literal strings.Builder
	)
	flushChain := func() {
		if len(chain) > 0 {
			out = append(out, segmentation.WordChain{Words: chain, Score: float64(len(chain))})
			chain = nil
		}
	}
	flushLiteral := func() {
		if literal.Len() > 0 {
			out = append(out, segmentation.Literal(literal.String()))
			literal.Reset()
		}
	}

	ms := mergeAuxiliaries(s.morphemes(text))
	for _, m := range ms {
		switch {
		case strings.TrimSpace(m.surface) == "":
			flushChain()
			flushLiteral()
		case isSymbol(m.morpheme):
			flushChain()
			literal.WriteString(m.surface)
		default:
			flushLiteral()
			chain = append(chain, toWord(m))
		}
	}
	flushChain()
	flushLiteral()
	return out
}

func (s *Segmenter) morphemes(text string) []morpheme {
	toks := s.tk.Tokenize(text)
	out := make([]morpheme, 0, len(toks))
	for _, t := range toks {
		reading, ok := t.Reading()
		if !ok || reading == "" || reading == "*" {
			reading = t.Surface
		}
		base, ok := t.BaseForm()
		if !ok || base == "*" {
			base = t.Surface
		}
		out = append(out, morpheme{
			surface: t.Surface,
			pos:     t.POS(),
			base:    base,
			reading: Hiragana(reading),
		})
	}
	return out
}

func isSymbol(m morpheme) bool {
	if len(m.pos) > 0 && m.pos[0] == "記号" {
		return true
	}
	return segmentation.IsPunctuation(m.surface)
}

func posHas(m morpheme, prefix ...string) bool {
	if len(m.pos) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if m.pos[i] != p {
			return false
		}
	}
	return true
}

// verbWord is a verb with its trailing auxiliaries folded in.
type verbWord struct {
	morpheme
	auxLemmas []string
}

// mergeAuxiliaries folds 助動詞 and dependent verbs into the preceding verb,
// so 食べました is one word rather than three.
func mergeAuxiliaries(ms []morpheme) []verbWord {
	out := make([]verbWord, 0, len(ms))
	for i := 0; i < len(ms); i++ {
		w := verbWord{morpheme: ms[i]}
		if posHas(ms[i], "動詞") {
			j := i + 1
			for j < len(ms) && (posHas(ms[j], "助動詞") || posHas(ms[j], "動詞", "非自立") || posHas(ms[j], "動詞", "接尾")) {
				w.surface += ms[j].surface
				w.reading += ms[j].reading
				w.auxLemmas = append(w.auxLemmas, ms[j].base)
				j++
			}
			i = j - 1
		}
		out = append(out, w)
	}
	return out
}

func toWord(w verbWord) segmentation.Word {
	wr := segmentation.WordReading{
		Reading: w.surface,
		Text:    w.surface,
		Kana:    w.reading,
	}
	if len(w.pos) > 0 {
		wr.Gloss = []segmentation.Gloss{{Pos: strings.Join(nonEmpty(w.pos), ",")}}
	}
	if len(w.auxLemmas) > 0 {
		wr.Conj = []segmentation.Conj{{
			Prop:    []segmentation.Prop{{Pos: "v", Type: conjugationLabel(w.auxLemmas)}},
			Reading: w.base,
			ReadOK:  true,
		}}
	}
	// No romanization table ships with the IPA dictionary; the kana reading
	// stands in for romaji.
	return segmentation.Word{Romaji: w.reading, Alternatives: wr}
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" && s != "*" {
			out = append(out, s)
		}
	}
	return out
}

func conjugationLabel(auxs []string) string {
	switch strings.Join(auxs, "+") {
	case "ます":
		return "Polite"
	case "た":
		return "Past"
	case "ます+た":
		return "Polite past"
	case "ない":
		return "Negative"
	case "ます+ん":
		return "Polite negative"
	}
	return "Conjugated"
}

// Hiragana maps katakana in s to hiragana. Other runes pass through.
func Hiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}

