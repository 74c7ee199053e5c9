package segmentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when stored JSON does not have the segmentation shape.
var ErrMalformed = errors.New("malformed segmentation")

// Parse decodes raw segmentation JSON and validates it. A JSON null or an
// empty input yields a nil Result and no error.
func Parse(raw []byte) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make(Result, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			return fmt.Errorf("%w: element %d is empty", ErrMalformed, i)
		}
		switch item[0] {
		case '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return fmt.Errorf("%w: element %d: %v", ErrMalformed, i, err)
			}
			out = append(out, Literal(s))
		case '[':
			chain, err := decodeWordChain(item)
			if err != nil {
				return fmt.Errorf("%w: element %d: %v", ErrMalformed, i, err)
			}
			out = append(out, chain)
		default:
			return fmt.Errorf("%w: element %d is neither a string nor a word chain", ErrMalformed, i)
		}
	}
	*r = out
	return nil
}

// decodeWordChain reads [[words, score]]. Exactly one pair is accepted.
func decodeWordChain(data []byte) (WordChain, error) {
	var pairs []json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return WordChain{}, err
	}
	if len(pairs) != 1 {
		return WordChain{}, fmt.Errorf("word chain has %d (words, score) pairs, want 1", len(pairs))
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(pairs[0], &pair); err != nil {
		return WordChain{}, err
	}
	if len(pair) != 2 {
		return WordChain{}, fmt.Errorf("word chain pair has %d items, want 2", len(pair))
	}

	var rawWords []json.RawMessage
	if err := json.Unmarshal(pair[0], &rawWords); err != nil {
		return WordChain{}, fmt.Errorf("words: %v", err)
	}
	var chain WordChain
	if err := json.Unmarshal(pair[1], &chain.Score); err != nil {
		return WordChain{}, fmt.Errorf("score: %v", err)
	}

	chain.Words = make([]Word, 0, len(rawWords))
	for j, rw := range rawWords {
		w, err := decodeWord(rw)
		if err != nil {
			return WordChain{}, fmt.Errorf("word %d: %v", j, err)
		}
		chain.Words = append(chain.Words, w)
	}
	return chain, nil
}

// decodeWord reads [romaji, alternatives, []].
func decodeWord(data []byte) (Word, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Word{}, err
	}
	if len(parts) < 2 {
		return Word{}, fmt.Errorf("word tuple has %d items, want at least 2", len(parts))
	}

	var w Word
	if err := json.Unmarshal(parts[0], &w.Romaji); err != nil {
		return Word{}, fmt.Errorf("romaji: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(parts[1], &fields); err != nil || fields == nil {
		return Word{}, fmt.Errorf("alternatives is not an object")
	}
	if rawAlts, ok := fields["alternative"]; ok {
		var set AlternativeSet
		if err := json.Unmarshal(rawAlts, &set); err != nil {
			return Word{}, fmt.Errorf("alternative: %v", err)
		}
		w.Alternatives = set
		return w, nil
	}

	var wr WordReading
	if err := json.Unmarshal(parts[1], &wr); err != nil {
		return Word{}, fmt.Errorf("reading: %v", err)
	}
	w.Alternatives = wr
	return w, nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(r))
	for i, el := range r {
		switch v := el.(type) {
		case Literal:
			out = append(out, string(v))
		case WordChain:
			words := make([]any, 0, len(v.Words))
			for _, w := range v.Words {
				alts, err := marshalAlternatives(w.Alternatives)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				words = append(words, []any{w.Romaji, alts, []any{}})
			}
			out = append(out, []any{[]any{words, v.Score}})
		default:
			return nil, fmt.Errorf("element %d: unknown element type %T", i, el)
		}
	}
	return json.Marshal(out)
}

func marshalAlternatives(a Alternatives) (any, error) {
	switch v := a.(type) {
	case WordReading:
		return v, nil
	case AlternativeSet:
		return map[string]any{"alternative": []WordReading(v)}, nil
	default:
		return nil, fmt.Errorf("unknown alternatives type %T", a)
	}
}
