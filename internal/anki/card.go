package anki

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"bilingualmanga/internal/segmentation"
)

var md = goldmark.New()

// mdEscaper backslash-escapes characters goldmark would read as markup.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`#`, `\#`, `<`, `\<`, `>`, `\>`, `!`, `\!`, `|`, `\|`, `~`, `\~`,
)

func esc(s string) string { return mdEscaper.Replace(s) }

// BackMarkdown is the back of a card: the sentence with the word in bold,
// then the reading, glosses, conjugations and components.
func BackMarkdown(preceding, succeeding string, w segmentation.RenderWord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s**%s**%s\n\n", esc(preceding), esc(w.Text), esc(succeeding))

	title := w.Reading
	if title == "" {
		title = w.Text
	}
	fmt.Fprintf(&b, "### %s\n\n", esc(title))
	if w.Kana != "" && w.Kana != w.Text {
		fmt.Fprintf(&b, "%s\n\n", esc(w.Kana))
	}
	if w.Romaji != "" {
		fmt.Fprintf(&b, "*%s*\n\n", esc(w.Romaji))
	}
	if len(w.Compound) > 0 {
		fmt.Fprintf(&b, "Compound word: %s\n\n", esc(strings.Join(w.Compound, " + ")))
	}
	writeGlosses(&b, w.Gloss, "")

	for _, c := range w.Conj {
		for _, p := range c.Prop {
			fmt.Fprintf(&b, "- \\[%s\\] %s", esc(p.Pos), esc(p.Type))
			if c.Reading != "" {
				fmt.Fprintf(&b, " **%s**", esc(c.Reading))
			}
			b.WriteString("\n")
		}
		writeGlosses(&b, c.Gloss, "    ")
	}
	if len(w.Conj) > 0 {
		b.WriteString("\n")
	}

	w.WordReading.Walk(func(depth int, wr segmentation.WordReading) {
		if depth == 0 {
			return
		}
		indent := strings.Repeat("  ", depth-1)
		line := wr.Reading
		if line == "" {
			line = wr.Text
		}
		if len(wr.Gloss) > 0 {
			line += ": " + wr.Gloss[0].Gloss
		}
		fmt.Fprintf(&b, "%s- %s\n", indent, esc(line))
	})
	if len(w.Components) > 0 {
		b.WriteString("\n")
	}
	if w.Suffix != "" {
		fmt.Fprintf(&b, "Suffix: %s\n", esc(w.Suffix))
	}
	return b.String()
}

func writeGlosses(b *strings.Builder, gs []segmentation.Gloss, indent string) {
	if len(gs) == 0 {
		return
	}
	for i, g := range gs {
		fmt.Fprintf(b, "%s%d. ", indent, i+1)
		if g.Pos != "" {
			fmt.Fprintf(b, "*%s* ", esc(g.Pos))
		}
		b.WriteString(esc(g.Gloss))
		if g.Info != "" {
			fmt.Fprintf(b, " (%s)", esc(g.Info))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// BackHTML renders BackMarkdown. Raw HTML in the input is not passed through.
func BackHTML(preceding, succeeding string, w segmentation.RenderWord) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(BackMarkdown(preceding, succeeding, w)), &buf); err != nil {
		return "", fmt.Errorf("render card back: %w", err)
	}
	return buf.String(), nil
}
