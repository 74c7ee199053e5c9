// Package kanji extracts kanji from bubble text and loads kanji details from
// KANJIDIC2.
package kanji

import "unicode"

// Extract returns the distinct Han characters of lines in first-seen order.
func Extract(lines []string) []string {
	seen := make(map[rune]bool)
	out := make([]string, 0)
	for _, l := range lines {
		for _, r := range l {
			if !unicode.Is(unicode.Han, r) || seen[r] {
				continue
			}
			// iteration marks are Han but are not kanji entries
			if r == '々' || r == '〆' || r == '〇' {
				continue
			}
			seen[r] = true
			out = append(out, string(r))
		}
	}
	return out
}
