package skoolfmt

import "strings"

// wrapComment is the entry point for width-aware wrapping of a single
// comment string: a dots-only comment is the "blank multi-line" sentinel
// (its leading dot is dropped, leaving one empty line); otherwise, if the
// text contains one of the three markup pairs, markup-aware wrapping
// applies to the marked-up span and plain wrapping to everything else;
// with no markup at all, the whole string is plain-wrapped.
func wrapComment(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	if isDotsOnly(text) {
		return []string{""}
	}
	segs, err := tokenizeMarkup(text)
	if err != nil {
		// An unterminated marker is a structural error per spec.md §4.6;
		// callers that cannot propagate it (title/description lines) fall
		// back to rendering the raw text rather than losing it silently.
		return []string{text}
	}
	if len(segs) == 1 && segs[0].policy == wrapFree && segs[0].text == text {
		return wrapWords(text, width)
	}
	var out []string
	for _, seg := range segs {
		switch seg.policy {
		case wrapNone:
			out = append(out, seg.text)
		case wrapAlign:
			out = append(out, wrapAligned(seg.text, width)...)
		default:
			out = append(out, wrapWords(seg.text, width)...)
		}
	}
	return out
}

func isDotsOnly(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r != '.' {
			return false
		}
	}
	return true
}

// wrapWords is a standard greedy word wrap.
func wrapWords(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len() == 0 {
			cur.WriteString(word)
			continue
		}
		if cur.Len()+1+len(word) > width {
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(word)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// wrapAligned wraps text but aligns every continuation line to the column
// of the first " | " column separator found on the first line, the
// <wrapalign> policy spec.md §4.6 describes for table rows.
func wrapAligned(text string, width int) []string {
	lines := wrapWords(text, width)
	if len(lines) < 2 {
		return lines
	}
	col := strings.Index(lines[0], " | ")
	if col < 0 {
		return lines
	}
	pad := strings.Repeat(" ", col+3)
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + strings.TrimLeft(lines[i], " ")
	}
	return lines
}

// frameMultilineComment wraps a set of already-wrapped lines in balanced
// '{'/'}' braces: every literal '{' present in the original text must have
// a matching '}'; an unbalanced opening brace is padded with extra '{' on
// the closing line so the count balances, per spec.md §4.6.
func frameMultilineComment(lines []string, original string) []string {
	if len(lines) < 2 {
		return lines
	}
	opens := strings.Count(original, "{")
	closes := strings.Count(original, "}")
	extra := opens - closes
	if extra < 0 {
		extra = 0
	}
	out := make([]string, len(lines))
	copy(out, lines)
	out[0] = "{" + out[0]
	closing := "}"
	if extra > 0 {
		closing = strings.Repeat("{", extra) + closing
	}
	out[len(out)-1] = out[len(out)-1] + closing
	return out
}
