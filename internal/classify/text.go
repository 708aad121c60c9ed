package classify

import (
	"strconv"
	"strings"
)

// Thresholds mirrored from snaskool.py's text-block heuristics.
const (
	minTextLength  = 3
	uniqueCharsMin = 0.25
	puncCharsMax   = 0.2
)

const textChars = " ,.abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const puncChars = ",."

// looksLikeText applies the same ratio checks _check_text uses: long
// enough, a high enough fraction of distinct letters, and a low enough
// fraction of punctuation, restricted to bytes that are printable ASCII
// text characters at all (anything outside textChars fails immediately).
func looksLikeText(data []byte) bool {
	if len(data) < minTextLength {
		return false
	}
	seen := map[byte]bool{}
	puncCount := 0
	for _, b := range data {
		if b > 127 || !strings.ContainsRune(textChars, rune(b)) {
			return false
		}
		if strings.ContainsRune(puncChars, rune(b)) {
			puncCount++
		} else {
			seen[b] = true
		}
	}
	length := float64(len(data))
	if float64(len(seen)) < length*uniqueCharsMin {
		return false
	}
	if float64(puncCount) > length*puncCharsMax {
		return false
	}
	return true
}

func splitMnemonic(operation string) (string, string) {
	operation = strings.TrimSpace(operation)
	i := strings.IndexAny(operation, " \t")
	if i < 0 {
		return strings.ToUpper(operation), ""
	}
	return strings.ToUpper(operation[:i]), strings.TrimSpace(operation[i+1:])
}

func trailingNumber(rest string) (int, bool) {
	if rest == "" {
		return 0, false
	}
	if i := strings.LastIndex(rest, ","); i >= 0 {
		rest = rest[i+1:]
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
