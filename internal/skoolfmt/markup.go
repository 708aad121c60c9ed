package skoolfmt

import (
	"fmt"
	"strings"
)

// wrapPolicy is the wrap treatment markup.go assigns to a segment of
// comment text, per spec.md §4.6.
type wrapPolicy int

const (
	wrapFree wrapPolicy = iota // freely wrappable (default, no row/item markup)
	wrapNone                   // "{ ... }" row/item under <nowrap>: indivisible
	wrapAlign                  // "{ ... }" row/item under <wrapalign>: continuation aligned to " | "
)

type segment struct {
	text   string
	policy wrapPolicy
}

var markers = []string{"TABLE", "UDGTABLE", "LIST"}

// tokenizeMarkup splits text into plain segments (wrapFree) and the bodies
// of #TABLE#/#UDGTABLE#/#LIST# blocks, whose rows/items are delimited by
// "{ ... }" and wrapped according to the <nowrap>/<wrapalign> flag that
// follows the opening marker's optional parenthesised parameter list. An
// unterminated bracket, brace, or marker is reported with the offending
// 15-character prefix, matching the ConfigError spec.md §7 describes.
func tokenizeMarkup(text string) ([]segment, error) {
	var segs []segment
	rest := text
	for {
		name, idx := nextMarker(rest)
		if idx < 0 {
			if rest != "" {
				segs = append(segs, segment{text: rest, policy: wrapFree})
			}
			break
		}
		if idx > 0 {
			segs = append(segs, segment{text: rest[:idx], policy: wrapFree})
		}
		open := "#" + name + "#"
		body := rest[idx+len(open):]

		// Optional parenthesised parameter list.
		if strings.HasPrefix(body, "(") {
			end := strings.IndexByte(body, ')')
			if end < 0 {
				return nil, markupErr(body)
			}
			body = body[end+1:]
		}

		policy := wrapFree
		switch {
		case strings.HasPrefix(body, "<nowrap>"):
			policy = wrapNone
			body = body[len("<nowrap>"):]
		case strings.HasPrefix(body, "<wrapalign>"):
			policy = wrapAlign
			body = body[len("<wrapalign>"):]
		}

		close := name + "#"
		end := strings.Index(body, close)
		if end < 0 {
			return nil, markupErr(body)
		}
		inner := body[:end]
		rest = body[end+len(close):]

		rowSegs, err := tokenizeRows(inner, policy)
		if err != nil {
			return nil, err
		}
		segs = append(segs, segment{text: open, policy: wrapNone})
		segs = append(segs, rowSegs...)
		segs = append(segs, segment{text: close, policy: wrapNone})
	}
	if len(segs) == 0 {
		return []segment{{text: text, policy: wrapFree}}, nil
	}
	return segs, nil
}

func nextMarker(text string) (string, int) {
	best := -1
	bestName := ""
	for _, name := range markers {
		tok := "#" + name + "#"
		if i := strings.Index(text, tok); i >= 0 && (best < 0 || i < best) {
			best = i
			bestName = name
		}
	}
	return bestName, best
}

// tokenizeRows splits a markup block's body into its "{ ... }" delimited
// rows/items, each becoming one segment under the block's wrap policy.
func tokenizeRows(body string, policy wrapPolicy) ([]segment, error) {
	var segs []segment
	depth := 0
	start := -1
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, markupErr(body[i:])
			}
			if depth == 0 {
				segs = append(segs, segment{text: body[start:i], policy: policy})
			}
		}
	}
	if depth != 0 {
		return nil, markupErr(body[start:])
	}
	return segs, nil
}

func markupErr(rest string) error {
	prefix := rest
	if len(prefix) > 15 {
		prefix = prefix[:15]
	}
	return fmt.Errorf("malformed markup near %q", prefix)
}
