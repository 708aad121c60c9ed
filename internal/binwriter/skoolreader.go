package binwriter

import (
	"bufio"
	"io"
	"strings"
)

// validCtls are the skool block/sub-block type letters a ctl-prefixed
// instruction line may start with, plus '*' (entry-point marker),
// mirroring skool2bin.py's VALID_CTLS = DIRECTIVES + ' *'.
const validCtls = "bcgistuw *"

// block is one blank-line-delimited run of skool text.
type block struct {
	lines    []string
	isEntry  bool
}

// readSkool splits a skool file into blocks the way read_skool does: runs of
// non-blank lines separated by blank lines, each classified as an entry
// block (it contains a ctl-prefixed instruction or asm-directive line) or a
// non-entry block (pure free text between entries, skipped by BinWriter).
func readSkool(r io.Reader) ([]block, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var blocks []block
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		blocks = append(blocks, block{lines: cur, isEntry: isEntryBlock(cur)})
		cur = nil
	}
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func isEntryBlock(lines []string) bool {
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			return true
		}
		if strings.HasPrefix(strings.TrimLeft(line, " "), ";") {
			continue
		}
		if strings.ContainsRune(validCtls, rune(line[0])) {
			return true
		}
	}
	return false
}
