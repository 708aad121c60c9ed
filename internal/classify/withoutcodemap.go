package classify

import (
	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/z80asm"
)

// WithoutCodeMap runs the six-phase heuristic classifier snaskool.py calls
// _generate_ctls_without_code_map, for when no execution trace is
// available: seed block boundaries after every RET/JP nn/JR d byte
// pattern, merge boundaries that split an instruction in two ("bad
// blocks"), merge code blocks that don't end on a terminal instruction into
// their successor, merge blocks whose predecessor branches straight to
// their start, mark a leading NOP run as zero-fill, then classify each
// remaining 'c' span as text, data, or genuine code.
func WithoutCodeMap(snap Peeker, start, end int) map[int]ctlfile.BlockType {
	ctls := map[int]ctlfile.BlockType{start: ctlfile.Code}

	// (1) seed boundaries after RET (0xC9), JP nn (0xC3), JR d (0x18).
	for addr := start; addr < end-1; addr++ {
		switch snap.Peek(addr) {
		case 0xC9:
			ctls[addr+1] = ctlfile.Code
		case 0xC3:
			if addr < end-3 {
				ctls[addr+3] = ctlfile.Code
			}
		case 0x18:
			if addr < end-2 {
				ctls[addr+2] = ctlfile.Code
			}
		}
	}

	// (2) merge any boundary that splits an instruction (a "bad block").
	for {
		merged := false
		for _, b := range blocksOf(ctls, end) {
			if blockIsBad(snap, b.start, b.end) {
				delete(ctls, b.end)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}

	// (3) merge any block not ending on RET/JP nn/JR d into its successor.
	for {
		merged := false
		spans := blocksOf(ctls, end)
		for i, b := range spans {
			if i == len(spans)-1 {
				continue
			}
			last := lastInstructionIn(snap, b.start, b.end)
			if last.Size() == 0 || !endsStraightLine(last) {
				next := spans[i+1].start
				if next < end {
					delete(ctls, next)
					merged = true
					break
				}
			}
		}
		if !merged {
			break
		}
	}

	// (4) merge adjacent blocks where the first branches straight into the
	// second's start address.
	for {
		merged := false
		spans := blocksOf(ctls, end)
		for i, b := range spans {
			if i == len(spans)-1 {
				continue
			}
			nextStart := spans[i+1].start
			if blockBranchesTo(snap, b.start, b.end, nextStart) {
				delete(ctls, nextStart)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}

	// (5) mark a leading NOP run in each block as zero-fill.
	for _, b := range blocksOf(ctls, end) {
		addr := b.start
		for addr < b.end && snap.Peek(addr) == 0x00 {
			addr++
		}
		if addr > b.start {
			ctls[b.start] = ctlfile.Space
			if addr < b.end {
				ctls[addr] = b.typ
			}
		}
	}

	// (6) classify remaining spans as text, data, or code; relabel
	// anything that looks like neither as code; mark blocks lacking a
	// terminal instruction as data.
	analyseBlocks(snap, ctls, end)

	// Join any adjacent data ('b') and zero-fill ('s') blocks.
	joinDataAndZeroBlocks(ctls, end)

	delete(ctls, end)
	return ctls
}

func blockIsBad(snap Peeker, start, end int) bool {
	addr := start
	for addr < end {
		dec := z80asm.DecodeOne(snap, addr)
		if dec.Size() == 0 {
			return true
		}
		addr += dec.Size()
	}
	return addr != end
}

func endsStraightLine(dec z80asm.Decoded) bool {
	op, rest := splitMnemonic(dec.Operation)
	if op == "RET" && rest == "" {
		return true
	}
	if op == "JP" || op == "JR" {
		if _, ok := trailingNumber(rest); ok {
			return true
		}
	}
	return false
}

func blockBranchesTo(snap Peeker, start, end, target int) bool {
	addr := start
	for addr < end {
		dec := z80asm.DecodeOne(snap, addr)
		if dec.Size() == 0 {
			break
		}
		op, rest := splitMnemonic(dec.Operation)
		if op == "JR" || op == "JP" {
			if n, ok := trailingNumber(rest); ok && n == target {
				return true
			}
		}
		addr += dec.Size()
	}
	return false
}

func analyseBlocks(snap Peeker, ctls map[int]ctlfile.BlockType, end int) {
	for {
		done := true
		for _, b := range blocksOf(ctls, end) {
			if b.typ != ctlfile.Code {
				continue
			}
			data := readRange(snap, b.start, b.end)
			if looksLikeText(data) {
				ctls[b.start] = ctlfile.Text
				done = false
				continue
			}
			if looksLikeData(data) {
				ctls[b.start] = ctlfile.Byte
				continue
			}
			ctls[b.start] = unresolved
		}
		if done {
			break
		}
	}
	for a, t := range ctls {
		if t == unresolved {
			ctls[a] = ctlfile.Code
		}
	}
	for _, b := range blocksOf(ctls, end) {
		if b.typ != ctlfile.Code {
			continue
		}
		last := lastInstructionIn(snap, b.start, b.end)
		if last.Size() == 0 || !IsTerminal(last) {
			ctls[b.start] = ctlfile.Byte
		}
	}
	for _, b := range blocksOf(ctls, end) {
		if b.typ != ctlfile.Code {
			continue
		}
		ctls[b.start] = ctlfile.Space
		for addr := b.start; addr < b.end; addr++ {
			if snap.Peek(addr) != 0 {
				ctls[addr] = ctlfile.Code
				break
			}
		}
	}
}

// unresolved marks a 'c' block that analyseBlocks could not identify as
// text or data on its first pass; it is always relabelled 'c' before
// WithoutCodeMap returns.
const unresolved ctlfile.BlockType = 'X'

func looksLikeData(data []byte) bool {
	size := len(data)
	if size > 3 {
		count := 1
		prev := data[0]
		for _, b := range data[1:] {
			if b == prev {
				count++
				if count > 3 {
					return true
				}
			} else {
				count = 1
				prev = b
			}
		}
	}
	if size > 9 {
		seen := map[byte]bool{}
		for _, b := range data {
			seen[b] = true
		}
		return float64(len(seen)) < float64(size)*0.3
	}
	return false
}

func joinDataAndZeroBlocks(ctls map[int]ctlfile.BlockType, end int) {
	spans := blocksOf(ctls, end)
	if len(spans) == 0 {
		return
	}
	prev := spans[0]
	for _, b := range spans[1:] {
		if isDataOrSpace(prev.typ) && isDataOrSpace(b.typ) {
			ctls[prev.start] = ctlfile.Byte
			delete(ctls, b.start)
		} else {
			prev = b
		}
	}
}

func isDataOrSpace(t ctlfile.BlockType) bool { return t == ctlfile.Byte || t == ctlfile.Space }
