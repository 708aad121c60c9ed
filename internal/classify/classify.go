package classify

import (
	"sort"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/z80asm"
)

// Peeker is satisfied by *memory.Snapshot.
type Peeker interface {
	Peek(address int) byte
}

// unknown is the internal "not executed, not yet classified" sentinel used
// while iterating the fixed-point phases below. It is never written to the
// final ctl map: WithCodeMap resolves every remaining unknown block to a
// concrete ctlfile.BlockType before returning.
const unknown ctlfile.BlockType = 'U'

// span is one contiguous run sharing a single ctl type, derived from the
// sorted address keys of a ctls map - the Go equivalent of _get_blocks.
type span struct {
	typ        ctlfile.BlockType
	start, end int
}

func blocksOf(ctls map[int]ctlfile.BlockType, limit int) []span {
	addrs := make([]int, 0, len(ctls))
	for a := range ctls {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	var spans []span
	for i, a := range addrs {
		end := limit
		if i+1 < len(addrs) {
			end = addrs[i+1]
		}
		spans = append(spans, span{typ: ctls[a], start: a, end: end})
	}
	return spans
}

// WithCodeMap runs the code-map classifier grounded on
// _generate_ctls_with_code_map: an initial 'c'/'U' split from the executed
// address set, extension of 'c' blocks to their next terminal instruction,
// fixed-point promotion of CALLed/JPed-to 'U' entry points to 'c', splitting
// 'c' blocks at each terminal instruction, and finally resolving whatever
// 'U' span remains to text ('t'), zero-fill ('s'), or plain data ('b').
// Phase (5), joining adjacent blocks where one branches to the next, is not
// performed.
func WithCodeMap(snap Peeker, start, end int, executed []int) map[int]ctlfile.BlockType {
	ctls := map[int]ctlfile.BlockType{start: unknown}

	// (1) initial 'c'/'U' split from the merged executed-instruction runs.
	for addr, length := range codeBlocks(snap, executed) {
		ctls[addr] = ctlfile.Code
		if addr+length < end {
			ctls[addr+length] = unknown
		}
	}

	// (2) extend any 'c' block that doesn't already end on a terminal
	// instruction up to the next terminal instruction found scanning
	// forward through 'U' territory (consuming - deleting - any ctl
	// boundaries found along the way), or up to the next 'c' block.
	for {
		done := true
		for _, b := range blocksOf(ctls, end) {
			if b.typ != ctlfile.Code {
				continue
			}
			last := lastInstructionIn(snap, b.start, b.end)
			if last.Size() > 0 && IsTerminal(last) {
				continue
			}
			reached := findTerminalInstruction(snap, ctls, b.end, end, 0)
			if reached < end {
				done = false
				break
			}
		}
		if done {
			break
		}
	}

	// (3) promote 'U' entry points that are CALLed/JPed to from 'c' code,
	// iterating to a fixed point: each promotion can expose new referrers.
	for {
		promoted := promoteReferencedEntries(snap, ctls, end)
		if !promoted {
			break
		}
	}

	// (4) split 'c' blocks at each terminal instruction so every 'c' ctl
	// entry corresponds to one straight-line run.
	splitCodeBlocksAtTerminals(snap, ctls, end)

	// (6)/(7) resolve every remaining 'U' span to 't'/'s'/'b'.
	resolveUnknownSpans(snap, ctls, end)

	delete(ctls, end)
	return ctls
}

// codeBlocks merges the sorted executed addresses into contiguous
// (address, length) runs, the way _get_code_blocks folds adjacent
// instructions from the trace into one block.
func codeBlocks(snap Peeker, executed []int) map[int]int {
	sorted := append([]int(nil), executed...)
	sort.Ints(sorted)
	blocks := map[int]int{}
	var curStart, curEnd int
	have := false
	for _, addr := range sorted {
		dec := z80asm.DecodeOne(snap, addr)
		size := dec.Size()
		if size == 0 {
			continue
		}
		if have && addr <= curEnd {
			if addr == curEnd {
				curEnd += size
				blocks[curStart] = curEnd - curStart
			}
			continue
		}
		curStart, curEnd = addr, addr+size
		blocks[curStart] = size
		have = true
	}
	return blocks
}

func lastInstructionIn(snap Peeker, start, end int) z80asm.Decoded {
	var last z80asm.Decoded
	addr := start
	for addr < end {
		dec := z80asm.DecodeOne(snap, addr)
		if dec.Size() == 0 {
			break
		}
		last = dec
		addr += dec.Size()
	}
	return last
}

// findTerminalInstruction scans forward from start, deleting any ctl
// boundary it passes over (folding the classified-but-not-yet-terminated
// block into the scan), until it decodes a terminal instruction or reaches
// an existing 'c' block. ctlValue, if nonzero, is the type to assign the
// address just past the terminal instruction found; zero means "reuse
// whatever ctl the scan most recently deleted".
func findTerminalInstruction(snap Peeker, ctls map[int]ctlfile.BlockType, start, end int, ctlValue ctlfile.BlockType) int {
	address := start
	var nextCtl ctlfile.BlockType
	for address < end {
		dec := z80asm.DecodeOne(snap, address)
		if dec.Size() == 0 {
			break
		}
		next := dec.Address + dec.Size()
		for a := dec.Address; a < next; a++ {
			if t, ok := ctls[a]; ok {
				nextCtl = t
				delete(ctls, a)
			}
		}
		if ctls[next] == ctlfile.Code {
			return next
		}
		if IsTerminal(dec) {
			if next < 65536 {
				if _, exists := ctls[next]; !exists {
					if ctlValue != 0 {
						ctls[next] = ctlValue
					} else {
						ctls[next] = nextCtl
					}
				}
			}
			return next
		}
		address = next
	}
	return address
}

// promoteReferencedEntries decodes the current ctl map into a disassembly
// and marks any 'U' entry CALLed or JPed to from 'c' code as 'c' itself.
// Every candidate found in one pass is promoted together, so the result does
// not depend on which referrer is seen first; a target that lies inside a
// 'U' span rather than at its start is not promoted.
func promoteReferencedEntries(snap Peeker, ctls map[int]ctlfile.BlockType, end int) bool {
	blocks := blocksOf(ctls, end)
	toPromote := map[int]bool{}
	for _, b := range blocks {
		if b.typ != ctlfile.Code {
			continue
		}
		addr := b.start
		for addr < b.end {
			dec := z80asm.DecodeOne(snap, addr)
			if dec.Size() == 0 {
				break
			}
			if target, ok := branchTarget(dec.Operation); ok {
				if ctls[target] == unknown {
					toPromote[target] = true
				}
			}
			addr += dec.Size()
		}
	}
	if len(toPromote) == 0 {
		return false
	}
	for addr := range toPromote {
		ctls[addr] = ctlfile.Code
	}
	return true
}

func splitCodeBlocksAtTerminals(snap Peeker, ctls map[int]ctlfile.BlockType, end int) {
	for _, b := range blocksOf(ctls, end) {
		if b.typ != ctlfile.Code {
			continue
		}
		addr := b.start
		for addr < b.end {
			dec := z80asm.DecodeOne(snap, addr)
			if dec.Size() == 0 {
				break
			}
			next := addr + dec.Size()
			if IsTerminal(dec) && next < b.end {
				if _, exists := ctls[next]; !exists {
					ctls[next] = ctlfile.Code
				}
			}
			addr = next
		}
	}
}

func resolveUnknownSpans(snap Peeker, ctls map[int]ctlfile.BlockType, end int) {
	for _, b := range blocksOf(ctls, end) {
		if b.typ != unknown {
			continue
		}
		data := readRange(snap, b.start, b.end)
		switch {
		case allZero(data):
			ctls[b.start] = ctlfile.Space
		case looksLikeText(data):
			ctls[b.start] = ctlfile.Text
		default:
			ctls[b.start] = ctlfile.Byte
		}
	}
}

func readRange(snap Peeker, start, end int) []byte {
	if end < start {
		end = start
	}
	data := make([]byte, end-start)
	for i := range data {
		data[i] = snap.Peek(start + i)
	}
	return data
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return len(data) > 0
}

// branchTarget extracts the literal numeric destination of a CALL or JP
// (conditional or not), mirroring the referrer edges the promotion phase
// cares about. JR/DJNZ targets stay local to their own 'c' block and are
// not promotion candidates.
func branchTarget(operation string) (int, bool) {
	op, rest := splitMnemonic(operation)
	if op != "CALL" && op != "JP" {
		return 0, false
	}
	return trailingNumber(rest)
}
