// Package classify turns a code-executed address set (or, lacking one, raw
// heuristics) into a ctl block-type map via the fixed-point algorithms
// snaskool.py calls _generate_ctls_with_code_map and
// _generate_ctls_without_code_map.
package classify

import "github.com/dma-homebrew/skoolkit/internal/z80asm"

// IsTerminal reports whether the decoded instruction ends a straight-line
// run of code: an unconditional RET/JP nn/JP (HL), RETN/RETI, JP (IX)/(IY),
// or an unconditional JR with a nonzero displacement (JR 0 simply continues
// at the next instruction, so it does not end the run).
func IsTerminal(d z80asm.Decoded) bool {
	b := d.Bytes
	if len(b) == 0 {
		return false
	}
	switch b[0] {
	case 0xC3, 0xC9, 0xE9: // JP nn, RET, JP (HL)
		return true
	}
	if len(b) == 2 {
		if b[0] == 0xED {
			switch b[1] {
			case 0x45, 0x4D, 0x55, 0x5D, 0x65, 0x6D, 0x75, 0x7D: // RETN/RETI
				return true
			}
		}
		if (b[0] == 0xDD || b[0] == 0xFD) && b[1] == 0xE9 { // JP (IX)/(IY)
			return true
		}
		if b[0] == 0x18 && b[1] != 0 { // JR d, d != 0
			return true
		}
	}
	return false
}
