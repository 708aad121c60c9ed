// Package z80asm is the Z80 instruction oracle: it sizes, assembles and
// decodes one mnemonic at a time. spec.md treats this concern as an external
// collaborator (the "assembler"/"disassembler" leaf libraries); no Go
// library on the retrieval pack covers this exact text<->bytes contract, so
// it is implemented here, grounded on the table-driven opcode idiom of the
// teacher's opcodes.go (value/name/length/addressing-mode rows) and on the
// byte layout documented in retroenv/retrogolib's z80 package.
package z80asm

import "strings"

// reg8 maps an 8-bit register name to its 3-bit encoding used throughout
// the unprefixed and CB-prefixed instruction spaces. (HL) is included at
// code 6 because most tables treat it uniformly with the plain registers.
var reg8 = map[string]byte{
	"B": 0, "C": 1, "D": 2, "E": 3, "H": 4, "L": 5, "(HL)": 6, "A": 7,
}

var reg8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// reg16SP maps a 16-bit register pair name to its 2-bit encoding for
// instructions that use SP as the 4th pair (LD dd,nn; INC/DEC ss; ADD HL,ss).
var reg16SP = map[string]byte{"BC": 0, "DE": 1, "HL": 2, "SP": 3}
var reg16SPNames = [4]string{"BC", "DE", "HL", "SP"}

// reg16AF maps a 16-bit register pair name to its 2-bit encoding for
// PUSH/POP, where the 4th pair is AF rather than SP.
var reg16AF = map[string]byte{"BC": 0, "DE": 1, "HL": 2, "AF": 3}
var reg16AFNames = [4]string{"BC", "DE", "HL", "AF"}

// cond maps a condition mnemonic to its 3-bit encoding (used by JP cc,nn,
// CALL cc,nn, RET cc) and the 2-bit subset used by JR cc,d.
var cond = map[string]byte{"NZ": 0, "Z": 1, "NC": 2, "C": 3, "PO": 4, "PE": 5, "P": 6, "M": 7}
var condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var jrCond = map[string]byte{"NZ": 0, "Z": 1, "NC": 2, "C": 3}
var jrCondNames = [4]string{"NZ", "Z", "NC", "C"}

// aluOps in their unprefixed-table order (opcode bits 543 of 0x80-0xBF and
// the immediate forms): ADD, ADC, SUB, SBC, AND, XOR, OR, CP.
var aluOps = []string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}

// rotOps are the CB-prefixed rotate/shift mnemonics in opcode order.
var rotOps = []string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func isReg8(s string) bool {
	_, ok := reg8[upper(s)]
	return ok
}

func splitOperands(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	var parts []string
	depth := 0
	start := 0
	for i, c := range rest {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(rest[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(rest[start:]))
	return parts
}
