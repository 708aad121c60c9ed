package binwriter

import (
	"strconv"
	"strings"
)

// substituteLabels rewrites every instruction's operand text, replacing any
// decimal numeric literal that names a skool address present in
// addressMap with that address's resolved real-address text. This is the
// Go equivalent of the label/address-map resolution BinWriter defers to an
// InstructionUtility component for: skool text refers to addresses as they
// appear in the original skool file, and isub/ofix/etc. directives can shift
// everything downstream, so operand addresses must be remapped before the
// final assembly pass.
func substituteLabels(entries []Entry, remotes []Entry, addressMap map[int]string, asmMode int, warn Warner) {
	for ei := range entries {
		for _, inst := range entries[ei].Instructions {
			inst.Operation = substituteOperands(inst.Operation, addressMap)
		}
	}
	for ei := range remotes {
		for _, inst := range remotes[ei].Instructions {
			inst.Operation = substituteOperands(inst.Operation, addressMap)
		}
	}
}

func substituteOperands(operation string, addressMap map[int]string) string {
	var sb strings.Builder
	i := 0
	for i < len(operation) {
		c := operation[i]
		if c >= '0' && c <= '9' {
			j := i
			for j < len(operation) && operation[j] >= '0' && operation[j] <= '9' {
				j++
			}
			tok := operation[i:j]
			if n, err := strconv.Atoi(tok); err == nil {
				if real, ok := addressMap[n]; ok {
					sb.WriteString(real)
					i = j
					continue
				}
			}
			sb.WriteString(tok)
			i = j
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String()
}
