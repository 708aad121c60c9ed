package disasm

import (
	"strconv"
	"strings"
)

// operandTarget extracts the literal destination address from a CALL, JP,
// JR, or DJNZ operation's decoded text, the instruction classes whose
// operand is meaningful as a referrer edge. Conditional forms ("JP Z,30000")
// are handled by taking the text after the last comma.
func operandTarget(operation string) (int, bool) {
	op, rest := splitMnemonic(operation)
	switch op {
	case "CALL", "JP", "JR", "DJNZ":
	default:
		return 0, false
	}
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

func splitMnemonic(operation string) (string, string) {
	operation = strings.TrimSpace(operation)
	i := strings.IndexAny(operation, " \t")
	if i < 0 {
		return strings.ToUpper(operation), ""
	}
	return strings.ToUpper(operation[:i]), strings.TrimSpace(operation[i+1:])
}
