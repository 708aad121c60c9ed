// Package directive interprets the '@'-prefixed asm directives that appear
// in skool files: the isub/ssub/rsub/ofix/bfix/rfix substitution directives,
// @keep, @nowarn, @org, @if, @remote, and the @defb/@defs/@defw data
// directives. It is grounded on the directive dispatch in BinWriter's
// _parse_asm_directive (skool2bin.py) and on the weight table computed in
// BinWriter.__init__.
package directive

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode holds the two independent knobs that select which substitution and
// fix directives are honoured: AsmMode 0..3 for isub/ssub/rsub, FixMode 0..3
// for ofix/bfix/rfix. NewMode applies the same coupling rule BinWriter does:
// fix_mode > 2 forces asm_mode to 3 (rfix implies rsub), and asm_mode > 2
// raises fix_mode to at least 1 (rsub implies ofix).
type Mode struct {
	Asm int
	Fix int
}

// NewMode applies the fix_mode/asm_mode coupling rule from BinWriter.__init__.
func NewMode(asmMode, fixMode int) Mode {
	if fixMode > 2 {
		asmMode = 3
	} else if asmMode > 2 && fixMode < 1 {
		fixMode = 1
	}
	return Mode{Asm: asmMode, Fix: fixMode}
}

// Weights computes the directive-name -> priority map used to pick which of
// several competing sub/fix directives on one instruction line wins: the
// directive with the highest nonzero weight for the active Mode is applied,
// and weight 0 means the directive category is not active at all.
func (m Mode) Weights() map[string]int {
	w := map[string]int{
		"isub": 0,
		"ssub": 0,
		"rsub": 0,
		"ofix": 0,
		"bfix": 0,
		"rfix": 0,
	}
	if m.Asm > 0 {
		w["isub"] = 1
	}
	if m.Asm > 1 {
		w["ssub"] = 2
	}
	if m.Asm > 2 {
		w["rsub"] = 3
	}
	if m.Fix > 0 {
		w["ofix"] = 4
	}
	if m.Fix > 1 {
		w["bfix"] = 5
	}
	if m.Fix > 2 {
		w["rfix"] = 6
	}
	return w
}

// Fields exposes asm/fix mode values to the @if(...) condition evaluator.
func (m Mode) Fields() map[string]int {
	return map[string]int{"asm": m.Asm, "fix": m.Fix}
}

// SubFix describes one parsed @isub=/@ssub=/... /@ofix=/@bfix=/@rfix= value:
// whether the replacement operation is inserted before the original
// instruction (prepend), after it (append), or in its place (overwrite).
type SubFix struct {
	Prepend   bool
	Append    bool
	Overwrite bool
	Operation string
}

// ParseSubFix parses the value half of a sub/fix directive
// (everything after "isub=" etc). A leading '>' marks a prepended
// instruction inserted before the original; a leading '+' marks one
// appended after it. With neither prefix the operation overwrites the
// original instruction in place. An empty operation after stripping the
// prefix does not delete anything: BinWriter falls back to the unmodified
// original operation for an empty replacement and skips empty prepended or
// appended operations.
func ParseSubFix(value string) SubFix {
	value = strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(value, ">"):
		return SubFix{Prepend: true, Operation: strings.TrimSpace(value[1:])}
	case strings.HasPrefix(value, "+"):
		return SubFix{Append: true, Operation: strings.TrimSpace(value[1:])}
	default:
		return SubFix{Overwrite: true, Operation: value}
	}
}

// ParseAddressRange parses the comma-separated list of "addr" or
// "addr-addr" tokens used by the '!' removal form of a sub/fix directive
// value (e.g. "@isub=!30000-30010,30020") into the set of addresses it
// names.
func ParseAddressRange(s string) (map[int]bool, error) {
	out := map[int]bool{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if i := strings.Index(tok, "-"); i > 0 {
			lo, err := strconv.Atoi(tok[:i])
			if err != nil {
				return nil, fmt.Errorf("invalid address range %q", tok)
			}
			hi, err := strconv.Atoi(tok[i+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid address range %q", tok)
			}
			for a := lo; a <= hi; a++ {
				out[a] = true
			}
		} else {
			a, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid address %q", tok)
			}
			out[a] = true
		}
	}
	return out, nil
}

// Keep records a @keep directive: either "keep everything referenced"
// (Addresses == nil) or an explicit address list.
type Keep struct {
	Addresses []int
}

// ParseKeep parses "@keep" or "@keep=addr[,addr...]".
func ParseKeep(directive string) Keep {
	_, value, _ := strings.Cut(directive, "=")
	value = strings.TrimSpace(value)
	if value == "" {
		return Keep{}
	}
	var addrs []int
	for _, tok := range strings.Split(value, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(tok)); err == nil {
			addrs = append(addrs, n)
		}
	}
	return Keep{Addresses: addrs}
}

// RemoteEntry is a parsed @remote directive: a remote bank/location name and
// the addresses it declares as existing (but not disassembled) entry points.
type RemoteEntry struct {
	Location  string
	Addresses []int
}

// ParseRemote parses "@remote=location:addr[,addr...]".
func ParseRemote(directive string) (RemoteEntry, error) {
	value := strings.TrimPrefix(directive, "remote=")
	loc, addrList, _ := strings.Cut(value, ":")
	var addrs []int
	for _, tok := range strings.Split(addrList, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return RemoteEntry{}, fmt.Errorf("invalid remote address %q", tok)
		}
		addrs = append(addrs, n)
	}
	if len(addrs) == 0 {
		return RemoteEntry{}, fmt.Errorf("remote directive names no addresses")
	}
	return RemoteEntry{Location: loc, Addresses: addrs}, nil
}

// ParseOrg parses "@org" or "@org=nnnn" into (address, set). set is false
// for bare "@org" (reset to unknown/natural flow).
func ParseOrg(directive string) (int, bool, error) {
	_, value, found := strings.Cut(directive, "=")
	if !found || strings.TrimSpace(value) == "" {
		return 0, false, nil
	}
	n, err := ParseNumber(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("invalid org address: %s", value)
	}
	return n, true, nil
}

// ParseNumber mirrors skool text's get_int_param: decimal, or $/#-prefixed
// hex.
func ParseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") || strings.HasPrefix(s, "#") {
		v, err := strconv.ParseInt(s[1:], 16, 32)
		return int(v), err
	}
	return strconv.Atoi(s)
}

// IsDataDirective reports whether directive is a @defb=/@defs=/@defw= line.
func IsDataDirective(directive string) bool {
	return strings.HasPrefix(directive, "defb=") ||
		strings.HasPrefix(directive, "defs=") ||
		strings.HasPrefix(directive, "defw=")
}

// IsSubFixDirective reports whether directive is one of the six
// isub=/ssub=/rsub=/ofix=/bfix=/rfix= forms, returning its 4-character name.
func IsSubFixDirective(directive string) (string, bool) {
	for _, name := range []string{"isub", "ssub", "rsub", "ofix", "bfix", "rfix"} {
		if strings.HasPrefix(directive, name+"=") {
			return name, true
		}
	}
	return "", false
}
