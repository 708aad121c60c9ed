package snapshotfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Move implements snapmod's -m src,size,dest spec: copy size bytes from src
// to dest within the snapshot's memory image.
func Move(snap *Snapshot, spec string) error {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return fmt.Errorf("invalid move spec %q: expected src,size,dest", spec)
	}
	src, err := parseAddr(parts[0])
	if err != nil {
		return fmt.Errorf("invalid move src %q: %w", parts[0], err)
	}
	size, err := parseAddr(parts[1])
	if err != nil {
		return fmt.Errorf("invalid move size %q: %w", parts[1], err)
	}
	dest, err := parseAddr(parts[2])
	if err != nil {
		return fmt.Errorf("invalid move dest %q: %w", parts[2], err)
	}
	data := snap.Mem.Slice(src, src+size)
	snap.Mem.Poke(dest, data)
	return nil
}

// PokeOp is the operator carried by a -p spec's value: plain overwrite, or
// a prefixed ^ (XOR) / + (ADD) combinator against the existing byte.
type PokeOp int

const (
	PokeSet PokeOp = iota
	PokeXOR
	PokeAdd
)

// Poke implements snapmod's -p a[-b[-c]],[^+]v spec: POKE n,v for n in
// {a, a+c, a+2c, ..., b}, where the range defaults to a single address
// (b=a) and a default step c=1.
func Poke(snap *Snapshot, spec string) error {
	addrPart, valuePart, ok := strings.Cut(spec, ",")
	if !ok {
		return fmt.Errorf("invalid poke spec %q: expected address,value", spec)
	}
	start, end, step, err := parseAddrRange(addrPart)
	if err != nil {
		return fmt.Errorf("invalid poke address %q: %w", addrPart, err)
	}
	op, value, err := parsePokeValue(valuePart)
	if err != nil {
		return fmt.Errorf("invalid poke value %q: %w", valuePart, err)
	}
	for addr := start; addr <= end; addr += step {
		switch op {
		case PokeXOR:
			snap.Mem.Poke(addr, []byte{snap.Mem.Peek(addr) ^ value})
		case PokeAdd:
			snap.Mem.Poke(addr, []byte{snap.Mem.Peek(addr) + value})
		default:
			snap.Mem.Poke(addr, []byte{value})
		}
	}
	return nil
}

func parsePokeValue(s string) (PokeOp, byte, error) {
	if s == "" {
		return PokeSet, 0, fmt.Errorf("empty value")
	}
	op := PokeSet
	switch s[0] {
	case '^':
		op = PokeXOR
		s = s[1:]
	case '+':
		op = PokeAdd
		s = s[1:]
	}
	n, err := parseAddr(s)
	if err != nil {
		return PokeSet, 0, err
	}
	return op, byte(n), nil
}

func parseAddrRange(s string) (start, end, step int, err error) {
	parts := strings.Split(s, "-")
	start, err = parseAddr(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	end, step = start, 1
	if len(parts) >= 2 {
		end, err = parseAddr(parts[1])
		if err != nil {
			return 0, 0, 0, err
		}
	}
	if len(parts) >= 3 {
		step, err = parseAddr(parts[2])
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return start, end, step, nil
}

func parseAddr(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseInt(s[1:], 16, 32)
		return int(v), err
	}
	return strconv.Atoi(s)
}

// SetRegister implements snapmod's -r name=value spec against the header.
func SetRegister(snap *Snapshot, spec string) error {
	name, valueStr, ok := strings.Cut(spec, "=")
	if !ok {
		return fmt.Errorf("invalid register spec %q: expected name=value", spec)
	}
	value, err := parseAddr(valueStr)
	if err != nil {
		return fmt.Errorf("invalid register value %q: %w", valueStr, err)
	}
	r := &snap.Regs
	switch strings.ToLower(name) {
	case "a":
		r.A = byte(value)
	case "f":
		r.F = byte(value)
	case "bc":
		r.BC = value
	case "de":
		r.DE = value
	case "hl":
		r.HL = value
	case "a'", "^a":
		r.A2 = byte(value)
	case "f'", "^f":
		r.F2 = byte(value)
	case "bc'", "^bc":
		r.BC2 = value
	case "de'", "^de":
		r.DE2 = value
	case "hl'", "^hl":
		r.HL2 = value
	case "ix":
		r.IX = value
	case "iy":
		r.IY = value
	case "sp":
		r.SP = value
	case "pc":
		r.PC = value
	case "i":
		r.I = byte(value)
	case "r":
		r.R = byte(value)
	default:
		return fmt.Errorf("unrecognised register name %q", name)
	}
	return nil
}

// SetState implements snapmod's -s name=value spec: border, iff, im.
func SetState(snap *Snapshot, spec string) error {
	name, valueStr, ok := strings.Cut(spec, "=")
	if !ok {
		return fmt.Errorf("invalid state spec %q: expected name=value", spec)
	}
	value, err := parseAddr(valueStr)
	if err != nil {
		return fmt.Errorf("invalid state value %q: %w", valueStr, err)
	}
	r := &snap.Regs
	switch strings.ToLower(name) {
	case "border":
		r.Border = value & 7
	case "iff":
		r.IFF1 = value != 0
		r.IFF2 = value != 0
	case "im":
		r.IM = value & 3
	default:
		return fmt.Errorf("unrecognised state attribute %q", name)
	}
	return nil
}
