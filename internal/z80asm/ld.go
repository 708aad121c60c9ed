package z80asm

import (
	"fmt"
	"strings"
)

// assembleLD covers the LD instruction space: 8-bit reg/mem transfers,
// 16-bit immediate and memory loads, and the IX/IY indexed variants.
func assembleLD(operands []string) ([]byte, error) {
	if len(operands) != 2 {
		return nil, fmt.Errorf("LD requires two operands")
	}
	dst, src := operands[0], operands[1]
	du, su := upper(dst), upper(src)

	// LD A,I / LD A,R / LD I,A / LD R,A
	switch {
	case du == "A" && su == "I":
		return []byte{0xED, 0x57}, nil
	case du == "A" && su == "R":
		return []byte{0xED, 0x5F}, nil
	case du == "I" && su == "A":
		return []byte{0xED, 0x47}, nil
	case du == "R" && su == "A":
		return []byte{0xED, 0x4F}, nil
	}

	// LD SP,HL / LD SP,IX / LD SP,IY
	if du == "SP" {
		switch su {
		case "HL":
			return []byte{0xF9}, nil
		case "IX":
			return []byte{0xDD, 0xF9}, nil
		case "IY":
			return []byte{0xFD, 0xF9}, nil
		}
	}

	// LD dd,(nn) / LD (nn),dd for BC, DE, SP (HL has its own short form)
	if r, ok := reg16SP[du]; ok && isMemOperand(src) && !isIndexed16(su) {
		n, err := parseNumber(memInner(src))
		if err != nil {
			return nil, err
		}
		if du == "HL" {
			return []byte{0x2A, lo(n), hi(n)}, nil
		}
		return []byte{0xED, 0x4B | r<<4, lo(n), hi(n)}, nil
	}
	if r, ok := reg16SP[su]; ok && isMemOperand(dst) {
		n, err := parseNumber(memInner(dst))
		if err != nil {
			return nil, err
		}
		if su == "HL" {
			return []byte{0x22, lo(n), hi(n)}, nil
		}
		return []byte{0xED, 0x43 | r<<4, lo(n), hi(n)}, nil
	}

	// LD IX,(nn) / LD (nn),IX  and LD IX,nn
	if ixy, ok := isIndex16(du); ok {
		if isMemOperand(src) {
			n, err := parseNumber(memInner(src))
			if err != nil {
				return nil, err
			}
			return []byte{indexPrefix(ixy), 0x2A, lo(n), hi(n)}, nil
		}
		n, err := parseNumber(src)
		if err != nil {
			return nil, err
		}
		return []byte{indexPrefix(ixy), 0x21, lo(n), hi(n)}, nil
	}
	if ixy, ok := isIndex16(su); ok {
		if isMemOperand(dst) {
			n, err := parseNumber(memInner(dst))
			if err != nil {
				return nil, err
			}
			return []byte{indexPrefix(ixy), 0x22, lo(n), hi(n)}, nil
		}
	}

	// LD dd,nn (16-bit immediate: BC, DE, HL, SP)
	if r, ok := reg16SP[du]; ok && !isMemOperand(src) {
		n, err := parseNumber(src)
		if err != nil {
			return nil, err
		}
		return []byte{0x01 | r<<4, lo(n), hi(n)}, nil
	}

	// LD A,(BC) / LD A,(DE) / LD (BC),A / LD (DE),A
	if du == "A" && (su == "(BC)" || su == "(DE)") {
		if su == "(BC)" {
			return []byte{0x0A}, nil
		}
		return []byte{0x1A}, nil
	}
	if su == "A" && (du == "(BC)" || du == "(DE)") {
		if du == "(BC)" {
			return []byte{0x02}, nil
		}
		return []byte{0x12}, nil
	}

	// LD A,(nn) / LD (nn),A
	if du == "A" && isMemOperand(src) && !isIndexed16(su) {
		n, err := parseNumber(memInner(src))
		if err != nil {
			return nil, err
		}
		return []byte{0x3A, lo(n), hi(n)}, nil
	}
	if su == "A" && isMemOperand(dst) && !isIndexed16(du) {
		n, err := parseNumber(memInner(dst))
		if err != nil {
			return nil, err
		}
		return []byte{0x32, lo(n), hi(n)}, nil
	}

	// LD (IX+d),n / LD (IX+d),r / LD r,(IX+d)
	if ixy, ok := isIndexed(dst); ok {
		d, err := indexDisplacement(dst)
		if err != nil {
			return nil, err
		}
		if r, ok := reg8[su]; ok && su != "(HL)" {
			return []byte{indexPrefix(ixy), 0x70 | r, byte(int8(d))}, nil
		}
		n, err := parseNumber(src)
		if err != nil {
			return nil, err
		}
		return []byte{indexPrefix(ixy), 0x36, byte(int8(d)), byte(n)}, nil
	}
	if ixy, ok := isIndexed(src); ok {
		d, err := indexDisplacement(src)
		if err != nil {
			return nil, err
		}
		r, ok := reg8[du]
		if !ok || du == "(HL)" {
			return nil, fmt.Errorf("unsupported LD target for indexed source: %s", dst)
		}
		return []byte{indexPrefix(ixy), 0x46 | r<<3, byte(int8(d))}, nil
	}

	// LD r,r' / LD r,(HL) / LD (HL),r / LD r,n / LD (HL),n
	dr, dok := reg8[du]
	sr, sok := reg8[su]
	if dok && sok {
		if du == "(HL)" && su == "(HL)" {
			return nil, fmt.Errorf("LD (HL),(HL) is not a valid instruction (it is HALT)")
		}
		return []byte{0x40 | dr<<3 | sr}, nil
	}
	if dok {
		n, err := parseNumber(src)
		if err != nil {
			return nil, fmt.Errorf("unsupported LD operands: %s,%s", dst, src)
		}
		return []byte{0x06 | dr<<3, byte(n)}, nil
	}

	return nil, fmt.Errorf("unsupported LD operands: %s,%s", dst, src)
}

func isMemOperand(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

func memInner(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
}

func isIndex16(u string) (string, bool) {
	if u == "IX" || u == "IY" {
		return u, true
	}
	return "", false
}

func isIndexed16(u string) bool {
	return u == "(IX)" || u == "(IY)"
}
