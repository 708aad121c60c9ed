package binwriter

import (
	"bytes"
	"testing"
)

func assemble(t *testing.T, skool string, opts Options) *BinWriter {
	t.Helper()
	bw, err := New(skool, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return bw
}

func TestSingleNop(t *testing.T) {
	bw := assemble(t, "c30000 NOP\n", Options{})
	var buf bytes.Buffer
	start, end, err := bw.Write(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if start != 30000 || end != 30001 {
		t.Fatalf("start=%d end=%d", start, end)
	}
	if buf.Bytes()[0] != 0x00 {
		t.Errorf("expected NOP byte 0x00, got %#x", buf.Bytes()[0])
	}
}

func TestSingleRet(t *testing.T) {
	bw := assemble(t, "c40000 RET\n", Options{})
	var buf bytes.Buffer
	_, _, err := bw.Write(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Bytes()[0] != 0xC9 {
		t.Errorf("expected RET byte 0xC9, got %#x", buf.Bytes()[0])
	}
}

func TestJrSelfLoop(t *testing.T) {
	bw := assemble(t, "c30000 JR 30000\n", Options{})
	var buf bytes.Buffer
	_, _, err := bw.Write(&buf)
	if err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if b[0] != 0x18 || b[1] != 0xFE {
		t.Errorf("expected JR -2 (18 FE), got %#x %#x", b[0], b[1])
	}
}

func TestIsubPromotion(t *testing.T) {
	skool := "@isub=LD A,1\nc30000 LD A,0\n"
	bwNoSub := assemble(t, skool, Options{})
	var bufNoSub bytes.Buffer
	bwNoSub.Write(&bufNoSub)
	if bufNoSub.Bytes()[1] != 0 {
		t.Errorf("without --isub, operand should stay 0, got %d", bufNoSub.Bytes()[1])
	}

	bwSub := assemble(t, skool, Options{AsmMode: 1})
	var bufSub bytes.Buffer
	bwSub.Write(&bufSub)
	if bufSub.Bytes()[1] != 1 {
		t.Errorf("with --isub, operand should become 1, got %d", bufSub.Bytes()[1])
	}
}

func TestLabelAddressRemap(t *testing.T) {
	skool := "c30000 NOP\nc30001 JP 30000\n"
	bw := assemble(t, skool, Options{})
	var buf bytes.Buffer
	bw.Write(&buf)
	b := buf.Bytes()
	if b[1] != 0xC3 || int(b[2])|int(b[3])<<8 != 30000 {
		t.Errorf("JP target should resolve to 30000, got bytes %v", b[1:4])
	}
}

func TestOfixOverwrite(t *testing.T) {
	skool := "@ofix=INC A\nc30000 DEC A\n"

	bwNoFix := assemble(t, skool, Options{})
	var bufNoFix bytes.Buffer
	bwNoFix.Write(&bufNoFix)
	if bufNoFix.Bytes()[0] != 0x3D {
		t.Errorf("without --ofix, DEC A (0x3D) should remain, got %#x", bufNoFix.Bytes()[0])
	}

	bwFix := assemble(t, skool, Options{FixMode: 1})
	var bufFix bytes.Buffer
	bwFix.Write(&bufFix)
	if bufFix.Bytes()[0] != 0x3C {
		t.Errorf("with --ofix, INC A (0x3C) should overwrite DEC A, got %#x", bufFix.Bytes()[0])
	}
}
