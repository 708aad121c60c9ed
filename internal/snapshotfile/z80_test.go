package snapshotfile

import (
	"bytes"
	"testing"

	"github.com/dma-homebrew/skoolkit/internal/memory"
)

func newTestMem() *memory.Snapshot { return memory.New() }

func TestPackUnpackRLERoundTrip(t *testing.T) {
	data := make([]byte, 0, 100)
	data = append(data, 1, 2, 3)
	for i := 0; i < 10; i++ {
		data = append(data, 0xAA)
	}
	data = append(data, 0xED, 4, 5)

	packed := packRLE(data)
	got := unpackRLE(packed)
	if !bytes.Equal(got, data) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got, data)
	}
}

func TestPackRLEEscapesLiteralED(t *testing.T) {
	packed := packRLE([]byte{0xED})
	want := []byte{0xED, 0xED, 0x01, 0xED}
	if !bytes.Equal(packed, want) {
		t.Fatalf("got %v, want %v", packed, want)
	}
}

func buildV1Header(compressed bool) []byte {
	h := make([]byte, 30)
	h[0] = 0x12              // A
	h[1] = 0x34              // F
	h[6], h[7] = 0x00, 0x80  // PC = 0x8000 (non-zero -> v1)
	h[8], h[9] = 0x00, 0xFF  // SP = 0xFF00
	flags := byte(0)
	if compressed {
		flags |= 0x20
	}
	h[12] = flags
	return h
}

func TestReadZ80V1Uncompressed(t *testing.T) {
	header := buildV1Header(false)
	ram := make([]byte, 0xC000)
	ram[0] = 0xC9 // byte at 0x4000
	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(ram)

	snap, err := ReadZ80(&buf)
	if err != nil {
		t.Fatalf("ReadZ80: %v", err)
	}
	if snap.Regs.PC != 0x8000 {
		t.Fatalf("expected PC 0x8000, got %#x", snap.Regs.PC)
	}
	if got := snap.Mem.Peek(0x4000); got != 0xC9 {
		t.Fatalf("expected byte 0xC9 at 0x4000, got %#x", got)
	}
}

func TestReadZ80V1Compressed(t *testing.T) {
	header := buildV1Header(true)
	ram := make([]byte, 0xC000)
	for i := range ram {
		ram[i] = 0 // long zero run compresses well
	}
	ram[100] = 0x42
	compressed := packRLE(ram)
	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(compressed)
	buf.Write([]byte{0x00, 0xED, 0xED, 0x00})

	snap, err := ReadZ80(&buf)
	if err != nil {
		t.Fatalf("ReadZ80: %v", err)
	}
	if got := snap.Mem.Peek(0x4000 + 100); got != 0x42 {
		t.Fatalf("expected byte 0x42 at 0x4064, got %#x", got)
	}
}

func TestWriteZ80V1RoundTrip(t *testing.T) {
	header := buildV1Header(false)
	ram := make([]byte, 0xC000)
	ram[5] = 0x99
	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(ram)

	snap, err := ReadZ80(&buf)
	if err != nil {
		t.Fatalf("ReadZ80: %v", err)
	}

	var out bytes.Buffer
	if err := WriteZ80(&out, snap); err != nil {
		t.Fatalf("WriteZ80: %v", err)
	}

	snap2, err := ReadZ80(&out)
	if err != nil {
		t.Fatalf("re-reading written snapshot: %v", err)
	}
	if snap2.Regs.PC != snap.Regs.PC {
		t.Fatalf("PC mismatch after round-trip: got %#x, want %#x", snap2.Regs.PC, snap.Regs.PC)
	}
	if got := snap2.Mem.Peek(0x4005); got != 0x99 {
		t.Fatalf("expected byte 0x99 at 0x4005 after round-trip, got %#x", got)
	}
}

func TestMoveAndPoke(t *testing.T) {
	snap := &Snapshot{Mem: newTestMem()}
	snap.Mem.Poke(100, []byte{1, 2, 3})

	if err := Move(snap, "100,3,200"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := snap.Mem.Peek(201); got != 2 {
		t.Fatalf("expected moved byte 2 at 201, got %d", got)
	}

	if err := Poke(snap, "300-303,9"); err != nil {
		t.Fatalf("Poke: %v", err)
	}
	for addr := 300; addr <= 303; addr++ {
		if got := snap.Mem.Peek(addr); got != 9 {
			t.Fatalf("expected 9 at %d, got %d", addr, got)
		}
	}

	snap.Mem.Poke(400, []byte{0x0F})
	if err := Poke(snap, "400,^$FF"); err != nil {
		t.Fatalf("Poke xor: %v", err)
	}
	if got := snap.Mem.Peek(400); got != 0xF0 {
		t.Fatalf("expected XOR result 0xF0, got %#x", got)
	}
}

func TestSetRegisterAndState(t *testing.T) {
	snap := &Snapshot{Mem: newTestMem()}
	if err := SetRegister(snap, "hl=30000"); err != nil {
		t.Fatalf("SetRegister: %v", err)
	}
	if snap.Regs.HL != 30000 {
		t.Fatalf("expected HL 30000, got %d", snap.Regs.HL)
	}
	if err := SetState(snap, "border=5"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if snap.Regs.Border != 5 {
		t.Fatalf("expected border 5, got %d", snap.Regs.Border)
	}
}
