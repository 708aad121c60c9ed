package classify

import (
	"testing"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/z80asm"
)

type fakeSnap struct {
	mem [65536]byte
}

func (s *fakeSnap) Peek(address int) byte { return s.mem[address&0xFFFF] }

func newSnap(org int, bytes ...byte) *fakeSnap {
	s := &fakeSnap{}
	for i, b := range bytes {
		s.mem[org+i] = b
	}
	return s
}

func TestWithCodeMapSimpleRoutine(t *testing.T) {
	// 30000: CALL 30010 ; 30003: RET
	// 30010: LD A,5 ; 30012: RET
	s := newSnap(30000, 0xCD, 0x3A, 0x75, 0xC9)
	s.mem[30010] = 0x3E // LD A,n
	s.mem[30011] = 0x05
	s.mem[30012] = 0xC9 // RET

	executed := []int{30000, 30003, 30010, 30012}
	ctls := WithCodeMap(s, 30000, 30013, executed)

	if ctls[30000] != ctlfile.Code {
		t.Fatalf("expected 30000 to be code, got %q", ctls[30000])
	}
	if ctls[30010] != ctlfile.Code {
		t.Fatalf("expected 30010 (executed CALL target) to be code, got %q", ctls[30010])
	}
}

func TestWithCodeMapUnexecutedTail(t *testing.T) {
	s := newSnap(40000, 0xC9) // RET
	// bytes after the RET, never executed, all zero -> should resolve to 's'
	executed := []int{40000}
	ctls := WithCodeMap(s, 40000, 40010, executed)
	if ctls[40000] != ctlfile.Code {
		t.Fatalf("expected entry point to be code, got %q", ctls[40000])
	}
	if typ, ok := ctls[40001]; ok && typ != ctlfile.Space {
		t.Fatalf("expected trailing unexecuted zero run to resolve to space, got %q", typ)
	}
}

func TestWithoutCodeMapBasic(t *testing.T) {
	// 50000: RET (0xC9) terminates the first block.
	// 50001: a short run of zero bytes (looks like a NOP run / zero block).
	// 50010: RET again, terminating the second block.
	s := newSnap(50000, 0xC9)
	for i := 50001; i < 50010; i++ {
		s.mem[i] = 0x00
	}
	s.mem[50010] = 0xC9

	ctls := WithoutCodeMap(s, 50000, 50011)
	if _, ok := ctls[50000]; !ok {
		t.Fatalf("expected a block starting at 50000, got %v", ctls)
	}
}

func TestIsTerminal(t *testing.T) {
	s := newSnap(0, 0xC9) // RET
	dec := z80asm.DecodeOne(s, 0)
	if !IsTerminal(dec) {
		t.Fatal("expected RET to be terminal")
	}
}

func TestLooksLikeText(t *testing.T) {
	if !looksLikeText([]byte("HELLO, WORLD.")) {
		t.Fatal("expected readable sentence to look like text")
	}
	if looksLikeText([]byte{0x00, 0x00, 0x00, 0x00}) {
		t.Fatal("did not expect a run of zero bytes to look like text")
	}
}

func TestLooksLikeData(t *testing.T) {
	if !looksLikeData([]byte{1, 1, 1, 1, 1}) {
		t.Fatal("expected a long run of identical bytes to look like data")
	}
	if looksLikeData([]byte{1, 2, 3}) {
		t.Fatal("did not expect a short varied run to look like data")
	}
}
