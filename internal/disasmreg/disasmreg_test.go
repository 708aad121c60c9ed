package disasmreg

import (
	"testing"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/disasm"
)

type fakeSnap struct{ mem [65536]byte }

func (s *fakeSnap) Peek(address int) byte { return s.mem[address&0xFFFF] }

func TestGetStandard(t *testing.T) {
	d, err := Get("standard")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap := &fakeSnap{}
	snap.mem[100] = 0xC9
	ctl := &ctlfile.File{Entries: []ctlfile.Entry{{Address: 100, Type: ctlfile.Code}}}
	result := d(snap, ctl)
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("nonexistent"); err == nil {
		t.Fatal("expected error for unregistered name")
	}
}

func TestRegisterCustom(t *testing.T) {
	Register("noop", func(snap Peeker, ctl *ctlfile.File) *disasm.Disassembly {
		return disasm.Build(snap, ctl)
	})
	d, err := Get("noop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap := &fakeSnap{}
	ctl := &ctlfile.File{}
	if got := d(snap, ctl); got == nil {
		t.Fatal("expected non-nil disassembly from registered variant")
	}
}
