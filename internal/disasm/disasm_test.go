package disasm

import (
	"testing"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
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

func TestBuildSimpleEntry(t *testing.T) {
	// 30000: CALL 30010 ; 30003: RET
	// 30010: NOP ; 30011: RET
	s := newSnap(30000, 0xCD, 0x3A, 0x75, 0xC9)
	s.mem[30010] = 0x00
	s.mem[30011] = 0xC9

	ctl := &ctlfile.File{Entries: []ctlfile.Entry{
		{Address: 30000, Type: ctlfile.Code, Title: "Routine A"},
		{Address: 30004, Type: ctlfile.Ignore},
		{Address: 30010, Type: ctlfile.Code, Title: "Routine B"},
		{Address: 30012, Type: ctlfile.Ignore},
	}}

	d := Build(s, ctl)
	if len(d.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(d.Entries))
	}
	e0 := d.Entries[0]
	if e0.Address != 30000 || len(e0.Blocks) != 1 {
		t.Fatalf("unexpected entry 0: %+v", e0)
	}
	if len(e0.Blocks[0].Instructions) != 2 {
		t.Fatalf("expected 2 instructions in entry 0, got %d", len(e0.Blocks[0].Instructions))
	}
	call := e0.Blocks[0].Instructions[0]
	if call.Operation != "CALL 30010" {
		t.Fatalf("unexpected operation: %q", call.Operation)
	}
	if call.Size() != 3 {
		t.Fatalf("expected CALL to be 3 bytes, got %d", call.Size())
	}

	target, ok := d.InstructionAt(30010)
	if !ok {
		t.Fatal("expected instruction at 30010")
	}
	if len(target.Referrers) != 1 || target.Referrers[0].Address != 30000 {
		t.Fatalf("expected referrer from 30000, got %+v", target.Referrers)
	}
}

func TestEntryEnd(t *testing.T) {
	s := newSnap(40000, 0x00, 0xC9) // NOP, RET
	ctl := &ctlfile.File{Entries: []ctlfile.Entry{
		{Address: 40000, Type: ctlfile.Code},
		{Address: 40002, Type: ctlfile.Ignore},
	}}
	d := Build(s, ctl)
	e := d.Entries[0]
	if e.End() != 40002 {
		t.Fatalf("expected end 40002, got %d", e.End())
	}
}

func TestIgnoreEntryHasNoBlocks(t *testing.T) {
	s := newSnap(50000, 0xC9)
	s.mem[50001] = 0xC9
	ctl := &ctlfile.File{Entries: []ctlfile.Entry{
		{Address: 50000, Type: ctlfile.Ignore},
		{Address: 50001, Type: ctlfile.Code},
		{Address: 50002, Type: ctlfile.Ignore},
	}}
	d := Build(s, ctl)
	if len(d.Entries[0].Blocks) != 0 {
		t.Fatalf("expected no blocks for ignore entry, got %d", len(d.Entries[0].Blocks))
	}
}

func TestSubBlockBoundaries(t *testing.T) {
	s := newSnap(60000, 0x00, 0x00, 0xC9) // two NOPs then RET
	ctl := &ctlfile.File{Entries: []ctlfile.Entry{
		{
			Address: 60000,
			Type:    ctlfile.Code,
			SubBlocks: []ctlfile.SubBlock{
				{Address: 60000, Length: 2, Type: ctlfile.Byte},
				{Address: 60002, Type: ctlfile.Code},
			},
		},
		{Address: 60003, Type: ctlfile.Ignore},
	}}
	d := Build(s, ctl)
	e := d.Entries[0]
	if len(e.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(e.Blocks))
	}
	if e.Blocks[0].Type != ctlfile.Byte || e.Blocks[1].Type != ctlfile.Code {
		t.Fatalf("unexpected block types: %+v", e.Blocks)
	}
}

func TestRemoveEntry(t *testing.T) {
	s := newSnap(30000, 0xC9)
	s.mem[30001] = 0xC9
	ctl := &ctlfile.File{Entries: []ctlfile.Entry{
		{Address: 30000, Type: ctlfile.Code},
		{Address: 30001, Type: ctlfile.Code},
		{Address: 30002, Type: ctlfile.Ignore},
	}}
	d := Build(s, ctl)
	d.RemoveEntry(30000)
	if len(d.Entries) != 2 {
		t.Fatalf("expected 2 entries after removal, got %d", len(d.Entries))
	}
	if _, ok := d.InstructionAt(30000); ok {
		t.Fatal("expected instruction at removed address to be gone")
	}
}

func TestOperandTargetConditional(t *testing.T) {
	target, ok := operandTarget("JP Z,30000")
	if !ok || target != 30000 {
		t.Fatalf("got %d, %v", target, ok)
	}
	if _, ok := operandTarget("LD A,(30000)"); ok {
		t.Fatal("LD should not be a referrer edge")
	}
	if _, ok := operandTarget("JP (HL)"); ok {
		t.Fatal("JP (HL) has no literal target")
	}
}
