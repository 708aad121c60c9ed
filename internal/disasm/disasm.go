// Package disasm holds the disassembly model shared by the ctl-driven
// disassembler and the classifier: entries own blocks, blocks own
// instructions, and referrers are non-owning back-references recorded on
// the instruction they point at. It is grounded on the Entry/Disassembly
// classes in snaskool.py (_create_entries, _add_instructions,
// _calculate_references).
package disasm

import (
	"sort"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/z80asm"
)

// Instruction is one decoded instruction at a fixed address, owned by
// exactly one Block.
type Instruction struct {
	Address   int
	Operation string
	Bytes     []byte
	Referrers []*Instruction // non-owning back-references; never traversed to find an owner
	Comment   string
}

func (i *Instruction) Size() int { return len(i.Bytes) }
func (i *Instruction) End() int  { return i.Address + i.Size() }

// Block is a contiguous run of instructions within one Entry, tagged with
// its own type (which may differ from the entry's, e.g. a 't' sub-block
// inside a 'c' entry).
type Block struct {
	Type         ctlfile.BlockType
	Instructions []*Instruction
}

// Entry is one top-level disassembly unit: its ctl address/type and the
// blocks within it.
type Entry struct {
	Address   int
	Type      ctlfile.BlockType
	Title     string
	Blocks    []*Block
	Ctl       *ctlfile.Entry
}

func (e *Entry) End() int {
	if len(e.Blocks) == 0 {
		return e.Address
	}
	last := e.Blocks[len(e.Blocks)-1]
	if len(last.Instructions) == 0 {
		return e.Address
	}
	li := last.Instructions[len(last.Instructions)-1]
	return li.End()
}

// Peeker is satisfied by *memory.Snapshot.
type Peeker interface {
	Peek(address int) byte
}

// Disassembly is the full set of entries built from a ctl file and a
// snapshot, with instruction-level referrer back-references resolved.
type Disassembly struct {
	Entries []*Entry
	byAddr  map[int]*Instruction
}

// Build constructs entries from the ctl file's block map: one Entry per
// ctlfile.Entry, spanning from its address to the next entry's address (or
// 65536 for the last one), decoded instruction-by-instruction with the
// z80asm oracle. Sub-blocks recorded in the ctl entry are honoured as block
// type boundaries; anything between them inherits the entry's own type.
func Build(snap Peeker, ctl *ctlfile.File) *Disassembly {
	d := &Disassembly{byAddr: map[int]*Instruction{}}
	entries := append([]ctlfile.Entry(nil), ctl.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	for idx, ce := range entries {
		end := 65536
		if idx+1 < len(entries) {
			end = entries[idx+1].Address
		}
		e := d.createEntry(snap, ce, end)
		d.Entries = append(d.Entries, e)
	}
	d.calculateReferences()
	return d
}

func (d *Disassembly) createEntry(snap Peeker, ce ctlfile.Entry, end int) *Entry {
	e := &Entry{Address: ce.Address, Type: ce.Type, Title: ce.Title}
	cc := ce
	e.Ctl = &cc
	if ce.Type == ctlfile.Ignore {
		return e
	}
	bounds := subBlockBounds(ce, end)
	for _, sb := range bounds {
		blk := &Block{Type: sb.typ}
		addr := sb.start
		for addr < sb.end {
			dec := z80asm.DecodeOne(snap, addr)
			if dec.Size() == 0 {
				break
			}
			inst := &Instruction{Address: dec.Address, Operation: dec.Operation, Bytes: dec.Bytes}
			blk.Instructions = append(blk.Instructions, inst)
			d.byAddr[inst.Address] = inst
			addr += dec.Size()
		}
		e.Blocks = append(e.Blocks, blk)
	}
	return e
}

type subSpan struct {
	start, end int
	typ        ctlfile.BlockType
}

func subBlockBounds(ce ctlfile.Entry, entryEnd int) []subSpan {
	if len(ce.SubBlocks) == 0 {
		return []subSpan{{start: ce.Address, end: entryEnd, typ: ce.Type}}
	}
	sbs := append([]ctlfile.SubBlock(nil), ce.SubBlocks...)
	sort.Slice(sbs, func(i, j int) bool { return sbs[i].Address < sbs[j].Address })
	var spans []subSpan
	pos := ce.Address
	for i, sb := range sbs {
		if sb.Address > pos {
			spans = append(spans, subSpan{start: pos, end: sb.Address, typ: ce.Type})
		}
		end := entryEnd
		if i+1 < len(sbs) {
			end = sbs[i+1].Address
		}
		if sb.Length > 0 && sb.Address+sb.Length < end {
			end = sb.Address + sb.Length
		}
		spans = append(spans, subSpan{start: sb.Address, end: end, typ: sb.Type})
		pos = end
	}
	if pos < entryEnd {
		spans = append(spans, subSpan{start: pos, end: entryEnd, typ: ce.Type})
	}
	return spans
}

// calculateReferences walks every instruction's decoded operand for a
// literal address that names another instruction in this disassembly, and
// records the back-reference on the target - the referrer-traversal
// direction invariant: referrers point from caller to callee, and are
// never walked the other way to discover an owner.
func (d *Disassembly) calculateReferences() {
	for _, e := range d.Entries {
		for _, b := range e.Blocks {
			for _, inst := range b.Instructions {
				if target, ok := operandTarget(inst.Operation); ok {
					if targetInst, ok := d.byAddr[target]; ok {
						targetInst.Referrers = append(targetInst.Referrers, inst)
					}
				}
			}
		}
	}
}

// RemoveEntry deletes the entry at address, if present, and drops its
// instructions from the address index. Referrer lists recorded by Build are
// not recalculated: any that point at the removed entry's instructions keep
// those pointers.
func (d *Disassembly) RemoveEntry(address int) {
	for i, e := range d.Entries {
		if e.Address == address {
			for _, b := range e.Blocks {
				for _, inst := range b.Instructions {
					delete(d.byAddr, inst.Address)
				}
			}
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return
		}
	}
}

// InstructionAt looks up the instruction owning address, if any.
func (d *Disassembly) InstructionAt(address int) (*Instruction, bool) {
	i, ok := d.byAddr[address]
	return i, ok
}
