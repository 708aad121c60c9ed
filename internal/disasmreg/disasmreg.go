// Package disasmreg is the small named-variant registry spec.md §9's
// "Dynamic component selection" design note asks for in place of the
// original's config-driven class lookup (the api.get_disassembler
// indirection in original_source/skoolkit/api.py): a Disassembler config
// key names a registered variant by string, and callers resolve it once at
// startup rather than branching on the name throughout the core packages.
package disasmreg

import (
	"fmt"

	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/disasm"
)

// Peeker is satisfied by *memory.Snapshot.
type Peeker interface {
	Peek(address int) byte
}

// Disassembler builds a disassembly model from a snapshot and a parsed ctl
// file — the capability set spec.md §9 describes as
// disassemble(range) -> [Instruction].
type Disassembler func(snap Peeker, ctl *ctlfile.File) *disasm.Disassembly

var registry = map[string]Disassembler{
	"standard": func(snap Peeker, ctl *ctlfile.File) *disasm.Disassembly {
		return disasm.Build(snap, ctl)
	},
}

// Get resolves a Disassembler by its config.Config.Disassembler name,
// returning a ConfigError-flavoured error (per spec.md §7) if the name is
// not registered.
func Get(name string) (Disassembler, error) {
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unrecognised disassembler %q", name)
	}
	return d, nil
}

// Register adds or replaces a named variant. Only "standard" is built in;
// this exists so a caller (or a future variant) can extend the registry
// without modifying this package.
func Register(name string, d Disassembler) {
	registry[name] = d
}
