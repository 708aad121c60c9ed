// Package skoolfmt is the width-aware skool text writer (L9): it walks a
// disasm.Disassembly and renders the header/title/description/registers
// block, the instruction lines with their aligned comment column, and the
// markup-aware wrapped commentary, producing the same line-oriented skool
// file grammar that internal/binwriter consumes. It is
// grounded on the SkoolWriter responsibilities described for snaskool.py's
// write loop; the original's Python source for that class is not present
// in the retrieval pack (only skool2bin.py/snaskool.py/api.py/snapmod.py
// are), so the column arithmetic below is this port's own reading of the
// documented layout rules rather than a transliteration.
package skoolfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/dma-homebrew/skoolkit/internal/config"
	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/disasm"
)

// Layout constants named directly after spec.md §4.6.
const (
	opWidth                    = 13
	minInstructionCommentWidth = 10
	defaultLineWidth           = 79
)

// WriteRefs selects when referrer commentary is emitted before an entry or
// entry-point instruction.
type WriteRefs int

const (
	RefsNever  WriteRefs = 0
	RefsNoDesc WriteRefs = 1
	RefsAlways WriteRefs = 2
)

// Options configures the writer; NewOptions returns the defaults. For a
// zero Options, Write defaults only LineWidth.
type Options struct {
	LineWidth int
	Hex       bool
	Lower     bool
	ShowText  bool
	WriteRefs WriteRefs
	Config    config.Config
}

// NewOptions returns the documented SkoolKit defaults.
func NewOptions() Options {
	return Options{
		LineWidth: defaultLineWidth,
		WriteRefs: RefsNoDesc,
		Config:    config.Default(),
	}
}

// Write renders every entry in d to w in address order, separated by a
// blank line, in the skool file grammar spec.md §6 describes.
func Write(w io.Writer, d *disasm.Disassembly, opts Options) error {
	if opts.LineWidth <= 0 {
		opts.LineWidth = defaultLineWidth
	}
	for i, e := range d.Entries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeEntry(w, e, opts); err != nil {
			return fmt.Errorf("entry at %s: %w", formatAddress(e.Address, opts), err)
		}
	}
	return nil
}

func writeEntry(w io.Writer, e *disasm.Entry, opts Options) error {
	ce := e.Ctl
	title := ""
	registers := []string(nil)
	if ce != nil {
		title = ce.Title
		registers = ce.Registers
	}
	if title == "" {
		title = defaultTitle(opts.Config, e.Type, e.Address, opts)
	}

	if opts.WriteRefs == RefsAlways || (opts.WriteRefs == RefsNoDesc && !hasDescription(ce)) {
		if ref := referrerComment(opts.Config, entryReferrers(e), false); ref != "" {
			if err := writeCommentLines(w, ref, opts.LineWidth); err != nil {
				return err
			}
		}
	}

	if err := writeCommentLines(w, title, opts.LineWidth); err != nil {
		return err
	}
	if ce != nil && len(registers) > 0 {
		if _, err := fmt.Fprintln(w, ";"); err != nil {
			return err
		}
		if err := writeRegisters(w, registers); err != nil {
			return err
		}
	}

	maxOpWidth := entryMaxOperationWidth(e)
	for _, b := range e.Blocks {
		for idx, inst := range b.Instructions {
			ctlChar := byte(' ')
			if idx == 0 {
				ctlChar = byte(b.Type)
			} else if len(inst.Referrers) > 0 {
				ctlChar = '*'
				if opts.WriteRefs == RefsAlways || (opts.WriteRefs == RefsNoDesc && !hasDescription(ce)) {
					if ref := referrerComment(opts.Config, inst.Referrers, true); ref != "" {
						if err := writeCommentLines(w, ref, opts.LineWidth); err != nil {
							return err
						}
					}
				}
			}
			if err := writeInstructionLine(w, ctlChar, inst, b.Type, maxOpWidth, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasDescription(ce *ctlfile.Entry) bool {
	return ce != nil && ce.StartMid != ""
}

func entryReferrers(e *disasm.Entry) []*disasm.Instruction {
	var refs []*disasm.Instruction
	for _, b := range e.Blocks {
		for _, inst := range b.Instructions {
			refs = append(refs, inst.Referrers...)
		}
	}
	return refs
}

func entryMaxOperationWidth(e *disasm.Entry) int {
	max := opWidth
	for _, b := range e.Blocks {
		for _, inst := range b.Instructions {
			if n := len(inst.Operation); n > max {
				max = n
			}
		}
	}
	return max
}

func defaultTitle(cfg config.Config, t ctlfile.BlockType, address int, opts Options) string {
	tmpl := cfg.Template("Title-" + string(t))
	if tmpl == "" {
		return ""
	}
	return strings.ReplaceAll(tmpl, "{address}", formatAddress(address, opts))
}

func formatAddress(address int, opts Options) string {
	return fmt.Sprintf(ctlfile.AddressFormat(opts.Hex, opts.Lower), address)
}

func writeRegisters(w io.Writer, registers []string) error {
	colon := 0
	for _, r := range registers {
		if i := strings.IndexByte(r, ':'); i > colon {
			colon = i
		}
	}
	for _, r := range registers {
		name, desc, ok := strings.Cut(r, ":")
		if !ok {
			if _, err := fmt.Fprintf(w, "; %s\n", r); err != nil {
				return err
			}
			continue
		}
		pad := strings.Repeat(" ", colon-len(name))
		if _, err := fmt.Fprintf(w, "; %s%s %s\n", name, pad, strings.TrimSpace(desc)); err != nil {
			return err
		}
	}
	return nil
}

func writeCommentLines(w io.Writer, text string, width int) error {
	if text == "" {
		return nil
	}
	for _, line := range wrapComment(text, width-2) {
		if _, err := fmt.Fprintf(w, "; %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeInstructionLine(w io.Writer, ctlChar byte, inst *disasm.Instruction, blockType ctlfile.BlockType, maxOpWidth int, opts Options) error {
	addr := formatAddress(inst.Address, opts)
	op := inst.Operation
	if len(op) < maxOpWidth {
		op = op + strings.Repeat(" ", maxOpWidth-len(op))
	}
	prefixLen := 1 + len(addr) + 1 + len(op)
	commentCol := prefixLen + 3
	commentWidth := opts.LineWidth - commentCol
	if commentWidth < minInstructionCommentWidth {
		commentWidth = minInstructionCommentWidth
	}

	comment := inst.Comment
	if opts.ShowText && blockType != ctlfile.Text {
		gutter := asciiGutter(inst.Bytes)
		if comment == "" {
			comment = gutter
		} else {
			comment = comment + " " + gutter
		}
	}

	lines := []string{""}
	if comment != "" {
		lines = wrapComment(comment, commentWidth)
		if len(lines) > 1 {
			lines = frameMultilineComment(lines, comment)
		}
	}
	for i, line := range lines {
		var err error
		if i == 0 {
			if line == "" {
				_, err = fmt.Fprintf(w, "%c%s %s\n", ctlChar, addr, op)
			} else {
				_, err = fmt.Fprintf(w, "%c%s %s ; %s\n", ctlChar, addr, op, line)
			}
		} else {
			pad := strings.Repeat(" ", prefixLen)
			_, err = fmt.Fprintf(w, "%s ; %s\n", pad, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// asciiGutter renders the show_text ASCII column: printable bytes as
// themselves, everything else as '.'.
func asciiGutter(data []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for _, b := range data {
		if b >= 0x20 && b <= 0x7E {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// referrerComment renders the "Used by the routine(s) at ..." commentary
// for referrers, using the EntryPointRef(s) templates for a referenced mid-
// entry instruction and the plain Ref(s) templates for a whole entry.
func referrerComment(cfg config.Config, referrers []*disasm.Instruction, entryPoint bool) string {
	if len(referrers) == 0 {
		return ""
	}
	seen := map[int]bool{}
	var addrs []string
	for _, r := range referrers {
		if seen[r.Address] {
			continue
		}
		seen[r.Address] = true
		addrs = append(addrs, fmt.Sprintf("%d", r.Address))
	}
	var tmplName string
	switch {
	case len(addrs) == 1 && entryPoint:
		tmplName = "EntryPointRef"
	case len(addrs) == 1:
		tmplName = "Ref"
	case entryPoint:
		tmplName = "EntryPointRefs"
	default:
		tmplName = "Refs"
	}
	tmpl := cfg.Template(tmplName)
	if tmpl == "" {
		return ""
	}
	last := addrs[len(addrs)-1]
	rest := strings.Join(addrs[:len(addrs)-1], ", ")
	tmpl = strings.ReplaceAll(tmpl, "{ref}", last)
	tmpl = strings.ReplaceAll(tmpl, "{refs}", rest)
	return tmpl
}
