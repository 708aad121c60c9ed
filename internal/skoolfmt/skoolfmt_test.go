package skoolfmt

import (
	"strings"
	"testing"

	"github.com/dma-homebrew/skoolkit/internal/config"
	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/disasm"
)

func simpleEntry(addr int, typ ctlfile.BlockType, ops ...string) *disasm.Entry {
	var insts []*disasm.Instruction
	a := addr
	for _, op := range ops {
		insts = append(insts, &disasm.Instruction{Address: a, Operation: op, Bytes: []byte{0}})
		a++
	}
	return &disasm.Entry{
		Address: addr,
		Type:    typ,
		Blocks:  []*disasm.Block{{Type: typ, Instructions: insts}},
	}
}

func TestWriteTitleAndInstructions(t *testing.T) {
	e := simpleEntry(30000, ctlfile.Code, "RET")
	e.Ctl = &ctlfile.Entry{Title: "Do nothing"}
	d := &disasm.Disassembly{Entries: []*disasm.Entry{e}}

	var buf strings.Builder
	opts := NewOptions()
	if err := Write(&buf, d, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "; Do nothing\n") {
		t.Fatalf("missing title line, got:\n%s", out)
	}
	if !strings.Contains(out, "c30000 RET") {
		t.Fatalf("missing instruction line, got:\n%s", out)
	}
}

func TestWriteRegistersAligned(t *testing.T) {
	e := simpleEntry(40000, ctlfile.Code, "RET")
	e.Ctl = &ctlfile.Entry{Title: "T", Registers: []string{"A: first", "HL: second"}}
	d := &disasm.Disassembly{Entries: []*disasm.Entry{e}}

	var buf strings.Builder
	if err := Write(&buf, d, NewOptions()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "; A  first\n") || !strings.Contains(out, "; HL second\n") {
		t.Fatalf("registers not aligned, got:\n%s", out)
	}
}

func TestDefaultTitleFromConfig(t *testing.T) {
	e := simpleEntry(100, ctlfile.Byte)
	d := &disasm.Disassembly{Entries: []*disasm.Entry{e}}
	opts := NewOptions()

	var buf strings.Builder
	if err := Write(&buf, d, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "Data block at 00100") {
		t.Fatalf("expected default title, got:\n%s", buf.String())
	}
}

func TestInstructionCommentWrapsAndFrames(t *testing.T) {
	inst := &disasm.Instruction{Address: 100, Operation: "NOP", Bytes: []byte{0}, Comment: strings.Repeat("word ", 30)}
	e := &disasm.Entry{
		Address: 100,
		Type:    ctlfile.Code,
		Blocks:  []*disasm.Block{{Type: ctlfile.Code, Instructions: []*disasm.Instruction{inst}}},
	}
	d := &disasm.Disassembly{Entries: []*disasm.Entry{e}}

	var buf strings.Builder
	opts := NewOptions()
	opts.LineWidth = 40
	if err := Write(&buf, d, opts); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	var commentLines []string
	for _, l := range lines {
		if strings.Contains(l, "; ") && !strings.HasPrefix(l, ";") {
			commentLines = append(commentLines, l)
		}
	}
	if len(commentLines) < 2 {
		t.Fatalf("expected wrapped comment across multiple lines, got:\n%s", buf.String())
	}
	if !strings.Contains(commentLines[0], "{") {
		t.Fatalf("expected opening brace on first comment line, got %q", commentLines[0])
	}
	if !strings.HasSuffix(commentLines[len(commentLines)-1], "}") {
		t.Fatalf("expected closing brace on last comment line, got %q", commentLines[len(commentLines)-1])
	}
}

func TestReferrerCommentEntryPoint(t *testing.T) {
	cfg := config.Default()
	caller := &disasm.Instruction{Address: 200, Operation: "CALL 300"}
	target := &disasm.Instruction{Address: 300, Operation: "RET", Referrers: []*disasm.Instruction{caller}}
	got := referrerComment(cfg, target.Referrers, true)
	if !strings.Contains(got, "200") {
		t.Fatalf("expected referrer address in comment, got %q", got)
	}
}

func TestReferrerCommentMultiple(t *testing.T) {
	cfg := config.Default()
	c1 := &disasm.Instruction{Address: 10, Operation: "CALL"}
	c2 := &disasm.Instruction{Address: 20, Operation: "CALL"}
	got := referrerComment(cfg, []*disasm.Instruction{c1, c2}, false)
	if !strings.Contains(got, "10") || !strings.Contains(got, "20") {
		t.Fatalf("expected both referrer addresses, got %q", got)
	}
}

func TestAsciiGutter(t *testing.T) {
	got := asciiGutter([]byte{'A', 0x00, 'z', 0x7F, ' '})
	want := "[A.z. ]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapCommentDotsOnlyIsBlank(t *testing.T) {
	got := wrapComment(".", 20)
	if len(got) != 1 || got[0] != "" {
		t.Fatalf("expected single blank line for dots-only comment, got %v", got)
	}
}

func TestWrapCommentPlain(t *testing.T) {
	got := wrapComment("one two three four five", 10)
	if len(got) < 2 {
		t.Fatalf("expected wrapping at width 10, got %v", got)
	}
	for _, l := range got {
		if len(l) > 10 {
			t.Fatalf("line %q exceeds width 10", l)
		}
	}
}

func TestWrapCommentTableMarkupNowrap(t *testing.T) {
	text := "#TABLE#<nowrap>{ A | B }{ C | D }TABLE#"
	got := wrapComment(text, 5)
	joined := strings.Join(got, "")
	if !strings.Contains(joined, "A | B") {
		t.Fatalf("expected indivisible row preserved, got %v", got)
	}
}

func TestFrameMultilineCommentBalancesBraces(t *testing.T) {
	lines := []string{"first", "second"}
	out := frameMultilineComment(lines, "first { second")
	if !strings.HasPrefix(out[0], "{") {
		t.Fatalf("expected leading brace, got %q", out[0])
	}
	last := out[len(out)-1]
	if strings.Count(last, "{") != 1 || !strings.HasSuffix(last, "}") {
		t.Fatalf("expected one padding brace plus closer, got %q", last)
	}
}
