package ctlfile

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseBasic(t *testing.T) {
	input := `; a comment
c 30000 Start routine
  C 30000,10 entry point
b 30010
t 30020 Some text
`
	f, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(f.Entries))
	}
	if f.Entries[0].Address != 30000 || f.Entries[0].Type != Code {
		t.Errorf("entry 0 = %+v", f.Entries[0])
	}
	if len(f.Entries[0].SubBlocks) != 1 || f.Entries[0].SubBlocks[0].Length != 10 {
		t.Errorf("sub-blocks = %+v", f.Entries[0].SubBlocks)
	}
}

func TestParseHexAddress(t *testing.T) {
	f, err := Parse(strings.NewReader("c $7530 Start\n"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Entries[0].Address != 30000 {
		t.Errorf("got %d", f.Entries[0].Address)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	ctls := map[int]BlockType{30000: Code, 30010: Byte, 65536: Ignore}
	var buf bytes.Buffer
	if err := Write(&buf, ctls, false, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "@ 30000 start") || !strings.Contains(out, "@ 30000 org") {
		t.Errorf("missing start/org header: %s", out)
	}
	if !strings.Contains(out, "c 30000") || !strings.Contains(out, "b 30010") {
		t.Errorf("missing block lines: %s", out)
	}
	if strings.Contains(out, "65536") {
		t.Errorf("address 65536 should be excluded: %s", out)
	}
}

func TestAnnotationParsing(t *testing.T) {
	f, err := Parse(strings.NewReader("@ 30000 start\nc 30000 Routine\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Annotations) != 1 || f.Annotations[0].Directive != "start" {
		t.Errorf("annotations = %+v", f.Annotations)
	}
}
