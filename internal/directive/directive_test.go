package directive

import "testing"

func TestNewModeCoupling(t *testing.T) {
	if m := NewMode(0, 3); m.Asm != 3 {
		t.Errorf("rfix should force asm_mode to 3, got %d", m.Asm)
	}
	if m := NewMode(3, 0); m.Fix != 1 {
		t.Errorf("rsub should raise fix_mode to at least 1, got %d", m.Fix)
	}
	if m := NewMode(0, 0); m.Asm != 0 || m.Fix != 0 {
		t.Errorf("defaults should stay at 0,0, got %d,%d", m.Asm, m.Fix)
	}
}

func TestWeights(t *testing.T) {
	w := NewMode(3, 3).Weights()
	want := map[string]int{"isub": 1, "ssub": 2, "rsub": 3, "ofix": 4, "bfix": 5, "rfix": 6}
	for k, v := range want {
		if w[k] != v {
			t.Errorf("weights[%s] = %d, want %d", k, w[k], v)
		}
	}
	w0 := NewMode(0, 0).Weights()
	for k := range want {
		if w0[k] != 0 {
			t.Errorf("weights[%s] with mode 0,0 should be 0, got %d", k, w0[k])
		}
	}
}

func TestParseSubFix(t *testing.T) {
	cases := []struct {
		in                            string
		prepend, appendOp, overwrite bool
		op                            string
	}{
		{">LD A,1", true, false, false, "LD A,1"},
		{"+LD A,1", false, true, false, "LD A,1"},
		{"LD A,1", false, false, true, "LD A,1"},
	}
	for _, c := range cases {
		sf := ParseSubFix(c.in)
		if sf.Prepend != c.prepend || sf.Append != c.appendOp || sf.Overwrite != c.overwrite || sf.Operation != c.op {
			t.Errorf("ParseSubFix(%q) = %+v", c.in, sf)
		}
	}
}

func TestParseAddressRange(t *testing.T) {
	set, err := ParseAddressRange("30000-30002,30010")
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []int{30000, 30001, 30002, 30010} {
		if !set[a] {
			t.Errorf("expected %d in set", a)
		}
	}
	if set[30003] {
		t.Error("30003 should not be in set")
	}
}

func TestParseKeep(t *testing.T) {
	k := ParseKeep("keep")
	if k.Addresses != nil {
		t.Errorf("bare @keep should have nil Addresses, got %v", k.Addresses)
	}
	k = ParseKeep("keep=30000,30001")
	if len(k.Addresses) != 2 || k.Addresses[0] != 30000 || k.Addresses[1] != 30001 {
		t.Errorf("ParseKeep with addresses = %v", k.Addresses)
	}
}

func TestParseRemote(t *testing.T) {
	re, err := ParseRemote("remote=bank1:30000,30010")
	if err != nil {
		t.Fatal(err)
	}
	if re.Location != "bank1" || len(re.Addresses) != 2 {
		t.Errorf("ParseRemote = %+v", re)
	}
}

func TestParseOrg(t *testing.T) {
	addr, ok, err := ParseOrg("org=30000")
	if err != nil || !ok || addr != 30000 {
		t.Errorf("ParseOrg(org=30000) = %d, %v, %v", addr, ok, err)
	}
	_, ok, err = ParseOrg("org")
	if err != nil || ok {
		t.Errorf("bare @org should report unset, got ok=%v err=%v", ok, err)
	}
}

func TestIsSubFixDirective(t *testing.T) {
	name, ok := IsSubFixDirective("isub=LD A,1")
	if !ok || name != "isub" {
		t.Errorf("IsSubFixDirective(isub=...) = %s,%v", name, ok)
	}
	if _, ok := IsSubFixDirective("keep"); ok {
		t.Error("keep should not be a sub/fix directive")
	}
}

func TestParseIfAndEvalCond(t *testing.T) {
	cond, rest, err := ParseIf("if(asm>=2)ssub=LD A,1")
	if err != nil {
		t.Fatal(err)
	}
	if rest != "ssub=LD A,1" {
		t.Errorf("rest = %q", rest)
	}
	fields := map[string]int{"asm": 3, "fix": 0}
	v, err := EvalCond(cond, fields)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Error("asm>=2 with asm=3 should be true")
	}
	v, err = EvalCond("asm>=2 && fix==0", fields)
	if err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Error("asm>=2 && fix==0 should be true")
	}
}
