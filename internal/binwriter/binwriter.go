// Package binwriter implements the skool-to-binary assembler: it reads a
// skool file, applies the isub/ssub/rsub/ofix/bfix/rfix substitution
// directives selected by the caller's asm/fix mode, resolves labels to
// addresses, assembles every instruction with the z80asm oracle, and writes
// the resulting memory image. It is a direct port of BinWriter in
// skool2bin.py, generalised from Python's dynamic dict/defaultdict bookkeeping
// to typed Go structures.
package binwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dma-homebrew/skoolkit/internal/directive"
	"github.com/dma-homebrew/skoolkit/internal/z80asm"
)

// Instruction is one assembled line of skool text.
type Instruction struct {
	SkoolAddress int
	HasSkoolAddr bool
	RealAddress  int
	Operation    string
	Original     string
	Keep         *directive.Keep
	NoWarn       bool
	Data         []string
	Marker       string
}

// Entry is one skool entry: its ctl letter and the instructions it contains.
type Entry struct {
	Ctl          byte
	Instructions []*Instruction
}

// Warner receives non-fatal diagnostics, the Go analogue of skool2bin.py's
// warn() callback.
type Warner func(format string, args ...any)

// Options configures one BinWriter run, mirroring BinWriter.__init__'s
// keyword arguments.
type Options struct {
	AsmMode  int
	FixMode  int
	Start    int // -1 means "use the lowest poked address"
	End      int // > 65536 means "use the highest poked address"
	Data     bool
	Verbose  bool
	Warn     bool
	Warner   Warner
	Info     func(string)
}

// BinWriter assembles a skool file into a flat memory image.
type BinWriter struct {
	opts    Options
	mode    directive.Mode
	weights map[string]int

	snapshot    [65536]byte
	baseAddress int
	endAddress  int

	subs map[int][]string // weight -> pending operation values for the instruction about to be parsed

	keep   *directive.Keep
	nowarn bool
	data   []string // nil means @defb/@defs/@defw are not being tracked at all

	entryCtl     byte
	haveEntryCtl bool
	entries      []Entry
	remotes      []Entry
	instructions []*Instruction
	addressMap   map[int]string // skool address -> real address, as decimal text (matches Python's str(address) keys)
}

// New parses skoolText (already read into memory) and builds a BinWriter
// ready to Write its assembled image.
func New(skoolText string, opts Options) (*BinWriter, error) {
	if opts.End == 0 {
		opts.End = 65537
	}
	if opts.Start == 0 {
		opts.Start = -1
	}
	if opts.Warner == nil {
		opts.Warner = func(string, ...any) {}
	}
	if opts.Info == nil {
		opts.Info = func(string) {}
	}
	mode := directive.NewMode(opts.AsmMode, opts.FixMode)
	bw := &BinWriter{
		opts:        opts,
		mode:        mode,
		weights:     mode.Weights(),
		baseAddress: 65536,
		endAddress:  0,
		subs:        map[int][]string{0: nil},
		addressMap:  map[int]string{},
	}
	if opts.Data {
		bw.data = []string{}
	}
	if err := bw.parseSkool(skoolText); err != nil {
		return nil, err
	}
	if err := bw.relocate(); err != nil {
		return nil, err
	}
	return bw, nil
}

func (bw *BinWriter) parseSkool(skoolText string) error {
	blocks, err := readSkool(strings.NewReader(skoolText))
	if err != nil {
		return err
	}
	var address int
	haveAddress := false
	for _, blk := range blocks {
		if !blk.isEntry {
			continue
		}
		removed := map[int]bool{}
		for _, line := range blk.lines {
			if strings.HasPrefix(line, "@") {
				a, set, err := bw.parseAsmDirective(address, haveAddress, line[1:], removed)
				if err != nil {
					return err
				}
				address, haveAddress = a, set
				continue
			}
			trimLeft := strings.TrimLeft(line, " ")
			if strings.HasPrefix(trimLeft, ";") {
				continue
			}
			if len(line) == 0 || !strings.ContainsRune(validCtls, rune(line[0])) {
				continue
			}
			a, err := bw.parseInstruction(address, haveAddress, line, removed)
			if err != nil {
				return err
			}
			address, haveAddress = a, true
		}
		bw.entries = append(bw.entries, Entry{Ctl: bw.entryCtl, Instructions: bw.instructions})
		bw.haveEntryCtl = false
		bw.entryCtl = 0
		bw.instructions = nil
	}
	return nil
}

func (bw *BinWriter) parseInstruction(address int, haveAddress bool, line string, removed map[int]bool) (int, error) {
	if !bw.haveEntryCtl {
		bw.entryCtl = line[0]
		bw.haveEntryCtl = true
	}
	addrField := ""
	if len(line) >= 6 {
		addrField = line[1:6]
	} else if len(line) > 1 {
		addrField = line[1:]
	}
	skoolAddress, hasSkoolAddress, err := parseAddrField(addrField)
	if err != nil {
		if !haveAddress || strings.TrimSpace(addrField) != "" {
			return 0, fmt.Errorf("invalid address (%s):\n%s", addrField, line)
		}
		hasSkoolAddress = false
	}
	if !haveAddress {
		address = skoolAddress
		haveAddress = true
	}

	rest := ""
	if len(line) > 6 {
		rest = line[6:]
	}
	originalOp := strings.TrimSpace(partitionUnquoted(rest, ';'))

	subbed := bw.maxSubKey()
	var operations []string
	if subbed > 0 {
		operations = bw.subs[subbed]
	} else {
		operations = []string{originalOp}
	}
	bw.subs = map[int][]string{0: nil}

	type parsedSub struct {
		flags directive.SubFix
		op    string
	}
	parsed := make([]parsedSub, len(operations))
	for i, v := range operations {
		sf := directive.ParseSubFix(v)
		parsed[i] = parsedSub{flags: sf, op: sf.Operation}
	}

	var before []string
	for _, p := range parsed {
		if p.flags.Prepend && p.op != "" {
			before = append(before, p.op)
		}
	}
	for _, operation := range before {
		size, err := bw.getSize(operation, address, ">", false, removed, 0, skoolAddress, hasSkoolAddress)
		if err != nil {
			return 0, err
		}
		address += size
	}

	if hasSkoolAddress {
		if _, ok := bw.addressMap[skoolAddress]; !ok {
			bw.addressMap[skoolAddress] = strconv.Itoa(address)
		}
	}

	type afterItem struct {
		overwrite bool
		op        string
		appendFl  bool
	}
	var after []afterItem
	for _, p := range parsed {
		if !p.flags.Prepend {
			after = append(after, afterItem{overwrite: p.flags.Overwrite, op: p.op, appendFl: p.flags.Append})
		}
	}

	offset := 0
	if hasSkoolAddress {
		offset = skoolAddress - address
	}

	var overwrite bool
	var operation string
	if len(after) == 0 || after[0].appendFl {
		overwrite, operation = false, originalOp
	} else {
		overwrite, operation = after[0].overwrite, after[0].op
		after = after[1:]
		if operation == "" {
			operation = originalOp
		}
	}

	if operation != "" && !(hasSkoolAddress && removed[skoolAddress]) {
		size, err := bw.getSize(operation, address, " ", overwrite, removed, offset, skoolAddress, hasSkoolAddress)
		if err != nil {
			return 0, err
		}
		address += size
	}
	for _, a := range after {
		if a.op == "" {
			continue
		}
		size, err := bw.getSize(a.op, address, "+", a.overwrite, removed, offset, skoolAddress, hasSkoolAddress)
		if err != nil {
			return 0, err
		}
		address += size
	}
	return address, nil
}

// maxSubKey mirrors Python's `subbed = max(self.subs)`: the highest
// directive-category weight present as a key in subs, regardless of
// whether that category's list ended up empty. A directive whose weight
// resolved to 0 (its category is inactive) still occupies key 0 - the same
// slot the "no substitution selected" sentinel uses - so callers must
// treat a zero result as "use the original instruction", never read
// subs[0] as if it were a real substitution list.
func (bw *BinWriter) maxSubKey() int {
	max := 0
	for k := range bw.subs {
		if k > max {
			max = k
		}
	}
	return max
}

func (bw *BinWriter) getSize(operation string, address int, marker string, overwrite bool, removed map[int]bool, offset int, skoolAddress int, hasSkoolAddress bool) (int, error) {
	size, err := z80asm.SizeWithLabels(operation, address)
	if err != nil {
		return 0, fmt.Errorf("failed to assemble:\n %d %s: %w", address, operation, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("failed to assemble:\n %d %s", address, operation)
	}
	if overwrite {
		for a := address + offset; a < address+offset+size; a++ {
			removed[a] = true
		}
		marker = "|"
	}
	if bw.opts.Start <= address && address < bw.opts.End {
		inst := &Instruction{
			RealAddress:  address,
			Operation:    operation,
			Original:     operation,
			NoWarn:       bw.nowarn,
			Marker:       marker,
			SkoolAddress: skoolAddress,
			HasSkoolAddr: hasSkoolAddress,
		}
		if bw.keep != nil {
			k := *bw.keep
			inst.Keep = &k
		}
		if bw.data != nil {
			inst.Data = append([]string(nil), bw.data...)
		}
		bw.instructions = append(bw.instructions, inst)
	}
	bw.keep = nil
	bw.nowarn = false
	if bw.data != nil {
		bw.data = []string{}
	}
	return size, nil
}

func (bw *BinWriter) parseAsmDirective(address int, haveAddress bool, directiveText string, removed map[int]bool) (int, bool, error) {
	switch {
	case hasSubFixPrefix(directiveText):
		name, _ := directive.IsSubFixDirective(directiveText)
		value := strings.TrimRight(directiveText[5:], " \t")
		if strings.HasPrefix(value, "!") {
			if bw.weights[name] != 0 {
				set, err := directive.ParseAddressRange(value[1:])
				if err != nil {
					return address, haveAddress, err
				}
				for a := range set {
					removed[a] = true
				}
			}
		} else {
			w := bw.weights[name]
			bw.subs[w] = append(bw.subs[w], value)
		}
	case strings.HasPrefix(directiveText, "if("):
		cond, rest, err := directive.ParseIf(directiveText)
		if err != nil {
			return address, haveAddress, nil
		}
		ok, err := directive.EvalCond(cond, bw.mode.Fields())
		if err != nil {
			return address, haveAddress, nil
		}
		if ok {
			return bw.parseAsmDirective(address, haveAddress, rest, removed)
		}
	case strings.HasPrefix(directiveText, "org"):
		a, set, err := directive.ParseOrg(directiveText)
		if err != nil {
			return address, haveAddress, err
		}
		if set {
			return a, true, nil
		}
		return 0, false, nil
	case strings.HasPrefix(directiveText, "keep"):
		k := directive.ParseKeep(directiveText)
		bw.keep = &k
	case strings.HasPrefix(directiveText, "nowarn"):
		bw.nowarn = true
	case bw.data != nil && directive.IsDataDirective(directiveText):
		bw.data = append(bw.data, directiveText)
	case strings.HasPrefix(directiveText, "remote="):
		re, err := directive.ParseRemote(directiveText)
		if err == nil {
			var insts []*Instruction
			for _, a := range re.Addresses {
				insts = append(insts, &Instruction{RealAddress: a, SkoolAddress: a, HasSkoolAddr: true})
			}
			bw.remotes = append(bw.remotes, Entry{Instructions: insts})
		}
	}
	return address, haveAddress, nil
}

func hasSubFixPrefix(d string) bool {
	_, ok := directive.IsSubFixDirective(d)
	return ok
}

// relocate substitutes labels in every instruction's operand text for their
// resolved numeric address (where the operand referenced a skool address
// label), applies any @defb/@defs/@defw pokes queued on each instruction,
// assembles the final bytes, and pokes them into the snapshot.
func (bw *BinWriter) relocate() error {
	substituteLabels(bw.entries, bw.remotes, bw.addressMap, bw.opts.AsmMode, bw.warn)
	for ei := range bw.entries {
		for _, inst := range bw.entries[ei].Instructions {
			for _, d := range inst.Data {
				addr, data, err := parseAsmDataDirective(bw.snapshot[:], inst.RealAddress, d)
				if err != nil {
					return err
				}
				bw.poke(addr, data)
			}
			b, err := z80asm.Assemble(inst.Operation, inst.RealAddress)
			if err != nil {
				return fmt.Errorf("failed to assemble:\n %d %s: %w", inst.RealAddress, inst.Operation, err)
			}
			bw.poke(inst.RealAddress, b)
			if bw.opts.Verbose {
				bw.opts.Info(verboseLine(inst))
			}
		}
	}
	return nil
}

func verboseLine(i *Instruction) string {
	suffix := ""
	switch {
	case !i.HasSkoolAddr:
		suffix = fmt.Sprintf(":            %s", i.Original)
	case i.SkoolAddress == i.RealAddress && i.Original == i.Operation:
		suffix = ""
	default:
		suffix = fmt.Sprintf(": %05d %04X %s", i.SkoolAddress, i.SkoolAddress, i.Original)
	}
	return strings.TrimRight(fmt.Sprintf("%05d %04X %s %-13s %s", i.RealAddress, i.RealAddress, i.Marker, i.Operation, suffix), " ")
}

func (bw *BinWriter) warn(format string, args ...any) {
	if bw.opts.Warn {
		bw.opts.Warner(format, args...)
	}
}

func (bw *BinWriter) poke(address int, data []byte) {
	for i, b := range data {
		a := (address + i) & 0xFFFF
		bw.snapshot[a] = b
	}
	if address < bw.baseAddress {
		bw.baseAddress = address
	}
	if address+len(data) > bw.endAddress {
		bw.endAddress = address + len(data)
	}
}

// Write emits the assembled memory image in [start,end) to w, the way
// BinWriter.write does: start defaults to the lowest address ever poked, end
// to the highest, unless the caller pinned either with Options.Start/End.
func (bw *BinWriter) Write(w io.Writer) (start, end int, err error) {
	if bw.opts.Start < 0 {
		start = bw.baseAddress
	} else {
		start = bw.opts.Start
	}
	if bw.opts.End > 65536 {
		end = bw.endAddress
	} else {
		end = bw.opts.End
	}
	if start > end {
		start = end
	}
	if _, err := w.Write(bw.snapshot[start:end]); err != nil {
		return start, end, err
	}
	return start, end, nil
}

func parseAddrField(field string) (int, bool, error) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return 0, false, fmt.Errorf("empty address field")
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// partitionUnquoted returns the portion of s before the first occurrence of
// sep that is not inside a single- or double-quoted string.
func partitionUnquoted(s string, sep byte) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if c == sep {
			return s[:i]
		}
	}
	return s
}

// Entries exposes the parsed, assembled entries (for callers that want the
// address map or per-instruction detail beyond the flat Write image).
func (bw *BinWriter) Entries() []Entry { return bw.entries }

// AddressMap exposes the skool-address -> real-address resolution table
// built during parsing. It is a Go map, so its iteration order is not
// defined.
func (bw *BinWriter) AddressMap() map[int]string {
	return bw.addressMap
}
