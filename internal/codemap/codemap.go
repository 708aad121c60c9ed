// Package codemap reads execution-trace "code map" files produced by Z80
// emulators (Z80, SpecEmu, Fuse, Spud, Zero) and reduces them to the set of
// addresses that were actually executed, auto-detecting the format from the
// file's size or its first non-blank line. It is grounded on
// _get_code_blocks/_get_addresses in snaskool.py.
package codemap

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ReadAddresses reads a code map from r (size tells us which binary format
// to expect when the file is exactly 8192 or 65536 bytes) restricted to
// [start,end), and returns the sorted set of addresses that were executed.
func ReadAddresses(r io.Reader, size int, start, end int) ([]int, error) {
	switch size {
	case 8192:
		return readZ80Bitmap(r, start, end)
	case 65536:
		return readSpecEmuBitmap(r, start, end)
	default:
		return readTextLog(r, start, end)
	}
}

// readZ80Bitmap decodes the Z80 emulator's 8192-byte map: one bit per
// address, byte b's bit i (LSB-first) set means address (b*8+i) executed.
func readZ80Bitmap(r io.Reader, start, end int) ([]int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var addrs []int
	address := start &^ 7
	lo, hi := start/8, end/8+1
	if hi > len(data) {
		hi = len(data)
	}
	for _, b := range data[lo:hi] {
		for i := 0; i < 8; i++ {
			if b&1 != 0 && address >= start && address < end {
				addrs = append(addrs, address)
			}
			b >>= 1
			address++
		}
	}
	return addrs, nil
}

// readSpecEmuBitmap decodes SpecEmu's 65536-byte map: one byte per address,
// bit 0 set means executed.
func readSpecEmuBitmap(r io.Reader, start, end int) ([]int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if end > len(data) {
		end = len(data)
	}
	var addrs []int
	for address := start; address < end; address++ {
		if data[address]&1 != 0 {
			addrs = append(addrs, address)
		}
	}
	return addrs, nil
}

// textFormat identifies one of the line-oriented emulator log formats.
type textFormat int

const (
	fmtUnknown textFormat = iota
	fmtFuse               // "0x8000 ..."
	fmtSpud               // "PC = 8000 ..."
	fmtSpecEmu            // "PC:8000 ..."
	fmtZero               // "32768\t... in decimal" or hex by default
)

func detectFormat(line string) (textFormat, int, bool) {
	switch {
	case strings.HasPrefix(line, "0x"):
		return fmtFuse, 16, true
	case strings.HasPrefix(line, "PC = "):
		return fmtSpud, 16, true
	case strings.HasPrefix(line, "PC:"):
		return fmtSpecEmu, 16, false
	case strings.HasSuffix(line, "decimal"):
		base := 16
		if strings.HasSuffix(line, "in decimal") {
			base = 10
		}
		return fmtZero, base, false
	}
	return fmtUnknown, 0, false
}

func extractAddressField(format textFormat, line string) string {
	switch format {
	case fmtFuse:
		if len(line) >= 6 {
			return line[2:6]
		}
	case fmtSpud:
		if len(line) >= 9 {
			return line[5:9]
		}
	case fmtSpecEmu:
		if len(line) >= 4 {
			return line[:4]
		}
	case fmtZero:
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			return line[:i]
		}
	}
	return ""
}

var specEmuIgnorePrefixes = []string{"PC:", "IX:", "HL:", "DE:", "BC:", "AF:"}

// readTextLog auto-detects one of the Fuse/Spud/SpecEmu/Zero line formats
// from the first non-blank line, then scans every line for an address
// field in [start,end).
func readTextLog(r io.Reader, start, end int) ([]int, error) {
	br := bufio.NewReader(r)
	var format textFormat
	var base int
	var rewind bool
	var firstLines []string
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			f, b, rw := detectFormat(trimmed)
			if f == fmtUnknown {
				return nil, fmt.Errorf("unrecognised code map format")
			}
			format, base, rewind = f, b, rw
			firstLines = append(firstLines, trimmed)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("empty code map file")
		}
	}
	// Read the remaining lines from the buffered reader; if the format
	// needs a rewind (address lines start from the very first line, not
	// just after the detector line), seed the scan with the line we
	// already consumed to detect the format.
	lines := firstLines
	if !rewind {
		lines = nil
	}
	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	for _, l := range strings.Split(string(rest), "\n") {
		lines = append(lines, l)
	}

	addrSet := map[int]bool{}
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		field := extractAddressField(format, s)
		if field == "" {
			continue
		}
		n, err := strconv.ParseInt(field, base, 32)
		if err != nil {
			if format == fmtSpecEmu && hasAnyPrefix(s, specEmuIgnorePrefixes) {
				continue
			}
			return nil, fmt.Errorf("cannot parse address: %s", s)
		}
		addr := int(n)
		if addr < 0 || addr > 65535 {
			return nil, fmt.Errorf("address out of range: %s", s)
		}
		if addr >= start && addr < end {
			addrSet[addr] = true
		}
	}
	addrs := make([]int, 0, len(addrSet))
	for a := range addrSet {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	return addrs, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
