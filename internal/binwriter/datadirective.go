package binwriter

import (
	"fmt"
	"strings"

	"github.com/dma-homebrew/skoolkit/internal/directive"
)

// parseAsmDataDirective decodes one @defb=/@defs=/@defw= directive queued on
// an instruction into the address it pokes and the bytes it pokes there.
// The value format is "[address,]value[,value...]": an optional leading
// address (defaulting to the instruction's own address), followed by byte
// values for defb, a fill count and byte for defs, or word values for defw.
func parseAsmDataDirective(snapshot []byte, address int, directiveText string) (int, []byte, error) {
	name, value, ok := strings.Cut(directiveText, "=")
	if !ok {
		return 0, nil, fmt.Errorf("malformed data directive: %s", directiveText)
	}
	parts := strings.Split(value, ",")
	addr := address
	if len(parts) > 1 {
		if n, err := directive.ParseNumber(parts[0]); err == nil {
			addr = n
			parts = parts[1:]
		}
	}
	switch name {
	case "defb":
		data := make([]byte, 0, len(parts))
		for _, p := range parts {
			n, err := directive.ParseNumber(p)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid defb value %q", p)
			}
			data = append(data, byte(n))
		}
		return addr, data, nil
	case "defw":
		data := make([]byte, 0, len(parts)*2)
		for _, p := range parts {
			n, err := directive.ParseNumber(p)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid defw value %q", p)
			}
			data = append(data, byte(n&0xFF), byte((n>>8)&0xFF))
		}
		return addr, data, nil
	case "defs":
		if len(parts) == 0 {
			return 0, nil, fmt.Errorf("defs directive needs a size")
		}
		size, err := directive.ParseNumber(parts[0])
		if err != nil {
			return 0, nil, fmt.Errorf("invalid defs size %q", parts[0])
		}
		fill := 0
		if len(parts) > 1 {
			fill, err = directive.ParseNumber(parts[1])
			if err != nil {
				return 0, nil, fmt.Errorf("invalid defs fill %q", parts[1])
			}
		}
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(fill)
		}
		return addr, data, nil
	}
	return 0, nil, fmt.Errorf("unknown data directive: %s", name)
}
