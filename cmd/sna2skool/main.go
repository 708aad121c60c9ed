// Command sna2skool disassembles a 64 KiB snapshot into a skool file (or a
// bare control file), the Go port of snaskool.py's command-line entry
// point. It wires internal/snapshotfile (decoding), internal/codemap
// (optional execution-trace input), internal/classify (block typing),
// internal/ctlfile (an externally supplied or freshly classified block map),
// internal/disasmreg (the disassembly-model builder), and internal/skoolfmt
// (skool text output).
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli"

	"github.com/dma-homebrew/skoolkit/internal/classify"
	"github.com/dma-homebrew/skoolkit/internal/codemap"
	"github.com/dma-homebrew/skoolkit/internal/ctlfile"
	"github.com/dma-homebrew/skoolkit/internal/disasmreg"
	"github.com/dma-homebrew/skoolkit/internal/memory"
	"github.com/dma-homebrew/skoolkit/internal/skoolfmt"
	"github.com/dma-homebrew/skoolkit/internal/snapshotfile"
)

func main() {
	app := cli.NewApp()
	app.Name = "sna2skool"
	app.Usage = "Convert a snapshot file into a skool file"
	app.ArgsUsage = "file.z80 [file.ctl]"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "c, ctl", Usage: "use this control file instead of classifying the snapshot"},
		cli.StringFlag{Name: "m, map", Usage: "use this code map (execution trace) file"},
		cli.BoolFlag{Name: "g, ctl-only", Usage: "write a control file instead of a skool file"},
		cli.BoolFlag{Name: "H, hex", Usage: "write addresses in hexadecimal"},
		cli.BoolFlag{Name: "l, lower", Usage: "use lower case for hexadecimal addresses"},
		cli.StringFlag{Name: "s, start", Usage: "start address"},
		cli.StringFlag{Name: "e, end", Value: "65536", Usage: "end address"},
		cli.BoolFlag{Name: "t, text", Usage: "show ASCII text in the comment column"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		if ec, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, ec.Error())
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return cli.NewExitError("Usage: sna2skool file.z80 [file.ctl]", 2)
	}
	snapFile := args[0]

	start := 0
	end := 65536
	if v := c.String("start"); v != "" {
		n, err := parseAddr(v)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Invalid start address: %s", v), 1)
		}
		start = n
	}
	if v := c.String("end"); v != "" {
		n, err := parseAddr(v)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Invalid end address: %s", v), 1)
		}
		end = n
	}

	snap, err := loadSnapshot(snapFile)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctls, err := classifyOrLoadCtl(c, snap, start, end)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	hex := c.Bool("hex")
	lower := c.Bool("lower")

	if c.Bool("ctl-only") {
		out := os.Stdout
		if len(args) >= 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("Cannot create %s", args[1]), 1)
			}
			defer f.Close()
			return ctlfile.Write(f, ctls, hex, lower)
		}
		return ctlfile.Write(out, ctls, hex, lower)
	}

	ctlFile := ctlFileFromMap(ctls)
	build, err := disasmreg.Get("standard")
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	disassembly := build(snap, ctlFile)

	opts := skoolfmt.NewOptions()
	opts.Hex = hex
	opts.Lower = lower
	opts.ShowText = c.Bool("text")

	return skoolfmt.Write(os.Stdout, disassembly, opts)
}

func loadSnapshot(path string) (*memory.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	if hasZ80Suffix(path) {
		z, err := snapshotfile.ReadZ80(f)
		if err != nil {
			return nil, err
		}
		return z.Mem, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return memory.FromBytes(data), nil
}

func hasZ80Suffix(path string) bool {
	return len(path) >= 4 && path[len(path)-4:] == ".z80"
}

func classifyOrLoadCtl(c *cli.Context, snap *memory.Snapshot, start, end int) (map[int]ctlfile.BlockType, error) {
	if ctlPath := c.String("ctl"); ctlPath != "" {
		f, err := os.Open(ctlPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		parsed, err := ctlfile.Parse(f)
		if err != nil {
			return nil, err
		}
		return parsed.Map(), nil
	}

	if mapPath := c.String("map"); mapPath != "" {
		f, err := os.Open(mapPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return nil, err
		}
		executed, err := codemap.ReadAddresses(f, int(fi.Size()), start, end)
		if err != nil {
			return nil, err
		}
		return classify.WithCodeMap(snap, start, end, executed), nil
	}

	return classify.WithoutCodeMap(snap, start, end), nil
}

func ctlFileFromMap(ctls map[int]ctlfile.BlockType) *ctlfile.File {
	addrs := make([]int, 0, len(ctls))
	for a := range ctls {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	f := &ctlfile.File{Entries: make([]ctlfile.Entry, 0, len(addrs))}
	for _, a := range addrs {
		f.Entries = append(f.Entries, ctlfile.Entry{Address: a, Type: ctls[a]})
	}
	return f
}

func parseAddr(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
