// Command snapmod modifies a 48K .z80 snapshot in place: moving and poking
// bytes, and setting registers and hardware state. It is the Go port of
// snapmod.py's command-line entry point, built on internal/snapshotfile.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/dma-homebrew/skoolkit/internal/snapshotfile"
)

func main() {
	app := cli.NewApp()
	app.Name = "snapmod"
	app.Usage = "Modify a 48K Z80 snapshot"
	app.ArgsUsage = "in.z80 [out.z80]"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "f", Usage: "overwrite an existing snapshot"},
		cli.StringSliceFlag{Name: "m", Usage: "move a block of bytes: src,size,dest (may be used multiple times)"},
		cli.StringSliceFlag{Name: "p", Usage: "POKE N,v for N in {a, a+c, ...,b}: a[-b[-c]],[^+]v (may be used multiple times)"},
		cli.StringSliceFlag{Name: "r", Usage: "set a register: name=value (may be used multiple times)"},
		cli.StringSliceFlag{Name: "s", Usage: "set a hardware state attribute: name=value (may be used multiple times)"},
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
		return cli.NewExitError("Usage: snapmod [options] in.z80 [out.z80]", 2)
	}
	infile := args[0]
	if !strings.HasSuffix(strings.ToLower(infile), ".z80") {
		return cli.NewExitError("Error: unrecognised input snapshot type", 1)
	}
	outfile := infile
	if len(args) >= 2 {
		outfile = args[1]
	}
	if outfile == infile && !c.Bool("f") {
		if _, err := os.Stat(outfile); err == nil {
			fmt.Printf("%s: file already exists; use -f to overwrite\n", outfile)
			return nil
		}
	}

	in, err := os.Open(infile)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Cannot read %s", infile), 1)
	}
	snap, err := snapshotfile.ReadZ80(in)
	in.Close()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	for _, spec := range c.StringSlice("m") {
		if err := snapshotfile.Move(snap, spec); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	for _, spec := range c.StringSlice("p") {
		if err := snapshotfile.Poke(snap, spec); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	for _, spec := range c.StringSlice("r") {
		if err := snapshotfile.SetRegister(snap, spec); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}
	for _, spec := range c.StringSlice("s") {
		if err := snapshotfile.SetState(snap, spec); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
	}

	out, err := os.Create(outfile)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Cannot create %s", outfile), 1)
	}
	defer out.Close()
	if err := snapshotfile.WriteZ80(out, snap); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}
