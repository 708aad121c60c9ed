// Command skool2bin assembles a skool file into a raw memory-image binary,
// the Go port of skool2bin.py's command-line entry point, built on
// internal/binwriter.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/dma-homebrew/skoolkit/internal/binwriter"
)

func main() {
	app := cli.NewApp()
	app.Name = "skool2bin"
	app.Usage = "Convert a skool file into a binary file"
	app.ArgsUsage = "file.skool [file.bin]"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "b, bfix", Usage: "apply @ofix and @bfix directives"},
		cli.BoolFlag{Name: "d, data", Usage: "process @defb, @defs and @defw directives"},
		cli.StringFlag{Name: "E, end", Usage: "stop converting at this address"},
		cli.BoolFlag{Name: "i, isub", Usage: "apply @isub directives"},
		cli.BoolFlag{Name: "o, ofix", Usage: "apply @ofix directives"},
		cli.BoolFlag{Name: "r, rsub", Usage: "apply @isub, @ssub and @rsub directives (implies --ofix)"},
		cli.BoolFlag{Name: "R, rfix", Usage: "apply @ofix, @bfix and @rfix directives (implies --rsub)"},
		cli.BoolFlag{Name: "s, ssub", Usage: "apply @isub and @ssub directives"},
		cli.StringFlag{Name: "S, start", Usage: "start converting at this address"},
		cli.BoolFlag{Name: "v, verbose", Usage: "show informational messages"},
		cli.BoolFlag{Name: "V, version", Usage: "show version number and exit"},
		cli.BoolFlag{Name: "w, no-warnings", Usage: "suppress warnings"},
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
	if c.Bool("version") {
		fmt.Println("skool2bin 1.0")
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return cli.NewExitError("Usage: skool2bin file.skool [file.bin]", 2)
	}
	skoolFile := args[0]
	binFile := ""
	if len(args) >= 2 {
		binFile = args[1]
	}

	opts := binwriter.Options{
		AsmMode: asmMode(c),
		FixMode: fixMode(c),
		Data:    c.Bool("data"),
		Verbose: c.Bool("verbose"),
		Warn:    !c.Bool("no-warnings"),
	}
	opts.Warner = func(format string, a ...any) {
		if opts.Warn {
			fmt.Fprintf(os.Stderr, "WARNING: "+format+"\n", a...)
		}
	}
	opts.Info = func(msg string) {
		if opts.Verbose {
			fmt.Println(msg)
		}
	}
	if v := c.String("start"); v != "" {
		n, err := parseAddr(v)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Invalid start address: %s", v), 1)
		}
		opts.Start = n
	}
	if v := c.String("end"); v != "" {
		n, err := parseAddr(v)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Invalid end address: %s", v), 1)
		}
		opts.End = n
	}

	var data []byte
	var err error
	if skoolFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(skoolFile)
	}
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Cannot read %s", skoolFile), 1)
	}

	bw, err := binwriter.New(string(data), opts)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if binFile == "" && skoolFile == "-" {
		binFile = "-"
	} else if binFile == "" {
		binFile = deriveBinName(skoolFile)
	}

	var out io.Writer = os.Stdout
	if binFile != "-" {
		f, err := os.Create(binFile)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("Cannot create %s", binFile), 1)
		}
		defer f.Close()
		out = f
	}

	start, end, err := bw.Write(out)
	if err != nil && err != io.EOF {
		return cli.NewExitError(err.Error(), 1)
	}
	if opts.Verbose {
		fmt.Printf("Wrote %s: start=%d, end=%d, size=%d\n", binFile, start, end, end-start)
	}
	return nil
}

func asmMode(c *cli.Context) int {
	switch {
	case c.Bool("rsub") || c.Bool("rfix"):
		return 3
	case c.Bool("ssub"):
		return 2
	case c.Bool("isub"):
		return 1
	default:
		return 0
	}
}

func fixMode(c *cli.Context) int {
	switch {
	case c.Bool("rfix"):
		return 3
	case c.Bool("bfix"):
		return 2
	case c.Bool("ofix") || c.Bool("rsub"):
		return 1
	default:
		return 0
	}
}

func parseAddr(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func deriveBinName(skoolFile string) string {
	for i := len(skoolFile) - 1; i >= 0; i-- {
		if skoolFile[i] == '.' {
			return skoolFile[:i] + ".bin"
		}
		if skoolFile[i] == '/' {
			break
		}
	}
	return skoolFile + ".bin"
}
