// Command xray is the minimal host surface over the engine in pkg/vm:
// run a file, evaluate an expression, or dump its disassembly. A REPL,
// richer diagnostics, and a debugger protocol are explicitly out of
// scope (spec.md §1 Non-goals) — this is just enough CLI to drive the
// engine for manual testing.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli"

	"xray/pkg/disasm"
	"xray/pkg/driver"
	"xray/pkg/vm"
	"xray/pkg/xerr"
)

func main() {
	app := cli.NewApp()
	app.Name = "xray"
	app.Usage = "run xray scripts"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "e", Usage: "evaluate `SOURCE` instead of reading a file"},
		cli.BoolFlag{Name: "disassemble, d", Usage: "print bytecode instead of running it"},
		cli.BoolFlag{Name: "trace", Usage: "log every instruction as it executes"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	name, src, err := readSource(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 74) // EX_IOERR
	}

	opts := vm.DefaultOptions()
	opts.TraceExecution = c.Bool("trace")
	session := driver.New(opts)

	if c.Bool("disassemble") {
		res := session.Compile(name, src)
		if len(res.Errors) > 0 {
			return reportErrors(res.Errors)
		}
		disasm.Disassemble(os.Stdout, name, res.Proto)
		return nil
	}

	result, compileErrs, rerr := session.Run(name, src)
	if len(compileErrs) > 0 {
		return reportErrors(compileErrs)
	}
	if rerr != nil {
		printDiag(rerr.Error())
		return cli.NewExitError("", 70) // EX_SOFTWARE
	}
	if c.String("e") != "" {
		fmt.Println(result.String())
	}
	return nil
}

func readSource(c *cli.Context) (name, src string, err error) {
	if e := c.String("e"); e != "" {
		return "<eval>", e, nil
	}
	if c.NArg() == 0 {
		return "", "", fmt.Errorf("usage: xray [flags] <file>")
	}
	path := c.Args().Get(0)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return path, string(b), nil
}

func reportErrors(errs []*xerr.Error) error {
	for _, e := range errs {
		printDiag(e.Error())
	}
	return cli.NewExitError("", 65) // EX_DATAERR
}

func printDiag(msg string) {
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	if useColor {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint(msg))
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
}
