package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"
	"github.com/wudi/pyvm/runtime"
	"github.com/wudi/pyvm/values"
	"github.com/wudi/pyvm/vm"
)

// replCommand is a readline-backed loop over the single demoCode code
// object: there is no compiler behind this interpreter, so
// each line's rune count becomes demo's only argument rather than its
// source text being evaluated.
var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactively evaluate the demo code object, parameterized by input line length",
	Flags: []cli.Flag{dialectFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		dialect, err := dialectFor(cmd.String("dialect"))
		if err != nil {
			return err
		}
		m := vm.New(dialect, vm.WithImporter(runtime.NewMapImporter()))
		code := demoCode()

		rl, err := readline.NewEx(&readline.Config{
			Prompt:      fmt.Sprintf("pyvm[%s]> ", m.ID.String()[:8]),
			HistoryFile: "",
		})
		if err != nil {
			return fmt.Errorf("starting readline: %w", err)
		}
		defer rl.Close()

		fmt.Printf("pyvm %.1f repl — each line's length n runs demo(n) = sum(range(n))\n", dialect.Version)

		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if line == "" {
				continue
			}

			n := len([]rune(line))
			globals := map[string]*values.Value{}
			result, err := m.RunCode(code, globals, nil, []*values.Value{values.Int(int64(n))})
			if err != nil {
				if pe, ok := err.(*vm.PyError); ok {
					fmt.Printf("unhandled %s: %s\n", pe.Type.String(), pe.Value.String())
					continue
				}
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("demo(%d) = %s\n", n, result.String())
		}
	},
}
