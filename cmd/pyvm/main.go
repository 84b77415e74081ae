// Command pyvm is the embedder reference implementation for package vm: a
// thin CLI wrapping run/repl/disasm around a JSON-serialized code object.
// It exists so the interpreter has a runnable driver — it is not a Python
// compiler front end.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/wudi/pyvm/runtime"
	"github.com/wudi/pyvm/values"
	"github.com/wudi/pyvm/version"
	"github.com/wudi/pyvm/vm"
)

func main() {
	app := &cli.Command{
		Name:  "pyvm",
		Usage: "a dialect-parameterized bytecode VM (2.5 / 2.7 / 3.2)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the version and exit",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					fmt.Println(version.Version())
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			runCommand,
			replCommand,
			disasmCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("pyvm: %v", err)
	}
}

var dialectFlag = &cli.StringFlag{
	Name:  "dialect",
	Value: "3.2",
	Usage: "opcode dialect to run under: 2.5, 2.7, or 3.2",
}

func dialectFor(name string) (*vm.Dialect, error) {
	switch name {
	case "2.5":
		return vm.Dialect25(), nil
	case "2.7":
		return vm.Dialect27(), nil
	case "3.2":
		return vm.Dialect32(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (want 2.5, 2.7, or 3.2)", name)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "decode a JSON code-object image and execute it",
	ArgsUsage: "<image.json>",
	Flags:     []cli.Flag{dialectFlag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("run requires a path to a JSON code-object image")
		}
		code, err := decodeFile(path)
		if err != nil {
			return err
		}
		dialect, err := dialectFor(cmd.String("dialect"))
		if err != nil {
			return err
		}

		m := vm.New(dialect, vm.WithImporter(runtime.NewMapImporter()))
		globals := map[string]*values.Value{}
		result, err := m.RunCode(code, globals, nil, nil)
		if err != nil {
			if pe, ok := err.(*vm.PyError); ok {
				return fmt.Errorf("unhandled %s: %s", pe.Type.String(), pe.Value.String())
			}
			return err
		}
		if !result.IsNone() {
			fmt.Println(result.String())
		}
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "pretty-print a JSON code-object image's instructions",
	ArgsUsage: "<image.json>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.Args().First()
		if path == "" {
			return fmt.Errorf("disasm requires a path to a JSON code-object image")
		}
		code, err := decodeFile(path)
		if err != nil {
			return err
		}
		disassemble(code, "")
		return nil
	},
}

func disassemble(code *vm.Code, indent string) {
	fmt.Printf("%s%s (%s:%d)\n", indent, code.Name, code.Filename, code.FirstLineNo)
	for pc, inst := range code.Instructions {
		line := code.LineForPC(pc)
		fmt.Printf("%s  %4d  %-24s %v  (line %d)\n", indent, pc, inst.Op, inst.Arg, line)
	}
	for _, c := range code.Consts {
		if nested, ok := c.Data.(*vm.Code); ok {
			fmt.Printf("%sConsts of %s:\n", indent, code.Name)
			disassemble(nested, indent+"  ")
		}
	}
}

func decodeFile(path string) (*vm.Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := (runtime.JSONDecoder{}).Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return loadCode(img)
}
