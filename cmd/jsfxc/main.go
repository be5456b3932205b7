package main

import (
	"context"
	"fmt"
	"os"

	"github.com/reaper-jsfx/jsfxc/compiler"
	"github.com/reaper-jsfx/jsfxc/internal/errtest"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                   "jsfxc",
		Usage:                  "Compiles .jsl source to JSFX",
		UseShortOptionHandling: true,
		// `jsfxc input.jsl [output.jsfx]` as shorthand for `jsfxc build`.
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return cli.DefaultShowRootCommandHelp(cmd)
			}
			output := "out.jsfx"
			if cmd.NArg() > 1 {
				output = cmd.Args().Get(1)
			}
			return runBuild(cmd.Args().First(), output)
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Compile a .jsl file to JSFX",
				ArgsUsage: "<input.jsl>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file",
						Value:   "out.jsfx",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 1 {
						return fmt.Errorf("usage: jsfxc build [-o out.jsfx] <input.jsl>")
					}
					return runBuild(cmd.Args().First(), cmd.String("output"))
				},
			},
			{
				Name:      "emit",
				Usage:     "Print the generated JSFX text to stdout",
				ArgsUsage: "<input.jsl>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 1 {
						return fmt.Errorf("usage: jsfxc emit <input.jsl>")
					}
					c := &compiler.Compiler{}
					src, err := c.Emit(cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Print(src)
					return nil
				},
			},
			{
				Name:      "test",
				Usage:     "Run error-test-protocol fixtures",
				ArgsUsage: "[file.jslt | directory]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "no-color",
						Aliases: []string{"C"},
						Usage:   "Disable ANSI color output",
					},
				},
				Action: testAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func runBuild(input, output string) error {
	c := &compiler.Compiler{}
	if err := c.Build(input, output); err != nil {
		return err
	}
	fmt.Println("fully compiled to output file")
	return nil
}

func testAction(ctx context.Context, cmd *cli.Command) error {
	target := "."
	if cmd.NArg() > 0 {
		target = cmd.Args().First()
	}
	return errtest.Run(target, errtest.Options{NoColor: cmd.Bool("no-color")})
}
