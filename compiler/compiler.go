// Package compiler orchestrates the full pipeline: loader, resolver,
// the fixed pass sequence, and the writer. It is the single entry point
// every front end (the CLI, the error-test harness) calls through rather
// than wiring the stages themselves.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/loader"
	"github.com/reaper-jsfx/jsfxc/passes"
	"github.com/reaper-jsfx/jsfxc/resolver"
	"github.com/reaper-jsfx/jsfxc/writer"
)

// Compiler runs the pipeline over a single root source file. The zero
// value is ready to use; it carries no state between calls.
type Compiler struct{}

// CompileResult holds everything a caller might want out of a successful
// compilation: the rendered JSFX text plus the resolved program it came
// from, in case a caller wants to inspect it.
type CompileResult struct {
	JSFX       string
	Program    *ast.AST
	SourceFile string
}

// pipeline is the fixed §4 pass order, run after the resolver and before
// the writer. Every caller of Compile goes through exactly this sequence;
// there is no reduced or reordered variant.
func pipeline() ast.Pipeline {
	return ast.Pipeline{
		passes.ControlFlow(),
		passes.TypeConversion(),
		passes.Lowering(),
		passes.UseAnalysis(),
		passes.UniqueName(),
	}
}

// Compile loads filename and its import graph, resolves it, runs the
// pass pipeline, and renders the result to JSFX text.
func (c *Compiler) Compile(filename string) (*CompileResult, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", filename, err)
	}

	prog, err := loader.Load(absPath)
	if err != nil {
		return nil, err
	}

	if err := resolver.Resolve(prog); err != nil {
		return nil, err
	}

	if err := pipeline().Run(prog); err != nil {
		return nil, err
	}

	text := writer.Print(writer.Build(prog))
	return &CompileResult{JSFX: text, Program: prog, SourceFile: filename}, nil
}

// Build compiles filename and writes the resulting JSFX text to output.
// An empty output defaults to "out.jsfx" in the current directory (§6.5).
func (c *Compiler) Build(filename, output string) error {
	result, err := c.Compile(filename)
	if err != nil {
		return err
	}
	if output == "" {
		output = "out.jsfx"
	}
	if err := os.WriteFile(output, []byte(result.JSFX), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}

// Emit compiles filename and returns the rendered JSFX text without
// writing it anywhere, for callers that want the text itself (tests,
// tooling that pipes the result elsewhere).
func (c *Compiler) Emit(filename string) (string, error) {
	result, err := c.Compile(filename)
	if err != nil {
		return "", err
	}
	return result.JSFX, nil
}
