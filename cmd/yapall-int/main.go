// Command yapall-int runs the auxiliary integer constant-propagation
// analysis over an LLVM IR module and prints the derived operand values.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/GaloisInc/yapall/internal/analysis/intprop"
	"github.com/GaloisInc/yapall/internal/loader"
)

func run(opt Options) error {
	mod, err := loader.Load(opt.Src)
	if err != nil {
		return fmt.Errorf("could not load LLVM IR module: %w", err)
	}

	out := intprop.Analyze(mod, nil, intprop.Options{
		Contexts: opt.Contexts,
		Metrics:  opt.Metrics,
	})

	w := os.Stdout
	if opt.Out != "" {
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("could not open output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	render(w, out)

	return nil
}

func main() {
	opt, err := ParseArgs()
	if err != nil {
		fmt.Printf("command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
