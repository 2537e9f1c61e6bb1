// Command yapall-ptr runs the inclusion-based, context-sensitive points-to
// analysis over an LLVM IR module and prints its derived relations.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/GaloisInc/yapall/internal/analysis/pointer"
	"github.com/GaloisInc/yapall/internal/loader"
	"github.com/GaloisInc/yapall/internal/signature"
)

func run(opt Options) error {
	mod, err := loader.Load(opt.Src)
	if err != nil {
		return fmt.Errorf("could not load LLVM IR module: %w", err)
	}

	sigs := signature.Empty()
	if opt.SigPath != "" {
		data, err := os.ReadFile(opt.SigPath)
		if err != nil {
			return fmt.Errorf("could not read signature file: %w", err)
		}
		sigs, err = signature.New(data)
		if err != nil {
			return fmt.Errorf("could not parse signature file: %w", err)
		}
	}

	out := pointer.Analyze(mod, sigs, pointer.Options{
		CheckAssertions: opt.CheckAssertions,
		CheckStrict:     opt.Strict,
		Contexts:        opt.Contexts,
		Metrics:         opt.Metrics,
		Unification:     opt.Unification,
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

	if opt.Strict && len(out.NeedsSignature) > 0 {
		return fmt.Errorf("%d declaration(s) need signatures", len(out.NeedsSignature))
	}
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
