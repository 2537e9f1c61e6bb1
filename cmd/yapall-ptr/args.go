package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Options configures one run of yapall-ptr. Mirrors src/util/args.go's
// Options shape: a flat struct of flags plus a trailing positional path.
type Options struct {
	Src             string // Path to the LLVM IR module.
	Out             string // Path to the output file; stdout if empty.
	SigPath         string // Path to a JSON external-function signature file.
	Contexts        int    // Call-string context depth (k).
	Unification     bool   // Union-find unification mode.
	CheckAssertions bool   // Run the engine's internal invariant checks.
	Strict          bool   // Add the strict checks; exit non-zero if signatures are needed.
	Metrics         bool   // Print the metrics section.
}

const appVersion = "yapall-ptr 1.0"
const maxContexts = 16 // Beyond this, the call-string blowup isn't worth it for any module this tool has been run on.

// ParseArgs parses os.Args[1:]. Mirrors src/util/args.go ParseArgs: a flat
// switch over flags, with the final positional argument taken as the
// module path.
func ParseArgs() (Options, error) {
	opt := Options{}
	if len(os.Args) < 2 {
		return opt, fmt.Errorf("expected path to LLVM IR module")
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args)-1; i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-u":
			opt.Unification = true
		case "-a":
			opt.CheckAssertions = true
		case "-strict":
			opt.Strict = true
		case "-metrics":
			opt.Metrics = true
		case "-o", "-k", "-sig":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected argument, got new flag %s", args[i1+1])
			}
			switch args[i1] {
			case "-o":
				opt.Out = args[i1+1]
			case "-sig":
				opt.SigPath = args[i1+1]
			case "-k":
				k, err := strconv.Atoi(args[i1+1])
				if err != nil {
					return opt, fmt.Errorf("expected integer context depth, got: %s", args[i1+1])
				}
				if k < 0 || k > maxContexts {
					return opt, fmt.Errorf("context depth must be in range [0, %d]", maxContexts)
				}
				opt.Contexts = k
			}
			i1++
		default:
			return opt, fmt.Errorf("unexpected flag: %s", args[i1])
		}
	}
	if len(args) > 0 {
		opt.Src = args[len(args)-1]
	}
	if opt.Src == "" {
		return opt, fmt.Errorf("expected path to LLVM IR module")
	}
	if opt.Strict {
		opt.CheckAssertions = true
	}
	return opt, nil
}

func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-k\tCall-string context depth (k). Defaults to 0 (context-insensitive).")
	_, _ = fmt.Fprintln(w, "-u\tUse union-find unification mode instead of plain inclusion.")
	_, _ = fmt.Fprintln(w, "-a\tRun the analysis engine's internal invariant checks after solving.")
	_, _ = fmt.Fprintln(w, "-strict\tAlso run the strict non-empty points-to checks, and exit non-zero if any declaration needs a signature. Implies -a.")
	_, _ = fmt.Fprintln(w, "-sig\tPath to a JSON external-function signature file.")
	_, _ = fmt.Fprintln(w, "-metrics\tPrint the metrics section after the points-to relations.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file. Defaults to stdout.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_ = w.Flush()
}
