package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/GaloisInc/yapall/internal/analysis/intprop"
)

// render writes one line per (ctx, operand) = value triple, sorted for
// deterministic output, then the metrics section when requested.
func render(w io.Writer, out *intprop.Output) {
	rows := make([]string, 0, len(out.OperandVal))
	for _, f := range out.OperandVal {
		rows = append(rows, fmt.Sprintf("%s: %s = %s", f.Ctx.String(), f.Op.String(), f.Value.String()))
	}
	sort.Strings(rows)
	for _, r := range rows {
		_, _ = fmt.Fprintln(w, r)
	}

	if out.Metrics != nil {
		heading := color.New(color.FgCyan, color.Bold)
		_, _ = fmt.Fprintln(w)
		_, _ = heading.Fprintln(w, "metrics")
		_, _ = fmt.Fprintln(w, strings.Repeat("-", len("metrics")))
		_, _ = fmt.Fprintf(w, "tops: %d\n", out.Metrics.Tops)
	}
}
