package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/GaloisInc/yapall/internal/analysis/pointer"
)

// section prints one header-underlined block of rows. header is colorized
// bold when w is a terminal; color.New's own NoColor auto-detection makes
// this a no-op when piped, so output content never changes in a non-tty
// context.
func section(w io.Writer, header string, rows []string) {
	heading := color.New(color.FgCyan, color.Bold)
	_, _ = heading.Fprintln(w, header)
	_, _ = fmt.Fprintln(w, strings.Repeat("-", len(header)))
	for _, r := range rows {
		_, _ = fmt.Fprintln(w, r)
	}
	_, _ = fmt.Fprintln(w)
}

// render writes every section of out to w in a fixed order: reachable,
// operand_points_to, alloc_points_to, needs_signature, then metrics when
// requested.
func render(w io.Writer, out *pointer.Output) {
	reachable := make([]string, 0, len(out.Reachable))
	for _, fn := range out.Reachable {
		reachable = append(reachable, fn.String())
	}
	sort.Strings(reachable)
	section(w, "reachable", reachable)

	opRows := make([]string, 0, len(out.OperandPointsTo))
	for _, f := range out.OperandPointsTo {
		opRows = append(opRows, fmt.Sprintf("%s: %s --> %s", f.Ctx.String(), f.Op.String(), f.Alloc.String()))
	}
	sort.Strings(opRows)
	section(w, "operand_points_to", opRows)

	allocRows := make([]string, 0, len(out.AllocPointsTo))
	for _, f := range out.AllocPointsTo {
		allocRows = append(allocRows, fmt.Sprintf("%s --> %s", f.From.String(), f.To.String()))
	}
	sort.Strings(allocRows)
	section(w, "alloc_points_to", allocRows)

	needSig := make([]string, 0, len(out.NeedsSignature))
	for _, fn := range out.NeedsSignature {
		needSig = append(needSig, fn.String())
	}
	sort.Strings(needSig)
	section(w, "needs_signature", needSig)

	if out.Metrics != nil {
		m := out.Metrics
		warn := color.New(color.FgYellow)
		rows := []string{
			fmt.Sprintf("callgraph_size: %d", m.CallgraphSize),
			fmt.Sprintf("free_non_heap: %d", m.FreeNonHeap),
			fmt.Sprintf("invalid_calls: %d", m.InvalidCalls),
			fmt.Sprintf("invalid_loads: %d", m.InvalidLoads),
			fmt.Sprintf("invalid_memcpy_dsts: %d", m.InvalidMemcpyDsts),
			fmt.Sprintf("invalid_memcpy_srcs: %d", m.InvalidMemcpySrcs),
			fmt.Sprintf("invalid_stores: %d", m.InvalidStores),
			fmt.Sprintf("points_to_top: %d", m.PointsToTop),
		}
		heading := color.New(color.FgCyan, color.Bold)
		_, _ = heading.Fprintln(w, "metrics")
		_, _ = fmt.Fprintln(w, strings.Repeat("-", len("metrics")))
		for _, r := range rows {
			if rowIsNonzero(r) {
				_, _ = warn.Fprintln(w, r)
			} else {
				_, _ = fmt.Fprintln(w, r)
			}
		}
	}
}

func rowIsNonzero(row string) bool {
	return !strings.HasSuffix(row, ": 0")
}
