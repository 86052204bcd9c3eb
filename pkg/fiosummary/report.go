// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package fiosummary

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultPlaceholder stands in for derived values a record could not
// supply.
const DefaultPlaceholder = "n/a"

// Renderer formats derived record summaries into the grouped
// human-readable comparison report.
type Renderer struct {
	// Placeholder replaces missing derived values; DefaultPlaceholder
	// when empty.
	Placeholder string
}

func (r *Renderer) placeholder() string {
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}

func (r *Renderer) format(v *float64, layout string) string {
	if v == nil {
		return r.placeholder()
	}
	return fmt.Sprintf(layout, *v)
}

// Render writes the report for records in their original run/file order:
// a header naming the source, a RUN separator whenever the run number
// changes, one line per record, and an indented provenance line naming
// the raw bandwidth/IOPS sources when either is known.
func (r *Renderer) Render(w io.Writer, source string, records []Record) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Summary for %s\n", source)
	fmt.Fprintln(bw)

	currentRun := 0
	haveRun := false
	for _, rec := range records {
		if !haveRun || currentRun != rec.Run {
			currentRun = rec.Run
			haveRun = true
			fmt.Fprintf(bw, "===== RUN #%d =====\n", currentRun)
		}

		s := Summarize(rec)
		name := rec.JobName
		if name == "" {
			name = rec.File
		}
		fmt.Fprintf(bw, "%s: throughput_GBps=%s, iops_k=%s, derived_latency_ms=%s, iodepth=%s, clat_avg_ms=%s\n",
			name,
			r.format(s.ThroughputGBps, "%.4f"),
			r.format(s.IOPSK, "%.3f"),
			r.format(s.DerivedLatencyMS, "%.3f"),
			r.format(s.IODepth, "%.0f"),
			r.format(s.ClatAvgMS, "%.3f"),
		)

		var src []string
		if s.BWSource != "" {
			src = append(src, "bw_src="+s.BWSource)
		}
		if s.IOPSSource != "" {
			src = append(src, "iops_src="+s.IOPSSource)
		}
		if len(src) > 0 {
			fmt.Fprintf(bw, "  (%s)\n", strings.Join(src, "; "))
		}
	}
	return bw.Flush()
}
