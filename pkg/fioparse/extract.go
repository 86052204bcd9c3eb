// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package fioparse converts human-readable fio output into normalized
// key=value metric entries. fio's text report is not machine-structured;
// this package classifies each line against an ordered rule table and
// extracts the fields the line shape carries.
package fioparse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Entry is one normalized metric. Keys are lowercase with punctuation
// collapsed to underscores and namespaced by a prefix identifying the
// section the value came from (read_, clat_, disk_<dev>_, ...). Keys are
// not unique within a file; consumers that load entries into a map apply
// last-value-wins.
type Entry struct {
	Key         string
	Value       string
	Description string
}

// String renders the entry in the normalized metrics file format:
// "key = value", with an inline "\t# description" comment when the
// describer knows the key.
func (e Entry) String() string {
	if e.Description != "" {
		return fmt.Sprintf("%s = %s\t# %s", e.Key, e.Value, e.Description)
	}
	return fmt.Sprintf("%s = %s", e.Key, e.Value)
}

// cursor is the block state threaded through line classification. fio
// emits two multi-line constructs whose rows are only recognizable in
// context: completion-latency percentile tables and the trailing disk
// stats section. Both end at the next blank line.
type cursor struct {
	clatPercentiles bool
	diskStats       bool
}

// rule classifies one line shape. handle extracts the line's entries and
// returns the cursor for the next line. The first matching rule wins.
type rule struct {
	match  func(line string, cur cursor) bool
	handle func(line string, cur cursor, out *[]Entry) cursor
}

var (
	reFioVersion = regexp.MustCompile(`^fio-([0-9.]+)`)
	reLayout     = regexp.MustCompile(`Laying out IO file.*\((\d+) files? / ([^)]+)\)`)
	reGroupJobs  = regexp.MustCompile(`(?i)^([A-Za-z0-9_.-]+): \(groupid=(\d+), jobs=(\d+)\):.*err=\s*([^:]+):\s*pid=(\d+):\s*(.+)$`)
	reJobHeader  = regexp.MustCompile(`(?i)^([A-Za-z0-9_.-]+):.*rw=([^,\s]+).*ioengine=([^,\s]+).*iodepth=(\d+)`)
	reBSRead     = regexp.MustCompile(`(?i)bs=\(R\)\s*([^,\s]+)`)
	reBSWrite    = regexp.MustCompile(`(?i)\(W\)\s*([^,\s]+)`)
	reBSTrim     = regexp.MustCompile(`(?i)\(T\)\s*([^,\s]+)`)
	// Generic key=value in a comma separated list; the value runs to the
	// next comma.
	reKV         = regexp.MustCompile(`([A-Za-z0-9._%/()-]+)=([^,]+)`)
	rePercentile = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?th)=\[\s*([^\]]+)\]`)
	reDiskDev    = regexp.MustCompile(`^([A-Za-z0-9_-]+):\s*(.+)`)

	reIssuedTotal   = regexp.MustCompile(`total=([^ ]+)`)
	reIssuedShort   = regexp.MustCompile(`short=([^ ]+)`)
	reIssuedDropped = regexp.MustCompile(`dropped=([^ ]+)`)
)

var (
	reKeySeparators = regexp.MustCompile(`[\s:]+`)
	reKeyStrip      = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	keyReplacer     = strings.NewReplacer("(", "", ")", "", "%", "pct", "/", "_")
)

// NormalizeKey maps a raw fio field label to a stable metric name:
// parentheses dropped, percent spelled out, slashes and whitespace runs
// collapsed to underscores, anything else outside [A-Za-z0-9_.-] removed,
// lowercased. Idempotent.
func NormalizeKey(k string) string {
	k = strings.TrimSpace(k)
	k = keyReplacer.Replace(k)
	k = reKeySeparators.ReplaceAllString(k, "_")
	k = reKeyStrip.ReplaceAllString(k, "")
	return strings.ToLower(k)
}

func emit(out *[]Entry, key, value string) {
	*out = append(*out, Entry{Key: key, Value: value, Description: Describe(key)})
}

// emitKVList scans a comma-separated key=value list and emits each pair
// under the section prefix.
func emitKVList(line, prefix string, out *[]Entry) {
	for _, m := range reKV.FindAllStringSubmatch(line, -1) {
		emit(out, prefix+NormalizeKey(m[1]), strings.TrimSpace(m[2]))
	}
}

// afterColon returns the remainder of the line after the first colon, or
// "" when the line has none (the subsequent key=value scan then finds
// nothing, matching the silent-drop policy for malformed lines).
func afterColon(line string) string {
	if _, rest, ok := strings.Cut(line, ":"); ok {
		return rest
	}
	return ""
}

// prefixRule builds a rule for the section lines dispatched purely on
// their leading token: the remainder after the first colon is a
// comma-separated key=value list namespaced by keyPrefix.
func prefixRule(linePrefix, keyPrefix string) rule {
	return rule{
		match: func(line string, _ cursor) bool {
			return strings.HasPrefix(line, linePrefix)
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			emitKVList(afterColon(line), keyPrefix, out)
			return cur
		},
	}
}

// rules is the classification cascade, in priority order. Each line is
// handled by the first matching rule only; the final rule is a
// catch-all key=value scan. Later fio dialects get new rules inserted
// here without touching dispatch.
var rules = []rule{
	// Blank line: close any open percentile/disk-stats block.
	{
		match: func(line string, _ cursor) bool { return line == "" },
		handle: func(_ string, _ cursor, _ *[]Entry) cursor {
			return cursor{}
		},
	},
	// Version banner, e.g. "fio-3.28".
	{
		match: func(line string, _ cursor) bool { return reFioVersion.MatchString(line) },
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			m := reFioVersion.FindStringSubmatch(line)
			emit(out, "fio_version", m[1])
			return cur
		},
	},
	// Layout banner: "... Laying out IO file (1 file / 1024MiB)". Lines
	// without the size pattern are dropped.
	{
		match: func(line string, _ cursor) bool {
			return strings.Contains(line, "Laying out IO file")
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			if m := reLayout.FindStringSubmatch(line); m != nil {
				emit(out, "layout_files", m[1])
				emit(out, "layout_size", m[2])
			}
			return cur
		},
	},
	// Group summary: "job0: (groupid=0, jobs=1): err= 0: pid=1234: Mon ...".
	// Must run before the job header rule, which its shape also satisfies.
	{
		match: func(line string, _ cursor) bool { return reGroupJobs.MatchString(line) },
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			m := reGroupJobs.FindStringSubmatch(line)
			emit(out, "job_name", m[1])
			emit(out, "groupid", m[2])
			emit(out, "jobs", m[3])
			emit(out, "err", m[4])
			emit(out, "pid", m[5])
			emit(out, "timestamp", m[6])
			return cur
		},
	},
	// Job header: "job0: (g=0): rw=randread, bs=(R) 4096B-4096B, ...
	// ioengine=libaio, iodepth=32".
	{
		match: func(line string, _ cursor) bool { return reJobHeader.MatchString(line) },
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			m := reJobHeader.FindStringSubmatch(line)
			emit(out, "job_name", m[1])
			emit(out, "rw", m[2])
			emit(out, "ioengine", m[3])
			emit(out, "iodepth", m[4])
			if mm := reBSRead.FindStringSubmatch(line); mm != nil {
				emit(out, "bs_r", mm[1])
			}
			if mm := reBSWrite.FindStringSubmatch(line); mm != nil {
				emit(out, "bs_w", mm[1])
			}
			if mm := reBSTrim.FindStringSubmatch(line); mm != nil {
				emit(out, "bs_t", mm[1])
			}
			return cur
		},
	},
	// "clat percentiles (usec):" opens the percentile table.
	{
		match: func(line string, _ cursor) bool {
			return strings.HasPrefix(strings.ToLower(line), "clat percentiles")
		},
		handle: func(_ string, cur cursor, _ *[]Entry) cursor {
			cur.clatPercentiles = true
			return cur
		},
	},
	// Percentile table rows: "| 1.00th=[  359], 5.00th=[  379], ...".
	{
		match: func(line string, cur cursor) bool {
			return cur.clatPercentiles && strings.HasPrefix(line, "|")
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			for _, m := range rePercentile.FindAllStringSubmatch(line, -1) {
				emit(out, "clat_pct_"+m[1], strings.TrimSpace(m[2]))
			}
			return cur
		},
	},
	// Run status summary, e.g. "READ: bw=165MiB/s (173MB/s), io=9.7GiB ...".
	prefixRule("READ:", "run_read_"),
	prefixRule("WRITE:", "run_write_"),
	prefixRule("read:", "read_"),
	prefixRule("write:", "write_"),
	prefixRule("slat", "slat_"),
	// clat summary line; the percentiles header also starts with "clat"
	// and is claimed above, the guard keeps any stray variant out.
	{
		match: func(line string, _ cursor) bool {
			return strings.HasPrefix(line, "clat") &&
				!strings.Contains(strings.ToLower(line), "percentiles")
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			emitKVList(afterColon(line), "clat_", out)
			return cur
		},
	},
	prefixRule("lat (usec)", "lat_usec_"),
	prefixRule("lat (msec)", "lat_msec_"),
	prefixRule("bw (", "bw_"),
	prefixRule("iops", "iops_"),
	prefixRule("cpu", "cpu_"),
	prefixRule("IO depths", "iodepth_dist_"),
	prefixRule("submit", "submit_"),
	prefixRule("complete", "complete_"),
	// "issued rwts: total=1000,0,0,0 short=0,0,0,0 dropped=0,0,0,0";
	// the three counters are independent sub-matches.
	{
		match: func(line string, _ cursor) bool {
			return strings.Contains(line, "issued rwts")
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			if m := reIssuedTotal.FindStringSubmatch(line); m != nil {
				emit(out, "issued_total", m[1])
			}
			if m := reIssuedShort.FindStringSubmatch(line); m != nil {
				emit(out, "issued_short", m[1])
			}
			if m := reIssuedDropped.FindStringSubmatch(line); m != nil {
				emit(out, "issued_dropped", m[1])
			}
			return cur
		},
	},
	prefixRule("latency", "latency_cfg_"),
	// "Disk stats (read/write):" opens the per-device section.
	{
		match: func(line string, _ cursor) bool {
			return strings.Contains(line, "Disk stats")
		},
		handle: func(_ string, cur cursor, _ *[]Entry) cursor {
			cur.diskStats = true
			return cur
		},
	},
	// Device rows inside the disk stats section, e.g.
	// "sda: ios=5000/0, merge=0/0, ticks=10/20, in_queue=30, util=95%".
	{
		match: func(line string, cur cursor) bool {
			return cur.diskStats && reDiskDev.MatchString(line)
		},
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			m := reDiskDev.FindStringSubmatch(line)
			emitDiskStats(m[1], m[2], out)
			return cur
		},
	},
	// Fallback: scan any remaining line for bare key=value pairs.
	{
		match: func(string, cursor) bool { return true },
		handle: func(line string, cur cursor, out *[]Entry) cursor {
			emitKVList(line, "", out)
			return cur
		},
	},
}

// emitDiskStats splits a device row into per-field entries. Combined
// read/write counters are printed by fio as "<read>/<write>"; a value
// holding a single slash and no comma is split into _read/_write entries.
// Values with a non-ratio slash (paths) are mis-split the same way; known
// heuristic limitation.
func emitDiskStats(dev, rest string, out *[]Entry) {
	for _, m := range reKV.FindAllStringSubmatch(rest, -1) {
		k := NormalizeKey(m[1])
		v := strings.TrimSpace(m[2])
		if strings.Contains(v, "/") && !strings.Contains(v, ",") {
			rd, wr, _ := strings.Cut(v, "/")
			emit(out, fmt.Sprintf("disk_%s_%s_read", dev, k), strings.TrimSpace(rd))
			emit(out, fmt.Sprintf("disk_%s_%s_write", dev, k), strings.TrimSpace(wr))
		} else {
			emit(out, fmt.Sprintf("disk_%s_%s", dev, k), v)
		}
	}
}

// classifyLine runs one stripped line through the cascade.
func classifyLine(line string, cur cursor, out *[]Entry) cursor {
	for i := range rules {
		if rules[i].match(line, cur) {
			return rules[i].handle(line, cur, out)
		}
	}
	return cur
}

// Extract parses a raw fio output stream into metric entries in
// first-seen order. Undecodable bytes are replaced rather than reported;
// lines matching no rule and holding no key=value pair are dropped.
// Lines of any length are accepted.
func Extract(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)

	var out []Entry
	var cur cursor
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.ToValidUTF8(line, string(utf8.RuneError))
			cur = classifyLine(strings.TrimSpace(line), cur, &out)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Write renders entries in the normalized metrics file format, one line
// per entry, in order.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
