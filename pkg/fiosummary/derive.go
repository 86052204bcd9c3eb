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

import "strconv"

// Summary holds the derived per-record figures. Every field is optional;
// a nil value means the record lacked a parseable source for it, which is
// a valid terminal state rather than an error. BWSource and IOPSSource
// record the raw field values the bandwidth and IOPS figures came from.
type Summary struct {
	IODepth          *float64
	ThroughputGBps   *float64
	IOPSK            *float64
	DerivedLatencyMS *float64
	ClatAvgMS        *float64

	BWSource   string
	IOPSSource string
}

// Preference order for the bandwidth and IOPS source fields: run summary
// totals first, then the per-phase lines. The sample averages (bw_avg in
// KiB/s, iops_avg as a bare count) are last-resort fallbacks with fixed
// unit interpretations.
var (
	bandwidthSources = []string{"run_read_bw", "run_write_bw", "read_bw", "write_bw"}
	iopsSources      = []string{"read_iops", "write_iops"}
)

func firstAvailable(metrics map[string]string, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := metrics[k]; ok {
			return v, true
		}
	}
	return "", false
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// deriveLatencyMS applies Little's Law: expected per-request latency is
// queue depth over throughput. Absent inputs or non-positive IOPS yield
// no value.
func deriveLatencyMS(iopsK, iodepth *float64) *float64 {
	if iopsK == nil || iodepth == nil {
		return nil
	}
	iops := *iopsK * 1e3
	if iops <= 0 {
		return nil
	}
	ms := (*iodepth / iops) * 1e3
	return &ms
}

// Summarize derives the report figures for one record. Every derivation
// is total: an unparseable or missing source leaves its field nil and
// never fails the record.
func Summarize(rec Record) Summary {
	var s Summary
	m := rec.Metrics

	if v, ok := m["iodepth"]; ok {
		s.IODepth = parseFloat(v)
	}

	if raw, ok := firstAvailable(m, bandwidthSources); ok {
		s.BWSource = raw
		if gbps, ok := BandwidthGBps(raw); ok {
			s.ThroughputGBps = &gbps
		}
	}
	if s.ThroughputGBps == nil {
		// bw_avg is reported in KiB/s.
		if v, ok := m["bw_avg"]; ok {
			if kibs := parseFloat(v); kibs != nil {
				gbps := *kibs * 1024 / gbDecimal
				s.ThroughputGBps = &gbps
			}
		}
	}

	if raw, ok := firstAvailable(m, iopsSources); ok {
		s.IOPSSource = raw
		if k, ok := IOPSK(raw); ok {
			s.IOPSK = &k
		}
	}
	if s.IOPSK == nil {
		if v, ok := m["iops_avg"]; ok {
			if iops := parseFloat(v); iops != nil {
				k := *iops / 1e3
				s.IOPSK = &k
			}
		}
	}

	s.DerivedLatencyMS = deriveLatencyMS(s.IOPSK, s.IODepth)

	// clat_avg is reported in microseconds.
	if v, ok := m["clat_avg"]; ok {
		if us := parseFloat(v); us != nil {
			ms := *us / 1e3
			s.ClatAvgMS = &ms
		}
	}
	return s
}
