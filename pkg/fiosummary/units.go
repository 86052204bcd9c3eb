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
	"regexp"
	"strconv"
	"strings"
)

// gbDecimal is the decimal gigabyte (1e9 bytes) used for throughput
// reporting regardless of the unit fio printed.
const gbDecimal = 1e9

var (
	reBandwidth = regexp.MustCompile(`(?i)([0-9.]+)\s*([KMGTP]?i?B)/s`)
	reIOPS      = regexp.MustCompile(`^([0-9.]+)\s*([kKmM]?)`)
)

// bandwidthFactor maps a lowercased byte-rate unit to its bytes
// multiplier: binary (i-suffixed) units use powers of 1024, decimal units
// powers of 1000.
var bandwidthFactor = map[string]float64{
	"kib": 1 << 10,
	"kb":  1e3,
	"mib": 1 << 20,
	"mb":  1e6,
	"gib": 1 << 30,
	"gb":  1e9,
	"tib": 1 << 40,
	"tb":  1e12,
}

// BandwidthGBps converts a raw fio bandwidth string to decimal GB/s.
// fio prints rates in mixed forms ("165MiB/s", "103MB/s",
// "5486MiB/s (5752MB/s)"); the first <number><unit>/s token anywhere in
// the string is used. Returns false when the string holds no such token.
func BandwidthGBps(raw string) (float64, bool) {
	m := reBandwidth.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	factor := 1.0
	if f, ok := bandwidthFactor[strings.ToLower(m[2])]; ok {
		factor = f
	}
	return num * factor / gbDecimal, true
}

// IOPSK converts a raw fio IOPS string to kilo-IOPS. The leading token
// must be numeric with an optional k (×1000) or m (×1e6) suffix
// ("84.4k", "50221.53"). Returns false when the string does not start
// with a number.
func IOPSK(raw string) (float64, bool) {
	m := reIOPS.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		num *= 1e3
	case "m":
		num *= 1e6
	}
	return num / 1e3, true
}
