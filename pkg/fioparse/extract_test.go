// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package fioparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, input string) []Entry {
	t.Helper()
	entries, err := Extract(strings.NewReader(input))
	require.NoError(t, err)
	return entries
}

func keyValues(entries []Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"min", "min"},
		{"  avg  ", "avg"},
		{"BW", "bw"},
		{"bw (KiB/s)", "bw_kib_s"},
		{"util%", "utilpct"},
		{"in_queue", "in_queue"},
		{"lat (msec)", "lat_msec"},
		{"99.00th", "99.00th"},
		{"maj:min", "maj_min"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeKey(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	for _, in := range []string{"bw (KiB/s)", "util%", "IO depths", "lat (usec)", "already_normal.key-1"} {
		once := NormalizeKey(in)
		assert.Equal(t, once, NormalizeKey(once), "input %q", in)
	}
}

func TestExtractVersionBanner(t *testing.T) {
	entries := extract(t, "fio-3.28\n")
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Key: "fio_version", Value: "3.28", Description: "fio version"}, entries[0])
}

func TestExtractLayoutBanner(t *testing.T) {
	entries := extract(t, "job0: Laying out IO file (1 file / 1024MiB)\n")
	m := keyValues(entries)
	assert.Equal(t, "1", m["layout_files"])
	assert.Equal(t, "1024MiB", m["layout_size"])

	// Banner without the size pattern is dropped, not an error.
	entries = extract(t, "job0: Laying out IO files\n")
	assert.Empty(t, entries)
}

func TestExtractGroupSummary(t *testing.T) {
	entries := extract(t,
		"randread_j1: (groupid=0, jobs=1): err= 0: pid=2201: Mon Mar  6 10:02:31 2023\n")
	m := keyValues(entries)
	assert.Equal(t, "randread_j1", m["job_name"])
	assert.Equal(t, "0", m["groupid"])
	assert.Equal(t, "1", m["jobs"])
	assert.Equal(t, "0", m["err"])
	assert.Equal(t, "2201", m["pid"])
	assert.Equal(t, "Mon Mar  6 10:02:31 2023", m["timestamp"])
}

func TestExtractJobHeader(t *testing.T) {
	entries := extract(t,
		"randread_j1: (g=0): rw=randread, bs=(R) 4096B-4096B, (W) 4096B-4096B, (T) 4096B-4096B, ioengine=libaio, iodepth=32\n")
	m := keyValues(entries)
	assert.Equal(t, "randread_j1", m["job_name"])
	assert.Equal(t, "randread", m["rw"])
	assert.Equal(t, "libaio", m["ioengine"])
	assert.Equal(t, "32", m["iodepth"])
	assert.Equal(t, "4096B-4096B", m["bs_r"])
	assert.Equal(t, "4096B-4096B", m["bs_w"])
	assert.Equal(t, "4096B-4096B", m["bs_t"])
}

func TestExtractJobHeaderWithoutBlockSizes(t *testing.T) {
	entries := extract(t, "j0: (g=0): rw=write, ioengine=sync, iodepth=1\n")
	m := keyValues(entries)
	assert.Equal(t, "write", m["rw"])
	assert.NotContains(t, m, "bs_r")
	assert.NotContains(t, m, "bs_w")
	assert.NotContains(t, m, "bs_t")
}

func TestExtractReadLine(t *testing.T) {
	entries := extract(t, "  read: IOPS=1234, BW=50.0MiB/s\n")
	require.Len(t, entries, 2)
	assert.Equal(t, "read_iops", entries[0].Key)
	assert.Equal(t, "1234", entries[0].Value)
	assert.Equal(t, "read_bw", entries[1].Key)
	assert.Equal(t, "50.0MiB/s", entries[1].Value)
}

func TestExtractLatencyPhaseLines(t *testing.T) {
	input := strings.Join([]string{
		"    slat (nsec): min=1800, max=14000, avg=2400.50, stdev=120.00",
		"    clat (usec): min=120, max=2000, avg=350.25, stdev=25.00",
		"     lat (usec): min=122, max=2010, avg=352.75, stdev=25.10",
		"     lat (msec)   : 2=0.01%, 4=0.02%",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Equal(t, "2400.50", m["slat_avg"])
	assert.Equal(t, "350.25", m["clat_avg"])
	assert.Equal(t, "352.75", m["lat_usec_avg"])
	assert.Equal(t, "0.01%", m["lat_msec_2"])
}

func TestExtractClatPercentileBlock(t *testing.T) {
	input := strings.Join([]string{
		"    clat percentiles (usec):",
		"     |  1.00th=[  359],  5.00th=[  379], 10.00th=[  388],",
		"     | 99.00th=[  523], 99.90th=[  644],",
	}, "\n")
	entries := extract(t, input)
	m := keyValues(entries)
	assert.Equal(t, "359", m["clat_pct_1.00th"])
	assert.Equal(t, "379", m["clat_pct_5.00th"])
	assert.Equal(t, "388", m["clat_pct_10.00th"])
	assert.Equal(t, "523", m["clat_pct_99.00th"])
	assert.Equal(t, "644", m["clat_pct_99.90th"])
	for _, e := range entries {
		assert.Equal(t, "completion latency percentile (usec)", e.Description)
	}
}

func TestExtractPercentileBlockEndsAtBlankLine(t *testing.T) {
	input := strings.Join([]string{
		"    clat percentiles (usec):",
		"     |  1.00th=[  359],",
		"",
		"     | 99.00th=[  523],",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Contains(t, m, "clat_pct_1.00th")
	assert.NotContains(t, m, "clat_pct_99.00th")
}

func TestExtractRunSummary(t *testing.T) {
	input := strings.Join([]string{
		"   READ: bw=165MiB/s (173MB/s), io=9.7GiB (10.4GB), run=60001-60001msec",
		"  WRITE: bw=103MB/s, io=6.0GiB, run=60001-60001msec",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Equal(t, "165MiB/s (173MB/s)", m["run_read_bw"])
	assert.Equal(t, "9.7GiB (10.4GB)", m["run_read_io"])
	assert.Equal(t, "60001-60001msec", m["run_read_run"])
	assert.Equal(t, "103MB/s", m["run_write_bw"])
}

func TestExtractIssuedRWTS(t *testing.T) {
	entries := extract(t,
		"  issued rwts: total=3004,0,0,0 short=0,0,0,0 dropped=1,0,0,0\n")
	m := keyValues(entries)
	assert.Equal(t, "3004,0,0,0", m["issued_total"])
	assert.Equal(t, "0,0,0,0", m["issued_short"])
	assert.Equal(t, "1,0,0,0", m["issued_dropped"])
}

func TestExtractIssuedRWTSPartial(t *testing.T) {
	m := keyValues(extract(t, "  issued rwts: total=3004,0,0,0\n"))
	assert.Equal(t, "3004,0,0,0", m["issued_total"])
	assert.NotContains(t, m, "issued_short")
	assert.NotContains(t, m, "issued_dropped")
}

func TestExtractDiskStats(t *testing.T) {
	input := strings.Join([]string{
		"Disk stats (read/write):",
		"  sda: ios=5000/120, merge=0/0, ticks=10/20, in_queue=30, util=95.05%",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Equal(t, "5000", m["disk_sda_ios_read"])
	assert.Equal(t, "120", m["disk_sda_ios_write"])
	assert.Equal(t, "10", m["disk_sda_ticks_read"])
	assert.Equal(t, "20", m["disk_sda_ticks_write"])
	assert.Equal(t, "30", m["disk_sda_in_queue"])
	assert.Equal(t, "95.05%", m["disk_sda_util"])
}

func TestExtractDiskStatsSectionEndsAtBlankLine(t *testing.T) {
	input := strings.Join([]string{
		"Disk stats (read/write):",
		"  sda: util=95.05%",
		"",
		"  sdb: util=10.00%",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Contains(t, m, "disk_sda_util")
	// Outside the section the device line degrades to a bare key=value scan.
	assert.NotContains(t, m, "disk_sdb_util")
	assert.Equal(t, "10.00%", m["util"])
}

func TestExtractCPUAndQueueLines(t *testing.T) {
	input := strings.Join([]string{
		"  cpu          : usr=1.71%, sys=7.49%, ctx=2904, majf=0, minf=11",
		"  IO depths    : 1=0.1%, 2=0.1%, 4=0.1%, 8=0.1%, 16=0.1%, 32=99.7%, >=64=0.0%",
		"     submit    : 0=0.0%, 4=100.0%, 8=0.0%",
		"     complete  : 0=0.0%, 4=100.0%, 8=0.0%",
		"     latency   : target=0, window=0, percentile=100.00%, depth=32",
	}, "\n")
	m := keyValues(extract(t, input))
	assert.Equal(t, "1.71%", m["cpu_usr"])
	assert.Equal(t, "2904", m["cpu_ctx"])
	assert.Equal(t, "99.7%", m["iodepth_dist_32"])
	assert.Equal(t, "100.0%", m["submit_4"])
	assert.Equal(t, "100.0%", m["complete_4"])
	assert.Equal(t, "0", m["latency_cfg_target"])
	assert.Equal(t, "32", m["latency_cfg_depth"])
	assert.Equal(t, "100.00%", m["latency_cfg_percentile"])
}

func TestExtractFallbackAndDrops(t *testing.T) {
	// No rule and no key=value substring: dropped without error.
	assert.Empty(t, extract(t, "Run status group 0 (all jobs):\n"))

	// Bare key=value pairs surface unprefixed.
	m := keyValues(extract(t, "Starting 1 process: size=1G\n"))
	assert.Equal(t, "1G", m["size"])
}

func TestExtractOrderPreserved(t *testing.T) {
	input := strings.Join([]string{
		"randread_j1: (g=0): rw=randread, ioengine=libaio, iodepth=32",
		"  read: IOPS=1000, BW=50.0MiB/s",
		"     lat (usec): min=120, max=2000, avg=350.25, stdev=25.00",
	}, "\n")
	entries := extract(t, input)
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"job_name", "rw", "ioengine", "iodepth",
		"read_iops", "read_bw",
		"lat_usec_min", "lat_usec_max", "lat_usec_avg", "lat_usec_stdev",
	}, keys)
}

func TestExtractLongLines(t *testing.T) {
	// An over-long line is classified like any other, not turned into a
	// file error.
	input := "fio-3.28\n" + strings.Repeat("x", 2<<20) + "\niodepth=8\n"
	entries := extract(t, input)
	m := keyValues(entries)
	assert.Equal(t, "3.28", m["fio_version"])
	assert.Equal(t, "8", m["iodepth"])
}

func TestExtractInvalidUTF8(t *testing.T) {
	entries, err := Extract(strings.NewReader("fio-3.28\ngarbage \xff\xfe line\n"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "fio_version", entries[0].Key)
}

func TestEntryString(t *testing.T) {
	assert.Equal(t, "iodepth = 32\t# queue depth per job",
		Entry{Key: "iodepth", Value: "32", Description: "queue depth per job"}.String())
	assert.Equal(t, "mystery = 1", Entry{Key: "mystery", Value: "1"}.String())
}

func TestWrite(t *testing.T) {
	var sb strings.Builder
	err := Write(&sb, []Entry{
		{Key: "fio_version", Value: "3.28", Description: "fio version"},
		{Key: "mystery", Value: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fio_version = 3.28\t# fio version\nmystery = 1\n", sb.String())
}
