// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package fiosummary aggregates consolidated fio metric files across runs
// into a grouped comparison report. A consolidated file is a
// concatenation of normalized metric files framed by run and file
// markers:
//
//	~~~~~~~ RUN #1 ~~~~~~~
//	-- result_rand_read_2k.parsed.txt --
//	key = value	# description
//	...
package fiosummary

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Marker lines of the consolidated format. RunMarker carries the run
// number, FileMarker the source filename.
const (
	runMarkerPrefix  = "~~~~~~~ RUN #"
	fileMarkerOpen   = "-- "
	fileMarkerClose  = " --"
	runMarkerLayout  = "~~~~~~~ RUN #%d ~~~~~~~"
	fileMarkerLayout = "-- %s --"
)

var reRunNumber = regexp.MustCompile(`RUN #([0-9]+)`)

// RunMarker renders the line opening a run block.
func RunMarker(n int) string {
	return fmt.Sprintf(runMarkerLayout, n)
}

// FileMarker renders the line opening one file's sub-block.
func FileMarker(name string) string {
	return fmt.Sprintf(fileMarkerLayout, name)
}

// Record is one parsed file's worth of metrics inside one run block,
// frozen at its flush boundary. Duplicate keys within the block resolve
// last-value-wins; JobName is "" when the block carried no job_name
// metric.
type Record struct {
	Run     int
	File    string
	JobName string
	Metrics map[string]string
}

// Get returns the raw value for a metric key, or "" when absent.
func (r *Record) Get(key string) string {
	return r.Metrics[key]
}

// splitter accumulates one record at a time between flush boundaries.
type splitter struct {
	records []Record

	run     int
	runSet  bool
	file    string
	fileSet bool
	jobName string
	metrics map[string]string
}

// flush freezes the in-progress record. Blocks missing a run number, a
// filename, or any metric are discarded without error; the run number
// survives the flush, the file and metrics do not.
func (s *splitter) flush() {
	if s.runSet && s.fileSet && len(s.metrics) > 0 {
		s.records = append(s.records, Record{
			Run:     s.run,
			File:    s.file,
			JobName: s.jobName,
			Metrics: s.metrics,
		})
	}
	s.metrics = nil
	s.jobName = ""
	s.file = ""
	s.fileSet = false
}

func (s *splitter) line(line string) {
	switch {
	case strings.HasPrefix(line, runMarkerPrefix):
		s.flush()
		if m := reRunNumber.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				s.run = n
				s.runSet = true
			}
		}
	// A well-formed file marker carries distinct open and close tokens; a
	// degenerate line like "-- --" satisfies both checks with overlapping
	// bytes and is left to the key=value branch instead.
	case len(line) >= len(fileMarkerOpen)+len(fileMarkerClose) &&
		strings.HasPrefix(line, fileMarkerOpen) && strings.HasSuffix(line, fileMarkerClose):
		s.flush()
		s.file = strings.TrimSpace(line[len(fileMarkerOpen) : len(line)-len(fileMarkerClose)])
		s.fileSet = true
	default:
		key, val, ok := splitKeyValue(line)
		if !ok {
			return
		}
		if s.metrics == nil {
			s.metrics = make(map[string]string)
		}
		s.metrics[key] = val
		if key == "job_name" {
			s.jobName = val
		}
	}
}

// splitKeyValue parses a "key = value[\t# description]" metric line. The
// inline comment after the first '#' is stripped from the value.
func splitKeyValue(line string) (key, val string, ok bool) {
	key, val, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	if before, _, found := strings.Cut(val, "#"); found {
		val = strings.TrimSpace(before)
	}
	return key, val, true
}

// ParseConsolidated splits a consolidated stream into records in input
// order. End of input forces a final flush; undecodable bytes are
// replaced rather than reported. Lines of any length are accepted.
func ParseConsolidated(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)

	var s splitter
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.ToValidUTF8(line, string(utf8.RuneError))
			s.line(strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	s.flush()
	return s.records, nil
}
