// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cockroachlabs/fio-report/pkg/fiosummary"
)

var (
	consolidateOutput string
	consolidateRun    int
	consolidateAppend bool
)

// consolidateCmd represents the consolidate command
var consolidateCmd = &cobra.Command{
	Use:   "consolidate -o <output> <parsed-file>...",
	Short: "Group parsed metric files into a consolidated run file",
	Long: `Frames parsed metric files with run and file markers, producing the
consolidated format consumed by summarize. One invocation appends one
run block; repeat with --append and an incremented --run to collect
multiple runs into the same file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return consolidateFiles(consolidateOutput, consolidateRun, args)
	},
}

func init() {
	consolidateCmd.Flags().StringVarP(&consolidateOutput, "output", "o", "",
		"consolidated file to write")
	consolidateCmd.Flags().IntVar(&consolidateRun, "run", 1,
		"run number for this block")
	consolidateCmd.Flags().BoolVarP(&consolidateAppend, "append", "a", false,
		"append to the output instead of truncating it")
	_ = consolidateCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(consolidateCmd)
}

func consolidateFiles(output string, run int, inputs []string) error {
	mode := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if consolidateAppend {
		mode = os.O_RDWR | os.O_CREATE | os.O_APPEND
	}
	out, err := os.OpenFile(output, mode, 0644)
	if err != nil {
		return errors.Wrapf(err, "cannot open output %q", output)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	fmt.Fprintln(w, fiosummary.RunMarker(run))
	for _, input := range inputs {
		// One unreadable input is reported and skipped; the rest of the
		// batch still lands in the run block.
		if err := appendBlock(w, input); err != nil {
			log.Errorf("%s: %v", input, err)
			continue
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "cannot write %q", output)
	}
	log.Infof("Consolidated %d file(s) into %s (run #%d)", len(inputs), output, run)
	return nil
}

func appendBlock(w io.Writer, input string) error {
	f, err := os.Open(input)
	if err != nil {
		return errors.Wrapf(err, "cannot open input %q", input)
	}
	defer f.Close()

	fmt.Fprintln(w, fiosummary.FileMarker(filepath.Base(input)))
	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "cannot copy %q", input)
	}
	// Parsed files are newline terminated; guard the marker of the next
	// block anyway.
	fmt.Fprintln(w)
	return nil
}
