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
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cockroachlabs/fio-report/pkg/fiosummary"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize <consolidated-file>...",
	Short: "Summarize consolidated fio metric files across runs",
	Long: `Processes consolidated metric files (RUN/file framed concatenations of
parsed fio outputs) and writes one comparison report per input, covering
throughput, kIOPS, queue depth and derived latency per record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summarizeAll(args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

// summaryName derives the report name next to the input: the input's
// extension replaced by the configured summary suffix.
func summaryName(input string) string {
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return stem + viper.GetString("summary-suffix")
}

// summarizeAll processes inputs strictly one at a time. A failed input is
// reported and skipped; it never aborts the rest of the batch.
func summarizeAll(inputs []string) {
	for _, input := range inputs {
		if err := summarizeFile(input); err != nil {
			log.Errorf("%s: %v", input, err)
			continue
		}
	}
}

func summarizeFile(input string) error {
	f, err := os.Open(input)
	if err != nil {
		return errors.Wrapf(err, "cannot open input %q", input)
	}
	log.Infof("Summarizing %s", input)
	records, err := fiosummary.ParseConsolidated(f)
	f.Close()
	if err != nil {
		return errors.Wrapf(err, "cannot split %q", input)
	}

	output := summaryName(input)
	out, err := os.OpenFile(output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", output)
	}
	defer out.Close()

	r := fiosummary.Renderer{Placeholder: viper.GetString("placeholder")}
	if err := r.Render(out, filepath.Base(input), records); err != nil {
		return errors.Wrapf(err, "cannot write %q", output)
	}
	log.Infof("Wrote summary: %s", output)
	return nil
}
