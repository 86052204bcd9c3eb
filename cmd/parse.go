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

	"github.com/cockroachlabs/fio-report/pkg/fioparse"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <fio-output> [<output-file>]",
	Short: "Parse fio human-readable output into normalized metrics",
	Long: `Parses a single fio run's human-readable output and emits one
key = value line per extracted metric, annotated with a description
where the metric is a known fio field.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := ""
		if len(args) == 2 {
			output = args[1]
		}
		return parseFile(args[0], output)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

// parsedName derives the default output name: the input's extension
// replaced by the configured parsed suffix.
func parsedName(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + viper.GetString("parsed-suffix")
}

func parseFile(input, output string) error {
	f, err := os.Open(input)
	if err != nil {
		return errors.Wrapf(err, "cannot open input %q", input)
	}
	defer f.Close()

	log.Infof("Parsing %s", input)
	entries, err := fioparse.Extract(f)
	if err != nil {
		return errors.Wrapf(err, "cannot parse %q", input)
	}

	if output == "" {
		output = parsedName(input)
	}
	out, err := os.OpenFile(output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", output)
	}
	defer out.Close()

	if err := fioparse.Write(out, entries); err != nil {
		return errors.Wrapf(err, "cannot write %q", output)
	}
	log.Infof("Parsed metrics written to: %s", output)
	return nil
}
