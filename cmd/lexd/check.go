/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/tools"

	"github.com/spf13/cobra"
)

var (
	checkStrict bool
	checkJSON   bool
)

var checkCmd = &cobra.Command{
	Use:   "check [FILE ...]",
	Short: "Report problems in lexicon files",
	Long: `Check parses lexicon files and reports parse anomalies, triggers that
aren't regular expressions, duplicate and shadowed triggers, and calls
to unknown functions.  With no files, every lexicon in the directory is
checked.`,
	RunE: check,
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "fail if there are problems")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "write JSON")
}

// lexiconFiles returns the given files or the directory's lexicons.
func lexiconFiles(args []string) ([]string, error) {
	if 0 < len(args) {
		return args, nil
	}
	filenames, err := filepath.Glob(filepath.Join(conf.Wordlib.Dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	if len(filenames) == 0 {
		return nil, fmt.Errorf("no lexicons in %s", conf.Wordlib.Dir)
	}
	return filenames, nil
}

func check(cmd *cobra.Command, args []string) error {
	filenames, err := lexiconFiles(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	problems := 0
	for _, filename := range filenames {
		l, as, err := core.ParseFile(filename, conf.Control().MatchTimeout)
		if err != nil {
			return err
		}
		a, err := tools.Analyze(l, as)
		if err != nil {
			return err
		}
		problems += a.Problems()

		if checkJSON {
			js, err := json.Marshal(a)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", js)
			continue
		}

		fmt.Fprintf(out, "%s: %d rules, %d problems\n", filename, a.Rules, a.Problems())
		report := func(what string, xs []string) {
			for _, x := range xs {
				fmt.Fprintf(out, "  %s: %s\n", what, x)
			}
		}
		report("anomaly", a.Anomalies)
		report("exact trigger", a.Exact)
		report("duplicate", a.Duplicates)
		report("shadowed", a.Shadowed)
		report("unknown function", a.UnknownFunctions)
	}

	if checkStrict && 0 < problems {
		return fmt.Errorf("%d problems", problems)
	}
	return nil
}
