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
	"fmt"

	"github.com/Comcast/lexicon/tools/expect"

	"github.com/spf13/cobra"
)

var expectCmd = &cobra.Command{
	Use:   "expect SESSION [-- COMMAND ARG ...]",
	Short: "Check replies against a session of expectations",
	Long: `Expect reads a YAML session of inputs and expected replies.

Without a command, the session runs against the enabled lexicons in
the directory.  Otherwise the command is started as a subprocess that
answers JSON lines, for example

  lexd expect tests.yaml -- lexd repl --json --unmatched`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpect,
}

func runExpect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := expect.ReadSession(args[0])
	if err != nil {
		return err
	}
	s.Logger = logger

	var r *expect.Report
	if dash := cmd.ArgsLenAtDash(); 0 <= dash && dash < len(args) {
		s.ShowStderr = s.ShowStderr || verbose
		r, err = s.RunProcess(ctx, args[dash:]...)
	} else {
		m, closer, err := openManager(ctx, true)
		if err != nil {
			return err
		}
		defer closer()
		if r, err = s.Run(ctx, m); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range r.Failures {
		fmt.Fprintf(out, "FAIL %s\n", f.Error())
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", r.Passed, len(r.Failures))

	if len(r.Failures) != 0 {
		return fmt.Errorf("%d expectations failed", len(r.Failures))
	}
	return nil
}
