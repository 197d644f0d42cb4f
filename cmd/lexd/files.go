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
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the lexicon files in the directory",
	Args:  cobra.NoArgs,
	RunE:  files,
}

var enableCmd = &cobra.Command{
	Use:   "enable NAME ...",
	Short: "Enable lexicon files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, closer, err := openManager(ctx, true)
		if err != nil {
			return err
		}
		defer closer()

		for _, name := range args {
			n, err := m.Enable(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules\n", name, n)
		}
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable NAME ...",
	Short: "Disable lexicon files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, closer, err := openManager(ctx, true)
		if err != nil {
			return err
		}
		defer closer()

		for _, name := range args {
			if err := m.Disable(ctx, name); err != nil {
				return err
			}
		}
		return nil
	},
}

func files(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, closer, err := openManager(ctx, true)
	if err != nil {
		return err
	}
	defer closer()

	fis, err := m.Files(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "FILE\tENABLED\tLOADED\tRULES\tHITS\n")
	for _, fi := range fis {
		fmt.Fprintf(w, "%s\t%v\t%v\t%d\t%d\n", fi.Name, fi.Enabled, fi.Loaded, fi.Rules, fi.Hits)
	}
	if err = w.Flush(); err != nil {
		return err
	}

	st, err := m.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d enabled, %d loaded, %d rules, %d hits\n",
		st.TotalFiles, st.EnabledFiles, st.LoadedEngines, st.TotalEntries, st.Hits)
	return nil
}
