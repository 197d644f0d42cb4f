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
	"io"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/tools"

	"github.com/spf13/cobra"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Write a lexicon in another format",
	Long: `Dump parses a lexicon file and writes it as YAML, JSON, Mermaid, or
normalized lexicon syntax.`,
	Args: cobra.ExactArgs(1),
	RunE: dump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "yaml", "yaml, json, mermaid, or lexicon")
}

func dumpLexicon(l *core.Lexicon, format string, out io.Writer) error {
	switch format {
	case "yaml":
		return tools.DumpYAML(l, out)
	case "json":
		js, err := json.MarshalIndent(l, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", js)
		return err
	case "mermaid":
		return tools.Mermaid(l, out, nil)
	case "lexicon":
		_, err := io.WriteString(out, core.Format(l))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

func dump(cmd *cobra.Command, args []string) error {
	l, _, err := core.ParseFile(args[0], conf.Control().MatchTimeout)
	if err != nil {
		return err
	}
	return dumpLexicon(l, dumpFormat, cmd.OutOrStdout())
}
