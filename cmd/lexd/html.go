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
	"github.com/Comcast/lexicon/tools"

	"github.com/spf13/cobra"
)

var htmlCSS []string

var htmlCmd = &cobra.Command{
	Use:   "html FILE",
	Short: "Render a lexicon as an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tools.ReadAndRenderLexiconPage(args[0], htmlCSS, cmd.OutOrStdout())
	},
}

func init() {
	htmlCmd.Flags().StringSliceVar(&htmlCSS, "css", nil, "CSS file URLs")
}
