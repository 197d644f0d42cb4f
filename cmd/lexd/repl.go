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
	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/library"
	"github.com/Comcast/lexicon/sio"

	"github.com/spf13/cobra"
)

var (
	replJSON      bool
	replUnmatched bool
	replTags      bool
	replShell     bool
	replWatch     bool
	replUser      string
	replGroup     string
	replNickname  string
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Answer lines from stdin",
	Long: `Repl answers each line from stdin.  A line is either plain text or
JSON: {"text": "...", "props": {...}} or a chat event with a
"raw_message".  "quit" ends input.

With --json --unmatched, every input gets exactly one JSON line, which
is what "lexd expect" needs for a subprocess.`,
	RunE: repl,
}

func init() {
	f := replCmd.Flags()
	f.BoolVar(&replJSON, "json", false, "write replies as JSON")
	f.BoolVar(&replUnmatched, "unmatched", false, "write something even when no rule matches")
	f.BoolVar(&replTags, "tags", false, "prefix output with tags")
	f.BoolVar(&replShell, "sh", false, "expand <<shell commands>> in input")
	f.BoolVar(&replWatch, "watch", false, "reload lexicons when their files change")
	f.StringVar(&replUser, "user", "10000", "default user_id")
	f.StringVar(&replGroup, "group", "", "default group_id (makes messages group messages)")
	f.StringVar(&replNickname, "nickname", "tester", "default nickname")
}

// replProps makes the default context for repl input.
func replProps() core.Props {
	ps := core.Props{
		core.PropUserId:      replUser,
		core.PropNickname:    replNickname,
		core.PropMessageType: "private",
		core.PropSelfId:      "10001",
	}
	if replGroup != "" {
		ps[core.PropGroupId] = replGroup
		ps[core.PropMessageType] = "group"
	}
	return ps
}

func repl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, closer, err := openManager(ctx, true)
	if err != nil {
		return err
	}
	defer closer()

	if replWatch || conf.Wordlib.Watch {
		go m.Watch(ctx, library.DefaultDebounce)
	}

	io := sio.NewStdio(replShell)
	io.In = cmd.InOrStdin()
	io.Out = cmd.OutOrStdout()
	io.JSON = replJSON
	io.Tags = replTags
	io.Props = replProps()
	io.Logger = logger

	s := &sio.Service{
		Processor:     m,
		Couplings:     io,
		EmitUnmatched: replUnmatched,
		Logger:        logger,
	}
	return s.Run(ctx)
}
