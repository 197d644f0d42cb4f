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

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/lexicon/core"
)

type MermaidOpts struct {
	// ShowConditions adds a node for each condition expression.
	ShowConditions bool `json:"showConditions"`

	// DisabledFill is the fill color for disabled rules.
	DisabledFill string `json:"disabledFill,omitempty"`

	// ExactFill is the fill color for rules with exact triggers.
	ExactFill string `json:"exactFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given lexicon: the lexicon, its categories, and their
// rules.
func Mermaid(l *core.Lexicon, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowConditions: true,
			DisabledFill:   "#dddddd",
			ExactFill:      "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph LR\n")
	fmt.Fprintf(w, "  root((\"%s\"))\n", mermaidText(l.Name))

	var (
		num  = 0
		cids = make(map[string]string)
	)
	nid := func() string {
		num++
		return fmt.Sprintf("n%d", num)
	}

	for _, e := range l.Entries {
		parent := "root"
		if e.Category != "" {
			cid, have := cids[e.Category]
			if !have {
				cid = nid()
				cids[e.Category] = cid
				fmt.Fprintf(w, "  %s[/\"%s\"/]\n", cid, mermaidText(e.Category))
				fmt.Fprintf(w, "  root --> %s\n", cid)
			}
			parent = cid
		}

		rid := nid()
		fmt.Fprintf(w, "  %s[\"%s\"]\n", rid, mermaidText(e.Trigger))
		fmt.Fprintf(w, "  %s --> %s\n", parent, rid)
		switch {
		case !e.Enabled && opts.DisabledFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", rid, opts.DisabledFill)
		case e.Compiled().Exact() && opts.ExactFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", rid, opts.ExactFill)
		}

		if !opts.ShowConditions {
			continue
		}
		for _, b := range core.Blocks(e.Conditions) {
			bid := nid()
			fmt.Fprintf(w, "  %s{\"%s\"}\n", bid, mermaidText(b.Expr))
			fmt.Fprintf(w, "  %s --> %s\n", rid, bid)
		}
	}

	return nil
}

// mermaidText makes a string safe for a quoted Mermaid label.
func mermaidText(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "\n", " ").Replace(s)
}
