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
	"html"
	"io"
	"strings"

	"github.com/Comcast/lexicon/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderLexiconHTML writes an HTML fragment describing the lexicon's
// rules grouped by category.
//
// Categories appear in the order of their first rule.  Rule bodies
// are rendered as Markdown code blocks, so content is escaped.
func RenderLexiconHTML(l *core.Lexicon, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	var (
		order  []string
		groups = make(map[string][]*core.Entry)
	)
	for _, e := range l.Entries {
		if _, have := groups[e.Category]; !have {
			order = append(order, e.Category)
		}
		groups[e.Category] = append(groups[e.Category], e)
	}

	f(`<div class="lexicon">`)
	for _, category := range order {
		f(`<div class="category">`)
		if category != "" {
			f(`<h2 class="categoryName">%s</h2>`, html.EscapeString(category))
		}
		f(`<table class="rules">`)
		for _, e := range groups[category] {
			class := "rule"
			if !e.Enabled {
				class += " disabled"
			}
			f(`<tr class="%s" id="%s"><td><code class="trigger">%s</code>`, class, html.EscapeString(e.Id), html.EscapeString(e.Trigger))
			if e.Compiled().Exact() {
				f(`<div class="exact">exact</div>`)
			}
			f(`</td><td>`)
			if names := e.VariableNames(); 0 < len(names) {
				f(`<table class="variables">`)
				for _, k := range names {
					f(`<tr><td><code>%s</code></td><td><code>%s</code></td></tr>`,
						html.EscapeString(k), html.EscapeString(e.Variables[k]))
				}
				f(`</table>`)
			}
			f(`<div class="body">%s</div>`, md.Run([]byte(codeBlock(e))))
			f(`</td></tr>`)
		}
		f(`</table>`)
		f(`</div>`)
	}
	f(`</div>`)

	return nil
}

// codeBlock makes a fenced Markdown code block of the rule's body.
func codeBlock(e *core.Entry) string {
	var b strings.Builder
	b.WriteString("```\n")
	for _, lines := range [][]string{e.Responses, e.Conditions} {
		for _, line := range lines {
			b.WriteString(strings.ReplaceAll(line, "```", "`\u200b``"))
			b.WriteByte('\n')
		}
	}
	b.WriteString("```\n")
	return b.String()
}

// RenderLexiconPage writes a complete HTML page.
func RenderLexiconPage(l *core.Lexicon, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/lexicon.css"}
	}

	name := html.EscapeString(l.Name)

	fmt.Fprintf(out, `<!DOCTYPE html>
<html>
  <head>
  <meta charset="utf-8">
  <title>%s</title>
`, name)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", html.EscapeString(cssFile))
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, name)

	if err := RenderLexiconHTML(l, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderLexiconPage parses a lexicon file and renders it.
func ReadAndRenderLexiconPage(filename string, cssFiles []string, out io.Writer) error {
	l, _, err := core.ParseFile(filename, 0)
	if err != nil {
		return err
	}
	return RenderLexiconPage(l, out, cssFiles)
}
