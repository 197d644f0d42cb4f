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

package core

import (
	"strings"
	"unicode/utf8"
)

// shortVar reports whether the variable can be written as a
// "k:v" line and read back unchanged.
func shortVar(k, v string) bool {
	if n := utf8.RuneCountInString(k); n < 1 || 3 < n {
		return false
	}
	if strings.Contains(k, ":") || strings.Contains(v, "\n") {
		return false
	}
	if strings.TrimSpace(k) != k || strings.TrimSpace(v) != v {
		return false
	}
	line := k + ":" + v
	if IsComment(line) || IsConditionStart(line) || strings.HasPrefix(line, VarBlockPrefix) {
		return false
	}
	return IsVarDef(line)
}

// FormatEntry renders a rule in lexicon syntax.
//
// Variables that can't be written as "k:v" lines are written as
// "#->var:" blocks after everything else.
func FormatEntry(e *Entry) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	if e.Category != "" {
		line("// " + e.Category)
	}
	line(e.Trigger)

	var blocks []string
	for _, k := range e.VariableNames() {
		v := e.Variables[k]
		if shortVar(k, v) {
			line(k + ":" + v)
		} else {
			blocks = append(blocks, k)
		}
	}
	for _, r := range e.Responses {
		line(r)
	}
	for _, c := range e.Conditions {
		line(c)
	}
	for _, k := range blocks {
		line(VarBlockPrefix + k)
		if v := e.Variables[k]; v != "" {
			line(v)
		}
	}

	return b.String()
}

// Format renders the Lexicon in lexicon syntax with a blank line
// between rules.
//
// Parsing the output gives the same rules (ids aside).
func Format(l *Lexicon) string {
	parts := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		parts = append(parts, FormatEntry(e))
	}
	return strings.Join(parts, "\n")
}
