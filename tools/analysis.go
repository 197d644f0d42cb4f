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
	"sort"
	"strings"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/funcs"
)

// Analysis is a summary of a lexicon with some possible problems.
type Analysis struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Rules      int      `json:"rules" yaml:"rules"`
	Disabled   int      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Conditions int      `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Functions are the built-ins that are called.
	Functions []string `json:"functions,omitempty" yaml:"functions,omitempty"`

	// Variables are the referenced variable names.
	Variables []string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Exact are the triggers that aren't valid regular
	// expressions.
	Exact []string `json:"exact,omitempty" yaml:"exact,omitempty"`

	// UnknownFunctions are called names that aren't built-ins.
	UnknownFunctions []string `json:"unknownFunctions,omitempty" yaml:"unknownFunctions,omitempty"`

	// Duplicates are triggers that appear more than once.
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`

	// Shadowed are rules that can't match their own trigger text
	// because an earlier rule matches it first.
	Shadowed []string `json:"shadowed,omitempty" yaml:"shadowed,omitempty"`

	Anomalies []string `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// Problems counts the things that are probably mistakes.
func (a *Analysis) Problems() int {
	return len(a.UnknownFunctions) + len(a.Duplicates) + len(a.Shadowed) + len(a.Anomalies)
}

// Analyze examines a lexicon.  The parse anomalies are optional.
func Analyze(l *core.Lexicon, anomalies []*core.ParseAnomaly) (*Analysis, error) {
	a := &Analysis{
		Name:  l.Name,
		Rules: len(l.Entries),
	}

	var (
		categories = make(map[string]bool)
		functions  = make(map[string]bool)
		unknown    = make(map[string]bool)
		variables  = make(map[string]bool)
		triggers   = make(map[string]int)
	)

	for _, e := range l.Entries {
		if !e.Enabled {
			a.Disabled++
		}
		if 0 < len(e.Conditions) {
			a.Conditions++
		}
		if e.Category != "" {
			categories[e.Category] = true
		}
		if e.Compiled().Exact() {
			a.Exact = append(a.Exact, e.Trigger)
		}
		triggers[e.Trigger]++

		for _, lines := range [][]string{e.Responses, e.Conditions} {
			for _, line := range lines {
				for _, s := range delimited(line, '$') {
					name, _ := funcs.Parse(s)
					if name == "" {
						continue
					}
					if _, have := funcs.Lookup(name); have {
						functions[name] = true
					} else {
						unknown[name] = true
					}
				}
				for _, s := range delimited(line, '%') {
					if s != "" && !strings.ContainsAny(s, " \t") {
						variables[s] = true
					}
				}
			}
		}
	}

	for t, n := range triggers {
		if 1 < n {
			a.Duplicates = append(a.Duplicates, t)
		}
	}

	for j, later := range l.Entries {
		if !later.Enabled {
			continue
		}
		for _, earlier := range l.Entries[:j] {
			if !earlier.Enabled || earlier.Trigger == later.Trigger {
				continue
			}
			caps, err := earlier.Compiled().Match(later.Trigger)
			if err == nil && caps != nil {
				a.Shadowed = append(a.Shadowed,
					fmt.Sprintf("%q (line %d) by %q (line %d)", later.Trigger, later.Line, earlier.Trigger, earlier.Line))
				break
			}
		}
	}

	for _, x := range anomalies {
		a.Anomalies = append(a.Anomalies, x.Error())
	}

	a.Categories = keys(categories)
	a.Functions = keys(functions)
	a.UnknownFunctions = keys(unknown)
	a.Variables = keys(variables)
	sort.Strings(a.Duplicates)

	return a, nil
}

// delimited returns the contents of each pair of delimiters.
func delimited(s string, delim byte) []string {
	parts := strings.Split(s, string(delim))
	var acc []string
	for i := 1; i+1 < len(parts); i += 2 {
		acc = append(acc, parts[i])
	}
	return acc
}

// keys returns the sorted keys of a set.
func keys(m map[string]bool) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
