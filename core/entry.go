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
	"sort"
	"time"

	"github.com/Comcast/lexicon/match"
)

// Entry is one rule: a trigger and what to say when it matches.
//
// An Entry is not modified after parsing, except for Enabled, which
// a Lexicon's owner may toggle before publishing the Lexicon.
type Entry struct {
	// Id is an opaque token assigned when the rule is parsed.
	Id string `json:"id" yaml:"id"`

	// Trigger is a case-insensitive regular expression.  If it
	// doesn't compile, the rule matches a message that is exactly
	// equal to Trigger.
	Trigger string `json:"trigger" yaml:"trigger"`

	// Responses are raw template lines, used when the rule has no
	// conditional block or no branch was selected.
	Responses []string `json:"responses,omitempty" yaml:"responses,omitempty"`

	// Variables are the rule's local variables.  Values are raw
	// and never substituted.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Conditions are the raw lines of the rule's conditional
	// blocks, including their "如果:"/"if:", "else", and "如果尾"
	// lines.
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Category comes from the nearest comment before the trigger.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Enabled rules take part in matching.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Line is the 1-based line number of the trigger.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`

	trigger *match.Trigger
}

// NewEntry makes an enabled Entry with a fresh id.
func NewEntry(trigger string) *Entry {
	return &Entry{
		Id:        NewId(),
		Trigger:   trigger,
		Variables: make(map[string]string),
		Enabled:   true,
	}
}

// Compile compiles the trigger with the given evaluation budget.
//
// Returns a *TriggerCompileError if the trigger will fall back to
// exact matching.
func (e *Entry) Compile(timeout time.Duration) error {
	e.trigger = match.Compile(e.Trigger, timeout)
	if e.trigger.Err != nil {
		return e.trigger.Err
	}
	return nil
}

// Compiled returns the compiled trigger, compiling (but not
// keeping) one with the default budget if necessary.
func (e *Entry) Compiled() *match.Trigger {
	if e.trigger != nil {
		return e.trigger
	}
	return match.Compile(e.Trigger, 0)
}

// Copy makes a deep copy.  The copy shares the compiled trigger.
func (e *Entry) Copy() *Entry {
	acc := *e
	acc.Responses = append([]string(nil), e.Responses...)
	acc.Conditions = append([]string(nil), e.Conditions...)
	acc.Variables = make(map[string]string, len(e.Variables))
	for k, v := range e.Variables {
		acc.Variables[k] = v
	}
	return &acc
}

// VariableNames returns the local variable names in sorted order.
func (e *Entry) VariableNames() []string {
	acc := make([]string, 0, len(e.Variables))
	for k := range e.Variables {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// Summary is a compact description of a rule for listing.
type Summary struct {
	Id         string `json:"id" yaml:"id"`
	Lexicon    string `json:"lexicon,omitempty" yaml:"lexicon,omitempty"`
	Trigger    string `json:"trigger" yaml:"trigger"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Responses  int    `json:"responses" yaml:"responses"`
	Variables  int    `json:"variables" yaml:"variables"`
	Conditions int    `json:"conditions" yaml:"conditions"`
	Exact      bool   `json:"exact,omitempty" yaml:"exact,omitempty"`
}

// Summary summarizes the entry.
func (e *Entry) Summary() Summary {
	return Summary{
		Id:         e.Id,
		Trigger:    e.Trigger,
		Category:   e.Category,
		Enabled:    e.Enabled,
		Responses:  len(e.Responses),
		Variables:  len(e.Variables),
		Conditions: len(e.Conditions),
		Exact:      e.Compiled().Exact(),
	}
}

// Lexicon is an ordered list of rules, usually from one file.
//
// Rule order is file order, and the first matching rule wins.
type Lexicon struct {
	// Name is usually the file name.
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Entries []*Entry `json:"entries" yaml:"entries"`
}

// Compile compiles every trigger with the given budget.
//
// Returns the triggers that fell back to exact matching.
func (l *Lexicon) Compile(timeout time.Duration) []error {
	var errs []error
	for _, e := range l.Entries {
		if err := e.Compile(timeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Find returns the rule with the given id.
func (l *Lexicon) Find(id string) (*Entry, bool) {
	for _, e := range l.Entries {
		if e.Id == id {
			return e, true
		}
	}
	return nil, false
}

// Summaries lists the rules in order.
func (l *Lexicon) Summaries() []Summary {
	acc := make([]Summary, 0, len(l.Entries))
	for _, e := range l.Entries {
		s := e.Summary()
		s.Lexicon = l.Name
		acc = append(acc, s)
	}
	return acc
}

// Copy makes a deep copy of the Lexicon.
func (l *Lexicon) Copy() *Lexicon {
	acc := &Lexicon{
		Name:    l.Name,
		Entries: make([]*Entry, 0, len(l.Entries)),
	}
	for _, e := range l.Entries {
		acc.Entries = append(acc.Entries, e.Copy())
	}
	return acc
}
