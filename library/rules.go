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

package library

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Comcast/lexicon/core"

	"go.uber.org/zap"
)

// ErrInvalidRule is returned for a rule that wouldn't survive being
// written and parsed again.
var ErrInvalidRule = errors.New("invalid rule")

// ListRules summarizes the rules of one loaded lexicon, or of every
// loaded lexicon (in enabled order) when the name is empty.
func (m *Manager) ListRules(name string) ([]core.Summary, error) {
	if name != "" {
		l, have := m.Lexicon(name)
		if !have {
			return nil, fmt.Errorf("%w: lexicon %q", core.ErrNotFound, name)
		}
		return l.Summaries(), nil
	}
	var acc []core.Summary
	for _, l := range m.snapshot() {
		acc = append(acc, l.Summaries()...)
	}
	return acc, nil
}

// GetRule finds a rule by id in the loaded lexicons.  Returns a copy
// and the name of the lexicon that has it.
func (m *Manager) GetRule(id string) (*core.Entry, string, error) {
	for _, l := range m.snapshot() {
		if e, have := l.Find(id); have {
			return e.Copy(), l.Name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: rule %q", core.ErrNotFound, id)
}

// CheckRule reports whether the rule can be written to a file and
// parsed back as the same rule.
func CheckRule(e *core.Entry) error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: nil", ErrInvalidRule)
	case strings.TrimSpace(e.Trigger) == "":
		return fmt.Errorf("%w: empty trigger", ErrInvalidRule)
	case strings.ContainsAny(e.Trigger, "\r\n"):
		return fmt.Errorf("%w: multi-line trigger", ErrInvalidRule)
	case core.IsComment(e.Trigger):
		return fmt.Errorf("%w: trigger %q looks like a comment", ErrInvalidRule, e.Trigger)
	case strings.ContainsAny(e.Category, "\r\n"):
		return fmt.Errorf("%w: multi-line category", ErrInvalidRule)
	}
	for _, lines := range [][]string{e.Responses, e.Conditions} {
		for _, s := range lines {
			if strings.TrimSpace(s) == "" || strings.ContainsAny(s, "\r\n") {
				return fmt.Errorf("%w: %q has a blank or multi-line body line", ErrInvalidRule, e.Trigger)
			}
		}
	}
	if len(e.Responses)+len(e.Conditions)+len(e.Variables) == 0 {
		return fmt.Errorf("%w: %q has no body", ErrInvalidRule, e.Trigger)
	}

	l, _ := core.Parse(core.FormatEntry(e))
	if len(l.Entries) != 1 {
		return fmt.Errorf("%w: %q reads back as %d rules", ErrInvalidRule, e.Trigger, len(l.Entries))
	}
	if what := differs(e, l.Entries[0]); what != "" {
		return fmt.Errorf("%w: %q reads back with different %s", ErrInvalidRule, e.Trigger, what)
	}
	return nil
}

// differs names the first part of the rule that isn't the same in
// the other rule.  Ids, lines, and enabled flags aren't compared.
func differs(e, other *core.Entry) string {
	switch {
	case e.Trigger != other.Trigger:
		return "trigger"
	case e.Category != other.Category:
		return "category"
	case !slices.Equal(e.Responses, other.Responses):
		return "responses"
	case !slices.Equal(e.Conditions, other.Conditions):
		return "conditions"
	case !maps.Equal(e.Variables, other.Variables):
		return "variables"
	}
	return ""
}

// edit applies f to a copy of a loaded lexicon, writes the result to
// the lexicon's file, and swaps it in.
func (m *Manager) edit(ctx context.Context, name string, f func(l *core.Lexicon) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()

	x, have := m.loaded[name]
	if !have {
		return fmt.Errorf("%w: lexicon %q", core.ErrNotFound, name)
	}
	l := x.Lex.Lexicon().Copy()
	if err := f(l); err != nil {
		return err
	}
	l.Compile(m.Control.MatchTimeout)

	src := []byte(core.Format(l))
	if err := writeFile(m.filename(name), src); err != nil {
		m.Logger.Error("write", zap.String("lexicon", name), zap.Error(err))
		return err
	}
	m.written[name] = src
	x.Lex.Set(l)
	return nil
}

// owner finds the loaded lexicon that has the rule.
func (m *Manager) owner(id string) (string, error) {
	_, name, err := m.GetRule(id)
	return name, err
}

// AddRule appends a rule to a loaded lexicon and rewrites its file.
// Returns the rule's id, which is generated if the rule has none.
func (m *Manager) AddRule(ctx context.Context, name string, e *core.Entry) (string, error) {
	if err := CheckRule(e); err != nil {
		return "", err
	}
	e = e.Copy()
	if e.Id == "" {
		e.Id = core.NewId()
	}
	err := m.edit(ctx, name, func(l *core.Lexicon) error {
		if _, have := l.Find(e.Id); have {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, e.Id)
		}
		l.Entries = append(l.Entries, e)
		return nil
	})
	if err != nil {
		return "", err
	}
	m.Logger.Info("added rule", zap.String("lexicon", name), zap.String("rule", e.Id), zap.String("trigger", e.Trigger))
	return e.Id, nil
}

// UpdateRule replaces the content of a rule, keeping its id and
// position, and rewrites the rule's file.
func (m *Manager) UpdateRule(ctx context.Context, id string, e *core.Entry) error {
	if err := CheckRule(e); err != nil {
		return err
	}
	name, err := m.owner(id)
	if err != nil {
		return err
	}
	err = m.edit(ctx, name, func(l *core.Lexicon) error {
		for i, have := range l.Entries {
			if have.Id == id {
				n := e.Copy()
				n.Id = id
				n.Line = have.Line
				l.Entries[i] = n
				return nil
			}
		}
		return fmt.Errorf("%w: rule %q", core.ErrNotFound, id)
	})
	if err == nil {
		m.Logger.Info("updated rule", zap.String("lexicon", name), zap.String("rule", id))
	}
	return err
}

// DeleteRule removes a rule and rewrites its file.
func (m *Manager) DeleteRule(ctx context.Context, id string) error {
	name, err := m.owner(id)
	if err != nil {
		return err
	}
	err = m.edit(ctx, name, func(l *core.Lexicon) error {
		for i, have := range l.Entries {
			if have.Id == id {
				l.Entries = append(l.Entries[:i:i], l.Entries[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: rule %q", core.ErrNotFound, id)
	})
	if err == nil {
		m.Logger.Info("deleted rule", zap.String("lexicon", name), zap.String("rule", id))
	}
	return err
}

// SetRuleEnabled enables or disables a rule in memory.  The file is
// not changed, so a reload enables the rule again.
func (m *Manager) SetRuleEnabled(ctx context.Context, id string, enabled bool) error {
	name, err := m.owner(id)
	if err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()

	x, have := m.loaded[name]
	if !have {
		return fmt.Errorf("%w: lexicon %q", core.ErrNotFound, name)
	}
	l := x.Lex.Lexicon().Copy()
	e, have := l.Find(id)
	if !have {
		return fmt.Errorf("%w: rule %q", core.ErrNotFound, id)
	}
	e.Enabled = enabled
	x.Lex.Set(l)

	m.Logger.Info("rule enabled", zap.String("lexicon", name), zap.String("rule", id), zap.Bool("enabled", enabled))
	return nil
}
