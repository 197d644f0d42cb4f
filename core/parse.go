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
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Lexicon syntax.
const (
	IfPrefix        = "如果:"
	IfPrefixAlt     = "if:"
	Else            = "else"
	EndIf           = "如果尾"
	Return          = "返回"
	VarBlockPrefix  = "#->var:"
	DefaultVarBlock = "default_var"
)

// CommentPrefixes start comment lines.
var CommentPrefixes = []string{"//", "##", "&&"}

// BoilerplateComments are comment prefixes that never name a
// category.
var BoilerplateComments = []string{"lchliebedich", "这是注释"}

// ParseState is the state of the lexicon tokenizer.
type ParseState int

const (
	// AwaitingTrigger: the next content line starts a rule.
	AwaitingTrigger ParseState = iota

	// InBody: lines are variables, responses, or the start of a
	// variable block or conditional block.
	InBody

	// InVarBlock: raw lines accumulate into a variable.
	InVarBlock

	// InCondition: lines accumulate into a conditional block.
	InCondition
)

func (s ParseState) String() string {
	switch s {
	case AwaitingTrigger:
		return "AwaitingTrigger"
	case InBody:
		return "InBody"
	case InVarBlock:
		return "InVarBlock"
	case InCondition:
		return "InCondition"
	}
	return "unknown"
}

// IsComment reports whether the trimmed line is a comment.
func IsComment(line string) bool {
	for _, p := range CommentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// IsConditionStart reports whether the trimmed line opens a
// conditional block.
func IsConditionStart(line string) bool {
	return strings.HasPrefix(line, IfPrefix) || strings.HasPrefix(line, IfPrefixAlt)
}

// ConditionExpr returns the expression of a "如果:"/"if:" line.
func ConditionExpr(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, IfPrefix) {
		return strings.TrimSpace(line[len(IfPrefix):])
	}
	return strings.TrimSpace(strings.TrimPrefix(line, IfPrefixAlt))
}

// IsVarDef reports whether the trimmed line is a short variable
// definition: a key of one to three characters, then ':', then the
// value.  A line with a '%' is never a definition.
func IsVarDef(line string) bool {
	if strings.Contains(line, "%") {
		return false
	}
	i := 0
	for _, r := range line {
		if r == ':' {
			return 1 <= i && i <= 3
		}
		if i++; 3 < i {
			return false
		}
	}
	return false
}

// splitVarDef splits a short variable definition.
func splitVarDef(line string) (string, string) {
	parts := strings.SplitN(line, ":", 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// commentText extracts the category text from a comment line.
func commentText(line string) string {
	s := strings.TrimLeft(line, "/")
	s = strings.TrimLeft(s, "#")
	s = strings.TrimLeft(s, "&")
	return strings.TrimSpace(s)
}

func isKeyword(line string) bool {
	return line == Else || line == EndIf || line == Return
}

// parser is the tokenizer state machine.
type parser struct {
	state     ParseState
	lineNum   int
	lex       *Lexicon
	anomalies []*ParseAnomaly

	// cur is the rule being built.
	cur *Entry

	// category is the candidate category for the next rule: the
	// most recent usable comment since the last content line.
	category string

	varName  string
	varLines []string

	// sawElse is set when the current conditional block has an
	// "else".
	sawElse bool
}

func (p *parser) anomaly(k AnomalyKind, text string) {
	p.anomalies = append(p.anomalies, &ParseAnomaly{
		Line: p.lineNum,
		Kind: k,
		Text: text,
	})
}

func (p *parser) noteComment(text string) {
	c := commentText(text)
	if c == "" {
		return
	}
	for _, b := range BoilerplateComments {
		if strings.HasPrefix(c, b) {
			return
		}
	}
	p.category = c
}

func (p *parser) openVarBlock(text string) {
	name := strings.TrimSpace(text[len(VarBlockPrefix):])
	if name == "" {
		name = DefaultVarBlock
	}
	p.varName = name
	p.varLines = nil
	p.state = InVarBlock
}

func (p *parser) closeVarBlock() {
	p.cur.Variables[p.varName] = strings.Join(p.varLines, "\n")
	p.varName = ""
	p.varLines = nil
}

func (p *parser) closeCondition(terminated bool) {
	if !terminated {
		p.anomaly(UnterminatedCondition, EndIf)
		p.cur.Conditions = append(p.cur.Conditions, EndIf)
	}
	p.sawElse = false
}

// finish ends the current rule.
func (p *parser) finish() {
	switch p.state {
	case InVarBlock:
		p.closeVarBlock()
	case InCondition:
		p.closeCondition(false)
	}
	p.state = AwaitingTrigger

	e := p.cur
	p.cur = nil
	if e == nil {
		return
	}
	if len(e.Responses) == 0 && len(e.Variables) == 0 && len(e.Conditions) == 0 {
		p.anomalies = append(p.anomalies, &ParseAnomaly{
			Line: e.Line,
			Kind: EmptyRule,
			Text: e.Trigger,
		})
		return
	}
	p.lex.Entries = append(p.lex.Entries, e)
}

// step consumes one line.
func (p *parser) step(raw string) {
	p.lineNum++
	raw = strings.TrimSuffix(raw, "\r")
	text := strings.TrimSpace(raw)
	blank := text == ""
	comment := !blank && IsComment(text)

	if comment {
		p.noteComment(text)
	}

	switch p.state {
	case AwaitingTrigger:
		if blank || comment {
			return
		}
		p.cur = NewEntry(text)
		p.cur.Line = p.lineNum
		p.cur.Category = p.category
		p.category = ""
		p.state = InBody

	case InBody:
		switch {
		case blank:
			p.finish()
		case comment:
		case IsConditionStart(text):
			p.category = ""
			p.cur.Conditions = append(p.cur.Conditions, text)
			p.sawElse = false
			p.state = InCondition
		case strings.HasPrefix(text, VarBlockPrefix):
			p.category = ""
			p.openVarBlock(text)
		case IsVarDef(text):
			p.category = ""
			k, v := splitVarDef(text)
			p.cur.Variables[k] = v
		default:
			p.category = ""
			if isKeyword(text) {
				p.anomaly(StrayKeyword, text)
			}
			p.cur.Responses = append(p.cur.Responses, text)
		}

	case InVarBlock:
		switch {
		case blank:
			p.finish()
		case comment:
			p.closeVarBlock()
			p.state = InBody
		case strings.HasPrefix(text, VarBlockPrefix):
			p.closeVarBlock()
			p.category = ""
			p.openVarBlock(text)
		default:
			p.category = ""
			p.varLines = append(p.varLines, raw)
		}

	case InCondition:
		switch {
		case blank:
			p.finish()
		case comment:
		case text == EndIf:
			p.category = ""
			p.cur.Conditions = append(p.cur.Conditions, text)
			p.closeCondition(true)
			p.state = InBody
		case IsConditionStart(text):
			p.category = ""
			p.anomaly(NestedCondition, text)
			p.cur.Conditions = append(p.cur.Conditions, text)
		case text == Else:
			p.category = ""
			if p.sawElse {
				p.anomaly(ExtraElse, text)
			}
			p.sawElse = true
			p.cur.Conditions = append(p.cur.Conditions, text)
		default:
			p.category = ""
			p.cur.Conditions = append(p.cur.Conditions, text)
		}
	}
}

// Parse turns lexicon text into a Lexicon.
//
// Parse never fails.  Lines that don't fit anywhere else become
// responses, and anything questionable is reported as a
// ParseAnomaly.  Triggers are compiled with the default budget.
func Parse(src string) (*Lexicon, []*ParseAnomaly) {
	l, as := parse(src)
	l.Compile(0)
	return l, as
}

func parse(src string) (*Lexicon, []*ParseAnomaly) {
	p := &parser{
		lex: &Lexicon{
			Entries: make([]*Entry, 0, 32),
		},
	}
	src = strings.TrimPrefix(src, "\ufeff")
	for _, line := range strings.Split(src, "\n") {
		p.step(line)
	}
	p.finish()
	return p.lex, p.anomalies
}

// ParseFile reads and parses a lexicon file.  The Lexicon is named
// after the file's base name, and triggers are compiled with the
// given budget.
//
// Only a read failure is an error, and that error is a *LoadIOError.
func ParseFile(filename string, timeout time.Duration) (*Lexicon, []*ParseAnomaly, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, &LoadIOError{
			Filename: filename,
			Err:      err,
		}
	}
	l, as := parse(string(bs))
	l.Name = filepath.Base(filename)
	l.Compile(timeout)
	return l, as, nil
}
