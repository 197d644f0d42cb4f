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

// These errors describe problems with lexicon content or the
// environment.  None of them escapes Process; they show up in
// Traces and in the return values of loading functions.

import (
	"errors"
	"fmt"

	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/match"
)

// AnomalyKind classifies a ParseAnomaly.
type AnomalyKind int

const (
	// EmptyRule is a trigger with no body.  The rule is dropped.
	EmptyRule AnomalyKind = iota

	// NestedCondition is a "如果:" inside a conditional block.
	// The line is kept verbatim and blocks stay flat.
	NestedCondition

	// UnterminatedCondition is a conditional block without
	// "如果尾".  The terminator is supplied.
	UnterminatedCondition

	// ExtraElse is a second "else" in one block.
	ExtraElse

	// StrayKeyword is "else", "返回", or "如果尾" outside a
	// conditional block.  The line is kept as a response.
	StrayKeyword
)

func (k AnomalyKind) String() string {
	switch k {
	case EmptyRule:
		return "empty rule"
	case NestedCondition:
		return "nested condition"
	case UnterminatedCondition:
		return "unterminated condition"
	case ExtraElse:
		return "extra else"
	case StrayKeyword:
		return "stray keyword"
	}
	return "unknown"
}

// ParseAnomaly is a parser diagnostic.  The parser never fails, so
// these are reports, not failures.
type ParseAnomaly struct {
	// Line is 1-based.
	Line int
	Kind AnomalyKind
	Text string
}

func (e *ParseAnomaly) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Kind, e.Text)
}

// TriggerCompileError occurs when a rule's trigger isn't a valid
// regular expression.  The rule then matches by string equality.
type TriggerCompileError = match.CompileError

// FunctionCallError occurs when a "$name args$" call fails.  The
// call is replaced by the empty string.
type FunctionCallError = funcs.CallError

// LoadIOError occurs when a lexicon file can't be read.
type LoadIOError struct {
	Filename string
	Err      error
}

func (e *LoadIOError) Error() string {
	return fmt.Sprintf(`can't load lexicon "%s": %s`, e.Filename, e.Err)
}

func (e *LoadIOError) Unwrap() error {
	return e.Err
}

// ConfigIOError occurs when configuration (including the JSON files
// of "读" and "写") can't be read or written.
type ConfigIOError = funcs.ConfigIOError

// BudgetExceeded occurs when an invocation uses up a Control limit.
type BudgetExceeded struct {
	// What is "calls" or "passes".
	What  string
	Limit int
}

func (e *BudgetExceeded) Error() string {
	return fmt.Sprintf("exceeded %d %s", e.Limit, e.What)
}

var (
	// ErrNotFound is returned when a rule isn't found.
	ErrNotFound = errors.New("not found")

	// ErrMatchTimeout is wrapped when a trigger evaluation takes
	// too long.
	ErrMatchTimeout = match.ErrTimeout

	// ErrUnknownFunction is wrapped by a FunctionCallError for a
	// name that isn't a built-in.
	ErrUnknownFunction = funcs.ErrUnknownFunction

	// ErrArity is wrapped by a FunctionCallError when a function
	// gets the wrong number of arguments.
	ErrArity = funcs.ErrArity
)
