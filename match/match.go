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

// Package match compiles and evaluates rule triggers.
//
// A trigger is a case-insensitive regular expression that is
// searched for anywhere in a message.  A trigger that doesn't
// compile still works: it matches only a message that is exactly
// equal to the trigger text.
//
// Regular expressions use backtracking, so every compiled trigger
// carries a time budget for a single evaluation.
package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

var (
	// DefaultTimeout is the evaluation budget used when Compile is
	// given a non-positive timeout.
	DefaultTimeout = 100 * time.Millisecond

	// ErrTimeout is returned (wrapped) by Match when an evaluation
	// exceeds its budget.
	ErrTimeout = errors.New("trigger evaluation timed out")
)

// CompileError reports that a trigger isn't a valid regular
// expression.  The Trigger still exists and falls back to exact
// matching.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf(`trigger "%s" does not compile (using exact match): %s`, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Trigger is a compiled pattern.
type Trigger struct {
	// Source is the original pattern text.
	Source string

	// Timeout is the budget for one evaluation.
	Timeout time.Duration

	// Err is non-nil when the pattern didn't compile.
	Err *CompileError

	re *regexp2.Regexp
}

// Compile makes a Trigger.
//
// Compile never fails.  If the pattern isn't a valid regular
// expression, the returned Trigger has a non-nil Err and matches
// by string equality.
func Compile(pattern string, timeout time.Duration) *Trigger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &Trigger{
		Source:  pattern,
		Timeout: timeout,
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		t.Err = &CompileError{
			Pattern: pattern,
			Err:     err,
		}
		return t
	}
	re.MatchTimeout = timeout
	t.re = re
	return t
}

// Exact reports whether this trigger uses string equality.
func (t *Trigger) Exact() bool {
	return t.re == nil
}

// Match searches the message for the trigger.
//
// Returns nil Captures if there's no match.  If the evaluation runs
// out of time, Match returns an error wrapping ErrTimeout (and nil
// Captures).
func (t *Trigger) Match(msg string) (*Captures, error) {
	if t.re == nil {
		if msg == t.Source {
			return &Captures{
				Message: msg,
				Exact:   true,
			}, nil
		}
		return nil, nil
	}

	m, err := t.re.FindStringMatch(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrTimeout, t.Source, err)
	}
	if m == nil {
		return nil, nil
	}

	gs := m.Groups()
	c := &Captures{
		Message: msg,
		Groups:  make([]string, 0, len(gs)),
	}
	for _, g := range gs[1:] {
		if len(g.Captures) == 0 {
			c.Groups = append(c.Groups, "")
			continue
		}
		c.Groups = append(c.Groups, g.String())
	}

	return c, nil
}

// Match compiles the pattern and matches it against the message.
//
// Mostly for tests and one-off use.
func Match(pattern, msg string) (*Captures, error) {
	return Compile(pattern, 0).Match(msg)
}
