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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/match"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16

	// DefaultControl will be used by Lexicon.Process if the given
	// control is nil.
	DefaultControl = &Control{
		MaxCalls:     64,
		MaxPasses:    64,
		MatchTimeout: match.DefaultTimeout,
	}
)

// Control bounds and equips a single invocation.
type Control struct {
	// MaxCalls is the maximum number of function calls.  Calls
	// beyond the limit are replaced by the empty string.
	MaxCalls int

	// MaxPasses is the maximum number of substitution passes
	// (one per condition expression plus one for the reply).
	// Text beyond the limit is left unsubstituted.
	MaxPasses int

	// MatchTimeout is the budget for evaluating one trigger.  It
	// applies when triggers are compiled, so owners of a Lexicon
	// should Compile with it.
	MatchTimeout time.Duration

	// Now is the clock.  Defaults to time.Now.
	Now func() time.Time

	// Funcs executes built-in functions.  Defaults to
	// funcs.Default.
	Funcs *funcs.Dispatcher

	// Logger defaults to util.Logger().
	Logger *zap.Logger
}

// Copy makes a shallow copy.
func (c *Control) Copy() *Control {
	acc := *c
	return &acc
}

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
//
// The Messages array has TracesInitialCap initial capacity.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, TracesInitialCap),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// Errors returns the traces that are errors.
func (ts *Traces) Errors() []error {
	var acc []error
	for _, x := range ts.Messages {
		if err, is := x.(error); is {
			acc = append(acc, err)
		}
	}
	return acc
}

// Result is the outcome of processing a message.
type Result struct {
	// Matched reports that some rule matched.  When false, there
	// is no reply at all.
	Matched bool `json:"matched"`

	// Text is the reply, which can be empty even when Matched.
	Text string `json:"text,omitempty"`

	// Entry is the rule that matched.
	Entry *Entry `json:"-"`

	// Bindings is the final variable store.
	Bindings match.Bindings `json:"bs,omitempty"`

	Traces *Traces `json:"traces,omitempty"`
}

// Reply returns the reply and whether there is one.
func (r *Result) Reply() (string, bool) {
	if r == nil || !r.Matched {
		return "", false
	}
	return r.Text, true
}

// Process finds the first enabled rule whose trigger matches the
// text and generates that rule's reply.
//
// Process does not return an error and does not panic.  Problems
// along the way (trigger timeouts, failed function calls, budget
// exhaustion) appear in the Result's Traces.
func (l *Lexicon) Process(ctx context.Context, text string, props Props, c *Control) (r *Result) {
	if c == nil {
		c = DefaultControl
	}
	r = &Result{
		Traces: NewTraces(),
	}
	log := util.Or(c.Logger)

	defer func() {
		if x := recover(); x != nil {
			log.Error("lexicon process panic", zap.String("lexicon", l.Name), zap.Any("recovered", x))
			traces := r.Traces
			traces.Add(fmt.Errorf("internal error: %v", x))
			r = &Result{
				Traces: traces,
			}
		}
	}()

	for _, e := range l.Entries {
		if !e.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			r.Traces.Add(err)
			return r
		}

		t := e.trigger
		if t == nil {
			t = match.Compile(e.Trigger, c.MatchTimeout)
		}
		caps, err := t.Match(text)
		if err != nil {
			log.Warn("trigger", zap.String("lexicon", l.Name), zap.String("rule", e.Id), zap.Error(err))
			r.Traces.Add(err)
			continue
		}
		if caps == nil {
			continue
		}

		f := newFrame(ctx, e, props, c, r.Traces)
		caps.Bind(f.bs)

		r.Matched = true
		r.Entry = e
		r.Text = f.respond()
		r.Bindings = f.bs
		return r
	}

	return r
}

// Reply is Process with the default Control, returning just the
// reply.
func (l *Lexicon) Reply(ctx context.Context, text string, props Props) (string, bool) {
	return l.Process(ctx, text, props, nil).Reply()
}

// respond generates the reply for the frame's rule.
func (f *frame) respond() string {
	if len(f.entry.Conditions) != 0 {
		lines, suppressed, selected := f.selectBranch(f.entry.Conditions)
		if suppressed {
			return ""
		}
		if selected && len(lines) != 0 {
			return f.substitute(strings.Join(lines, "\n"))
		}
	}
	return f.substitute(strings.Join(f.entry.Responses, "\n"))
}
