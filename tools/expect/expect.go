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

// Package expect is a tool for testing lexicons.
//
// You construct a Session, which has inputs and expected replies.
// Then run the session, either against a Processor in this process
// or against a subprocess (like "lexd repl --json --unmatched") that
// reads JSON messages on stdin and writes JSON replies on stdout.
//
// See ../../cmd/lexd for command-line use.
package expect

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/library"
	"github.com/Comcast/lexicon/util"
	. "github.com/Comcast/lexicon/util/testutil"

	"github.com/dlclark/regexp2"
	"github.com/jsccast/yaml"
	"go.uber.org/zap"
)

// Expectation is an input and what's expected in reply.
type Expectation struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Input string `json:"input" yaml:"input"`

	// Props are merged over the Session's Props.
	Props map[string]interface{} `json:"props,omitempty" yaml:"props,omitempty"`

	// Reply, if given, must equal the reply.
	Reply *string `json:"reply,omitempty" yaml:"reply,omitempty"`

	// Pattern, if given, is a regular expression that must match
	// (somewhere in) the reply.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// NoReply means that no rule should match.
	NoReply bool `json:"noReply,omitempty" yaml:"noReply,omitempty"`

	// Lexicon, if given, must be the lexicon that replied.
	Lexicon string `json:"lexicon,omitempty" yaml:"lexicon,omitempty"`
}

// Session is mostly a sequence of Expectations.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Props are the default context for every input.
	Props map[string]interface{} `json:"props,omitempty" yaml:"props,omitempty"`

	Expectations []*Expectation `json:"expectations" yaml:"expectations"`

	// Timeout bounds each reply from a subprocess in
	// milliseconds.  Defaults to DefaultTimeout.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ShowStderr controls whether the subprocess's stderr is
	// logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`

	Logger *zap.Logger `json:"-" yaml:"-"`
}

// DefaultTimeout is the default reply timeout for a subprocess.
var DefaultTimeout = 5 * time.Second

// ReadSession reads a Session from a YAML (or JSON) file.
func ReadSession(filename string) (*Session, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseSession(bs)
}

// ParseSession parses a Session from YAML (or JSON).
func ParseSession(bs []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	for i, e := range s.Expectations {
		if e == nil {
			return nil, fmt.Errorf("expectation %d is empty", i)
		}
		if e.Pattern != "" {
			if _, err := regexp2.Compile(e.Pattern, regexp2.None); err != nil {
				return nil, fmt.Errorf("expectation %d: %w", i, err)
			}
		}
	}
	return &s, nil
}

// Outcome is what actually happened.  Its JSON representation is
// compatible with an sio.Outbound.
type Outcome struct {
	Reply   string `json:"reply"`
	Matched bool   `json:"matched"`
	Lexicon string `json:"lexicon,omitempty"`
}

// Failure is an unmet Expectation.
type Failure struct {
	Index   int          `json:"index"`
	Input   string       `json:"input"`
	Problem string       `json:"problem"`
	Got     *Outcome     `json:"got,omitempty"`
	Want    *Expectation `json:"want"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%d %q: %s (got %s)", f.Index, f.Input, f.Problem, JS(f.Got))
}

// Report summarizes a run.
type Report struct {
	Passed   int        `json:"passed"`
	Failures []*Failure `json:"failures,omitempty"`
}

// Err returns an error that joins the failures (or nil).
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Check compares an Outcome to the Expectation.  Returns a
// description of the problem or the empty string.
func (e *Expectation) Check(o *Outcome) string {
	if e.NoReply {
		if o.Matched {
			return "wanted no reply"
		}
		return ""
	}
	if !o.Matched {
		return "no reply"
	}
	if e.Reply != nil && *e.Reply != o.Reply {
		return fmt.Sprintf("wanted reply %q", *e.Reply)
	}
	if e.Pattern != "" {
		re := regexp2.MustCompile(e.Pattern, regexp2.None)
		if ok, err := re.MatchString(o.Reply); err != nil || !ok {
			return fmt.Sprintf("wanted reply matching %q", e.Pattern)
		}
	}
	if e.Lexicon != "" && e.Lexicon != o.Lexicon {
		return fmt.Sprintf("wanted lexicon %q", e.Lexicon)
	}
	return ""
}

func (s *Session) props(e *Expectation) core.Props {
	if len(s.Props) == 0 && len(e.Props) == 0 {
		return nil
	}
	acc := make(core.Props, len(s.Props)+len(e.Props))
	for p, v := range s.Props {
		acc[p] = v
	}
	for p, v := range e.Props {
		acc[p] = v
	}
	return acc
}

func (s *Session) record(r *Report, i int, e *Expectation, o *Outcome) {
	problem := e.Check(o)
	if problem == "" {
		r.Passed++
		return
	}
	f := &Failure{
		Index:   i,
		Input:   e.Input,
		Problem: problem,
		Got:     o,
		Want:    e,
	}
	util.Or(s.Logger).Info("failure", zap.Error(f))
	r.Failures = append(r.Failures, f)
}

// Processor answers messages.  A *library.Manager is a Processor.
type Processor interface {
	Process(ctx context.Context, text string, props core.Props) *library.Result
}

// Lexicon makes a single Lexicon a Processor.
type Lexicon struct {
	Lex     core.Lexiconer
	Control *core.Control
}

func (l *Lexicon) Process(ctx context.Context, text string, props core.Props) *library.Result {
	lex := l.Lex.Lexicon()
	return &library.Result{
		Result:  lex.Process(ctx, text, props, l.Control),
		Lexicon: lex.Name,
	}
}

// Run checks every Expectation against the Processor.
func (s *Session) Run(ctx context.Context, p Processor) (*Report, error) {
	r := &Report{}
	for i, e := range s.Expectations {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		res := p.Process(ctx, e.Input, s.props(e))
		o := &Outcome{
			Lexicon: res.Lexicon,
		}
		o.Reply, o.Matched = res.Reply()
		s.record(r, i, e, o)
	}
	return r, nil
}

// RunProcess checks every Expectation against a subprocess.
//
// The subprocess is given by the args.  The first arg is the
// executable.  For each Expectation, a JSON message is written to
// the subprocess's stdin, and then one JSON Outcome is read from its
// stdout.  Other output lines are ignored.  The subprocess must
// write a line even when no rule matched.
func (s *Session) RunProcess(ctx context.Context, args ...string) (*Report, error) {
	if len(args) == 0 {
		return nil, errors.New("no command")
	}
	log := util.Or(s.Logger)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	defer stdin.Close()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// Log subprocess's stderr.
	go func() {
		in := bufio.NewReader(stderr)
		for {
			line, err := in.ReadString('\n')
			if s.ShowStderr && line != "" {
				log.Info("stderr", zap.String("line", strings.TrimRight(line, "\n")))
			}
			if err != nil {
				return
			}
		}
	}()

	outcomes := make(chan *Outcome)
	failed := make(chan error, 1)
	go func() {
		in := bufio.NewReader(stdout)
		for {
			line, err := in.ReadBytes('\n')
			if err != nil {
				failed <- err
				return
			}
			if len(line) == 0 || line[0] != '{' {
				continue
			}
			var o Outcome
			if err = json.Unmarshal(line, &o); err != nil {
				log.Debug("ignoring", zap.ByteString("line", line))
				continue
			}
			select {
			case <-ctx.Done():
				return
			case outcomes <- &o:
			}
		}
	}()

	timeout := DefaultTimeout
	if 0 < s.Timeout {
		timeout = time.Duration(s.Timeout) * time.Millisecond
	}

	r := &Report{}
	for i, e := range s.Expectations {
		js, err := json.Marshal(map[string]interface{}{
			"text":  e.Input,
			"props": s.props(e),
		})
		if err != nil {
			return r, err
		}
		if _, err = stdin.Write(append(js, '\n')); err != nil {
			return r, err
		}

		timer := time.NewTimer(timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return r, ctx.Err()
		case err := <-failed:
			timer.Stop()
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return r, err
		case <-timer.C:
			return r, fmt.Errorf("timeout waiting for reply to %q", e.Input)
		case o := <-outcomes:
			timer.Stop()
			s.record(r, i, e, o)
		}
	}

	if err := stdin.Close(); err != nil {
		log.Warn("stdin close", zap.Error(err))
	}
	// Let the reader finish before Wait closes stdout.
	select {
	case <-failed:
	case <-time.After(timeout):
	}
	if err := cmd.Wait(); err != nil {
		return r, err
	}

	return r, nil
}
