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

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is parsed by ParseInbound, so a line can be plain
// text or JSON.  Lines starting with "#" are ignored, and "quit" ends
// input.
type Stdio struct {
	// In is coupled to Service input.
	In io.Reader

	// Out is coupled to Service output.
	Out io.Writer

	// Props are merged into the context of every in-bound message
	// without overriding what the message has.
	Props core.Props

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "reply", "none").
	Tags bool

	// JSON writes each Outbound as JSON rather than just the
	// reply text.
	JSON bool

	Logger *zap.Logger

	wg   sync.WaitGroup
	stop chan bool
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until pending output is written.
func (s *Stdio) Stop(ctx context.Context) error {
	if s.stop != nil {
		close(s.stop)
		s.wg.Wait()
		s.stop = nil
	}
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.Tags {
		format = fmt.Sprintf("% 6s ", tag) + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	fmt.Fprintf(s.Out, format, args...)
}

// IO returns channels for reading from In and writing to Out.
func (s *Stdio) IO(ctx context.Context) (chan *Inbound, chan *Outbound, chan bool, error) {
	log := util.Or(s.Logger)

	var (
		in   = make(chan *Inbound)
		out  = make(chan *Outbound)
		done = make(chan bool)
	)
	s.stop = make(chan bool)

	go func() {
		defer close(done)
		stdin := bufio.NewReader(s.In)
		for {
			line, err := stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				log.Error("stdin", zap.Error(err))
				return
			}
			eof := err == io.EOF
			trimmed := strings.TrimSpace(line)
			if trimmed == "quit" {
				return
			}
			if s.EchoInput && trimmed != "" {
				s.printf("input", "%s\n", strings.TrimRight(line, "\r\n"))
			}
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				if s.ShellExpand {
					if line, err = ShellExpand(line); err != nil {
						log.Warn("shell expand", zap.Error(err))
						continue
					}
				}
				msg, err := ParseInbound([]byte(line))
				if err != nil {
					fmt.Fprintf(os.Stderr, "bad input: %s\n", err)
				} else {
					msg.Props = s.merge(msg.Props)
					select {
					case <-ctx.Done():
						return
					case in <- msg:
					}
				}
			}
			if eof {
				log.Debug("stdio input done")
				return
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case o := <-out:
				if o == nil {
					return
				}
				switch {
				case s.JSON:
					s.printf("reply", "%s\n", JS(o))
				case o.Matched:
					s.printf("reply", "%s\n", o.Reply)
				default:
					s.printf("none", "\n")
				}
			}
		}
	}()

	return in, out, done, nil
}

func (s *Stdio) merge(ps core.Props) core.Props {
	if len(s.Props) == 0 {
		return ps
	}
	acc := s.Props.Copy()
	for p, v := range ps {
		acc[p] = v
	}
	return acc
}
