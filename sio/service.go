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
	"context"
	"time"

	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

// Service connects a Processor to Couplings.
type Service struct {
	Processor Processor
	Couplings Couplings

	// Metrics is optional.
	Metrics *Metrics

	// EmitUnmatched sends an Outbound (with Matched false) even
	// when no rule matched.
	EmitUnmatched bool

	Logger *zap.Logger
}

// Run starts the Couplings and answers in-bound messages until the
// context is done or the Couplings' input is exhausted.  Then the
// Couplings are stopped.
func (s *Service) Run(ctx context.Context) error {
	log := util.Or(s.Logger)

	if err := s.Couplings.Start(ctx); err != nil {
		return err
	}
	in, out, done, err := s.Couplings.IO(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Couplings.Stop(context.Background()); err != nil {
			log.Warn("stop", zap.Error(err))
		}
	}()

	log.Info("service running")
	for {
		select {
		case <-ctx.Done():
			log.Info("service done", zap.Error(ctx.Err()))
			return nil
		case <-done:
			log.Info("service input done")
			return nil
		case msg := <-in:
			if msg == nil {
				continue
			}
			o := s.handle(ctx, msg)
			if o == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case out <- o:
			}
		}
	}
}

// handle answers one message.  Returns nil if there's nothing to
// send.
func (s *Service) handle(ctx context.Context, msg *Inbound) *Outbound {
	log := util.Or(s.Logger)

	then := time.Now()
	r := s.Processor.Process(ctx, msg.Text, msg.Props)
	elapsed := time.Since(then)

	s.Metrics.Observe(r, elapsed)

	log.Debug("processed",
		zap.String("text", msg.Text),
		zap.Bool("matched", r.Matched),
		zap.String("lexicon", r.Lexicon),
		zap.Duration("elapsed", elapsed))

	if !r.Matched && !s.EmitUnmatched {
		return nil
	}
	return NewOutbound(msg, r)
}
