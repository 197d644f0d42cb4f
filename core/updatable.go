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
	"sync/atomic"
)

// Lexiconer enables other things to manifest themselves as
// Lexicons.
//
// A Lexicon is itself a Lexiconer.  An UpdatableLexicon is also a
// Lexiconer, but it's not itself a Lexicon.
type Lexiconer interface {
	Lexicon() *Lexicon
}

// Lexicon makes any Lexicon a Lexiconer.
func (l *Lexicon) Lexicon() *Lexicon {
	return l
}

// UpdatableLexicon is a Lexiconer with an underlying Lexicon that can
// be replaced at any time.
//
// Replacement is load-then-swap: build and compile a new Lexicon,
// then Set it.  A Process call that's already running keeps using
// the Lexicon it started with.
type UpdatableLexicon struct {
	lex atomic.Pointer[Lexicon]
}

// NewUpdatableLexicon makes one with the given initial lexicon,
// which can be changed later via Set.
func NewUpdatableLexicon(l *Lexicon) *UpdatableLexicon {
	u := &UpdatableLexicon{}
	if l == nil {
		l = &Lexicon{}
	}
	u.lex.Store(l)
	return u
}

// Set atomically changes the underlying lexicon.
func (u *UpdatableLexicon) Set(l *Lexicon) {
	if l == nil {
		l = &Lexicon{}
	}
	u.lex.Store(l)
}

// Lexicon implements the Lexiconer interface.
func (u *UpdatableLexicon) Lexicon() *Lexicon {
	return u.lex.Load()
}

// Process processes the text with the current Lexicon.
func (u *UpdatableLexicon) Process(ctx context.Context, text string, props Props, c *Control) *Result {
	return u.Lexicon().Process(ctx, text, props, c)
}
