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

// Package store persists rule hit statistics.
package store

import (
	"context"
	"time"
)

// Hit is the statistics for one rule.
type Hit struct {
	// Lexicon is the lexicon (file) name.
	Lexicon string `json:"lexicon,omitempty"`

	// Rule is the rule's trigger.  Rule ids are assigned at parse
	// time, so triggers are what survive a reload.
	Rule string `json:"rule,omitempty"`

	Count uint64    `json:"count"`
	Last  time.Time `json:"last"`
}

// Storage is a persistence interface for hit statistics.
type Storage interface {
	Open(ctx context.Context) error

	// RecordHit counts one match of the rule.
	RecordHit(ctx context.Context, lexicon, rule string, at time.Time) error

	// Hits returns the statistics for one lexicon keyed by rule.
	Hits(ctx context.Context, lexicon string) (map[string]*Hit, error)

	// Forget removes a lexicon's statistics.
	Forget(ctx context.Context, lexicon string) error

	Close(ctx context.Context) error
}

// Total sums the counts.
func Total(hits map[string]*Hit) uint64 {
	var n uint64
	for _, h := range hits {
		n += h.Count
	}
	return n
}
