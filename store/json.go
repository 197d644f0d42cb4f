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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

// JSONStorage keeps hit statistics in memory and writes them as JSON
// to a file.
//
// Not glamorous or efficient.  Fine for a single process with modest
// traffic.
type JSONStorage struct {
	// Filename is read by Open and written by Flush and Close.
	Filename string

	sync.Mutex
	hits  map[string]map[string]*Hit
	dirty bool
}

func NewJSONStorage(filename string) *JSONStorage {
	return &JSONStorage{
		Filename: filename,
		hits:     make(map[string]map[string]*Hit),
	}
}

// Open reads the file if it exists.
func (s *JSONStorage) Open(ctx context.Context) error {
	js, err := os.ReadFile(s.Filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	hits := make(map[string]map[string]*Hit)
	if err = json.Unmarshal(js, &hits); err != nil {
		return err
	}
	s.Lock()
	s.hits = hits
	s.Unlock()
	return nil
}

func (s *JSONStorage) RecordHit(ctx context.Context, lexicon, rule string, at time.Time) error {
	s.Lock()
	defer s.Unlock()

	hs, have := s.hits[lexicon]
	if !have {
		hs = make(map[string]*Hit)
		s.hits[lexicon] = hs
	}
	h, have := hs[rule]
	if !have {
		h = &Hit{
			Lexicon: lexicon,
			Rule:    rule,
		}
		hs[rule] = h
	}
	h.Count++
	h.Last = at
	s.dirty = true
	return nil
}

// Hits returns copies.
func (s *JSONStorage) Hits(ctx context.Context, lexicon string) (map[string]*Hit, error) {
	s.Lock()
	defer s.Unlock()

	acc := make(map[string]*Hit, len(s.hits[lexicon]))
	for rule, h := range s.hits[lexicon] {
		c := *h
		acc[rule] = &c
	}
	return acc, nil
}

func (s *JSONStorage) Forget(ctx context.Context, lexicon string) error {
	s.Lock()
	if _, have := s.hits[lexicon]; have {
		delete(s.hits, lexicon)
		s.dirty = true
	}
	s.Unlock()
	return nil
}

// Flush writes the statistics if they've changed.
func (s *JSONStorage) Flush(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if !s.dirty {
		return nil
	}
	js, err := json.MarshalIndent(s.hits, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Filename + ".tmp"
	if err = os.WriteFile(tmp, js, 0644); err != nil {
		return err
	}
	if err = os.Rename(tmp, s.Filename); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close flushes.
func (s *JSONStorage) Close(ctx context.Context) error {
	return s.Flush(ctx)
}
