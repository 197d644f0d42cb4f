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

package match

// Fuzz triggers and messages.  Matching must never panic, and a
// trigger falls back to exact matching exactly when it fails to
// compile.

import (
	"math/rand"
	"testing"
	"time"
)

// Fuzz has parameters used to generate random triggers and messages.
type Fuzz struct {
	Alphabet string
	Width    int
}

func NewFuzz() *Fuzz {
	return &Fuzz{
		Alphabet: "ab 测试()[]*+?.^$\\|{}",
		Width:    8,
	}
}

// Gen generates a random string from the alphabet.
func (f *Fuzz) Gen(r *rand.Rand) string {
	rs := []rune(f.Alphabet)
	n := r.Intn(f.Width) + 1
	acc := make([]rune, n)
	for i := range acc {
		acc[i] = rs[r.Intn(len(rs))]
	}
	return string(acc)
}

func TestMatchFuzz(t *testing.T) {
	var (
		pats       = 500
		msgsPerPat = 50
		r          = rand.New(rand.NewSource(42))
		f          = NewFuzz()
	)

	for i := 0; i < pats; i++ {
		pat := f.Gen(r)
		tr := Compile(pat, 10*time.Millisecond)
		if (tr.Err != nil) != tr.Exact() {
			t.Fatalf("%q: inconsistent fallback", pat)
		}
		for j := 0; j < msgsPerPat; j++ {
			msg := f.Gen(r)
			c, err := tr.Match(msg)
			if err != nil {
				continue
			}
			if c != nil && c.Exact && msg != pat {
				t.Fatalf("%q exact-matched %q", pat, msg)
			}
		}
	}
}

func FuzzTrigger(f *testing.F) {
	for _, seed := range [][2]string{
		{"你好", "你好"},
		{"测试(.*) (.*)", "测试 foo bar"},
		{"[", "["},
		{"(?<n>x)", "x"},
	} {
		f.Add(seed[0], seed[1])
	}
	f.Fuzz(func(t *testing.T, pat, msg string) {
		c, err := Compile(pat, 10*time.Millisecond).Match(msg)
		if err != nil {
			return
		}
		c.Bind(NewBindings())
	})
}
