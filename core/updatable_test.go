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
	"sync"
	"testing"
)

func TestUpdatableLexicon(t *testing.T) {
	l1, _ := Parse("hi\none\n")
	l2, _ := Parse("hi\ntwo\n")

	u := NewUpdatableLexicon(l1)
	var _ Lexiconer = u
	var _ Lexiconer = l1

	ctx := context.Background()
	if got, _ := u.Process(ctx, "hi", nil, nil).Reply(); got != "one" {
		t.Fatal(got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch got, _ := u.Process(ctx, "hi", nil, nil).Reply(); got {
			case "one", "two":
			default:
				t.Errorf("got %q", got)
			}
		}()
	}
	u.Set(l2)
	wg.Wait()

	if got, _ := u.Process(ctx, "hi", nil, nil).Reply(); got != "two" {
		t.Fatal(got)
	}

	u.Set(nil)
	if r := u.Process(ctx, "hi", nil, nil); r.Matched {
		t.Fatal(r.Text)
	}
}

func TestLexiconFindAndSummaries(t *testing.T) {
	l, _ := Parse(SampleLexicon)
	l.Name = "sample.txt"
	e := l.Entries[2]
	got, have := l.Find(e.Id)
	if !have || got != e {
		t.Fatal("not found")
	}
	if _, have := l.Find("nope"); have {
		t.Fatal("found nope")
	}
	ss := l.Summaries()
	if len(ss) != len(l.Entries) || ss[0].Lexicon != "sample.txt" || ss[2].Trigger != e.Trigger {
		t.Fatal(ss)
	}

	cp := l.Copy()
	cp.Entries[3].Variables["A"] = "changed"
	if l.Entries[3].Variables["A"] != "Hello" {
		t.Fatal("copy shares variables")
	}
}
