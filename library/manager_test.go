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

package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/store"
	. "github.com/Comcast/lexicon/util/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func write(t *testing.T, dir, name, src string) {
	t.Helper()
	WriteFiles(t, dir, map[string]string{name: src})
}

func newManager(t *testing.T, files map[string]string, opts ...Option) (*Manager, string) {
	t.Helper()
	dir := TempFiles(t, files)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	m, err := NewManager(dir, opts...)
	require.NoError(t, err)
	return m, dir
}

var twoFiles = map[string]string{
	"b.txt":    "hi\nfrom b\n\nbye\nfrom b\n",
	"a.txt":    "hi\nfrom a\n",
	"notes.md": "hi\nnot a lexicon\n",
}

func TestLoadEnabledAutoEnables(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, twoFiles)

	n, errs := m.LoadEnabled(ctx)
	require.Empty(t, errs)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a.txt", "b.txt"}, m.Enabled())

	conf, err := ReadConfig(filepath.Join(dir, ConfigFilename))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, conf.EnabledFiles)
}

func TestLoadEnabledKeepsConfig(t *testing.T) {
	ctx := context.Background()
	_, dir := newManager(t, twoFiles)
	write(t, dir, ConfigFilename, `{"enabled_files": ["b.txt", "gone.txt", "../x.txt"]}`)

	m, err := NewManager(dir, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	n, errs := m.LoadEnabled(ctx)
	assert.Equal(t, 1, n)
	require.Len(t, errs, 2)

	var lerr *core.LoadIOError
	assert.True(t, errors.As(errs[0], &lerr))
	assert.True(t, errors.Is(errs[1], ErrBadName))

	assert.Equal(t, []string{"b.txt"}, m.LoadedNames())

	reply, ok := m.Reply(ctx, "hi", nil)
	assert.True(t, ok)
	assert.Equal(t, "from b", reply)
}

func TestProcessFirstMatch(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	r := m.Process(ctx, "hi", nil)
	require.True(t, r.Matched)
	assert.Equal(t, "from a", r.Text)
	assert.Equal(t, "a.txt", r.Lexicon)

	r = m.Process(ctx, "bye", nil)
	require.True(t, r.Matched)
	assert.Equal(t, "b.txt", r.Lexicon)

	r = m.Process(ctx, "nothing here", nil)
	assert.False(t, r.Matched)
	_, ok := r.Reply()
	assert.False(t, ok)
}

func TestProcessEmptyReplyWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, map[string]string{
		"a.txt": "闭嘴\n如果:1\n返回\n如果尾\n",
		"b.txt": "闭嘴\nfrom b\n",
	})
	m.LoadEnabled(ctx)

	r := m.Process(ctx, "闭嘴", nil)
	require.True(t, r.Matched)
	assert.Equal(t, "", r.Text)
	assert.Equal(t, "a.txt", r.Lexicon)
}

func TestEnableDisableToggle(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	require.NoError(t, m.Disable(ctx, "a.txt"))
	assert.Equal(t, []string{"b.txt"}, m.Enabled())

	reply, _ := m.Reply(ctx, "hi", nil)
	assert.Equal(t, "from b", reply)

	// Persisted?
	conf, err := ReadConfig(filepath.Join(dir, ConfigFilename))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, conf.EnabledFiles)

	on, err := m.Toggle(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, on)

	// Re-enabled files go to the end.
	assert.Equal(t, []string{"b.txt", "a.txt"}, m.Enabled())
	reply, _ = m.Reply(ctx, "hi", nil)
	assert.Equal(t, "from b", reply)

	on, err = m.Toggle(ctx, "b.txt")
	require.NoError(t, err)
	assert.False(t, on)
	reply, _ = m.Reply(ctx, "hi", nil)
	assert.Equal(t, "from a", reply)

	_, err = m.Enable(ctx, "missing.txt")
	var lerr *core.LoadIOError
	assert.True(t, errors.As(err, &lerr))
	assert.Equal(t, []string{"a.txt"}, m.Enabled())
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"a.txt", "词库.txt"} {
		assert.NoError(t, CheckName(name), name)
	}
	for _, name := range []string{"", "a.md", "../a.txt", "d/a.txt", ".txt", ".hidden.txt"} {
		assert.ErrorIs(t, CheckName(name), ErrBadName, name)
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	write(t, dir, "a.txt", "hi\nfrom new a\n")

	reply, _ := m.Reply(ctx, "hi", nil)
	assert.Equal(t, "from a", reply)

	require.NoError(t, m.Reload(ctx, "a.txt"))
	reply, _ = m.Reply(ctx, "hi", nil)
	assert.Equal(t, "from new a", reply)

	require.NoError(t, m.Reload(ctx, ""))
	assert.ErrorIs(t, m.Reload(ctx, "notes.txt"), core.ErrNotFound)
}

func TestRules(t *testing.T) {
	ctx := context.Background()
	m, dir := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	all, err := m.ListRules("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.txt", all[0].Lexicon)
	assert.Equal(t, "bye", all[2].Trigger)

	_, err = m.ListRules("nope.txt")
	assert.ErrorIs(t, err, core.ErrNotFound)

	e := core.NewEntry("早安")
	e.Category = "问候"
	e.Responses = []string{"早安, %昵称%"}
	e.Variables["x"] = "1"
	id, err := m.AddRule(ctx, "a.txt", e)
	require.NoError(t, err)

	got, name, err := m.GetRule(id)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", name)
	assert.Equal(t, "早安", got.Trigger)

	reply, _ := m.Reply(ctx, "早安", core.Props{core.PropNickname: "Alice"})
	assert.Equal(t, "早安, Alice", reply)

	// The file was rewritten.
	l, _, err := core.ParseFile(filepath.Join(dir, "a.txt"), 0)
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	if diff := cmp.Diff(e.Responses, l.Entries[1].Responses); diff != "" {
		t.Fatal(diff)
	}
	assert.Equal(t, "问候", l.Entries[1].Category)
	assert.Equal(t, map[string]string{"x": "1"}, l.Entries[1].Variables)

	u := core.NewEntry("早安")
	u.Responses = []string{"good morning"}
	require.NoError(t, m.UpdateRule(ctx, id, u))
	reply, _ = m.Reply(ctx, "早安", nil)
	assert.Equal(t, "good morning", reply)

	require.NoError(t, m.SetRuleEnabled(ctx, id, false))
	_, ok := m.Reply(ctx, "早安", nil)
	assert.False(t, ok)
	require.NoError(t, m.SetRuleEnabled(ctx, id, true))

	require.NoError(t, m.DeleteRule(ctx, id))
	_, _, err = m.GetRule(id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, m.DeleteRule(ctx, id), core.ErrNotFound)

	l, _, err = core.ParseFile(filepath.Join(dir, "a.txt"), 0)
	require.NoError(t, err)
	assert.Len(t, l.Entries, 1)

	_, err = m.AddRule(ctx, "b.txt", core.NewEntry("empty"))
	assert.ErrorIs(t, err, ErrInvalidRule)

	bad := core.NewEntry("x")
	bad.Responses = []string{"ok", ""}
	_, err = m.AddRule(ctx, "b.txt", bad)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = m.AddRule(ctx, "notes.txt", u)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCheckRule(t *testing.T) {
	rule := func(f func(e *core.Entry)) *core.Entry {
		e := core.NewEntry("现在")
		e.Responses = []string{"现在:%time%"}
		f(e)
		return e
	}
	respond := func(lines ...string) *core.Entry {
		return rule(func(e *core.Entry) { e.Responses = append(e.Responses, lines...) })
	}

	ok := map[string]*core.Entry{
		"plain":      respond("早安, %昵称%"),
		"percent":    respond("ab:%x%"),
		"variable":   rule(func(e *core.Entry) { e.Variables["x"] = "1" }),
		"long var":   rule(func(e *core.Entry) { e.Variables["name"] = "a\nb" }),
		"category":   rule(func(e *core.Entry) { e.Category = "问候" }),
		"conditions": rule(func(e *core.Entry) { e.Conditions = []string{"如果:%QQ%==1", "yes", "else", "no", "如果尾"} }),
	}
	for what, e := range ok {
		assert.NoError(t, CheckRule(e), what)
	}

	bad := map[string]*core.Entry{
		"variable line":  respond("ab:cd"),
		"comment":        respond("// not a comment"),
		"hash comment":   respond("## nope"),
		"var block":      respond("#->var:x"),
		"condition":      respond("if:1"),
		"padded":         rule(func(e *core.Entry) { e.Responses = []string{"  padded"} }),
		"newline cat":    rule(func(e *core.Entry) { e.Category = "a\nb" }),
		"boilerplate":    rule(func(e *core.Entry) { e.Category = "这是注释" }),
		"unterminated":   rule(func(e *core.Entry) { e.Conditions = []string{"如果:1", "yes"} }),
		"blank var line": rule(func(e *core.Entry) { e.Variables["name"] = "a\n\nb" }),
	}
	for what, e := range bad {
		assert.ErrorIs(t, CheckRule(e), ErrInvalidRule, what)
	}
}

func TestAddRuleReadsBack(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	e := core.NewEntry("现在")
	e.Responses = []string{"现在:%time%", "ab:cd", "// not a comment"}
	_, err := m.AddRule(ctx, "a.txt", e)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, ok := m.Reply(ctx, "现在", nil)
	assert.False(t, ok)

	rules, err := m.ListRules("a.txt")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

type countingStorage struct {
	store.NoopStorage
	sync.Mutex
	hits map[string]*store.Hit
}

func (s *countingStorage) RecordHit(ctx context.Context, lexicon, rule string, at time.Time) error {
	s.Lock()
	defer s.Unlock()
	if s.hits == nil {
		s.hits = make(map[string]*store.Hit)
	}
	h, have := s.hits[lexicon+"/"+rule]
	if !have {
		h = &store.Hit{Lexicon: lexicon, Rule: rule}
		s.hits[lexicon+"/"+rule] = h
	}
	h.Count++
	h.Last = at
	return nil
}

func (s *countingStorage) Hits(ctx context.Context, lexicon string) (map[string]*store.Hit, error) {
	s.Lock()
	defer s.Unlock()
	acc := make(map[string]*store.Hit)
	for _, h := range s.hits {
		if h.Lexicon == lexicon {
			acc[h.Rule] = h
		}
	}
	return acc, nil
}

func TestFilesStatsHits(t *testing.T) {
	ctx := context.Background()
	s := &countingStorage{}
	m, _ := newManager(t, twoFiles, WithStorage(s))
	m.LoadEnabled(ctx)
	require.NoError(t, m.Disable(ctx, "b.txt"))

	m.Process(ctx, "hi", nil)
	m.Process(ctx, "hi", nil)
	m.Process(ctx, "nope", nil)

	fis, err := m.Files(ctx)
	require.NoError(t, err)
	require.Len(t, fis, 2)
	assert.Equal(t, &FileInfo{
		Name:    "a.txt",
		Enabled: true,
		Loaded:  true,
		Size:    int64(len(twoFiles["a.txt"])),
		Rules:   1,
		Hits:    2,
	}, fis[0])
	assert.False(t, fis[1].Enabled)
	assert.False(t, fis[1].Loaded)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		TotalFiles:    2,
		EnabledFiles:  1,
		LoadedEngines: 1,
		TotalEntries:  1,
		Hits:          2,
	}, stats)
}

func TestCreateSample(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	name, err := m.CreateSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.SampleLexiconFilename, name)
	assert.Equal(t, []string{name}, m.Enabled())

	reply, ok := m.Reply(ctx, "你好", nil)
	assert.True(t, ok)
	assert.Equal(t, "你好！我是机器人助手。", reply)

	reply, _ = m.Reply(ctx, "测试条件", core.Props{core.PropUserId: 123456})
	assert.Equal(t, "你是管理员！", reply)

	// Again is harmless.
	_, err = m.CreateSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, m.Enabled())
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, dir := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	done := make(chan error)
	go func() {
		done <- m.Watch(ctx, 20*time.Millisecond)
	}()

	// Give the watcher a moment to start.
	time.Sleep(100 * time.Millisecond)
	write(t, dir, "a.txt", "hi\nwatched\n")

	require.Eventually(t, func() bool {
		reply, _ := m.Reply(ctx, "hi", nil)
		return reply == "watched"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	require.Eventually(t, func() bool {
		reply, _ := m.Reply(ctx, "hi", nil)
		return reply == "from b"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"a.txt", "b.txt"}, m.Enabled())

	cancel()
	require.NoError(t, <-done)
}

func TestWatchIgnoresRuleEdits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m, dir := newManager(t, twoFiles)
	m.LoadEnabled(ctx)

	done := make(chan error)
	go func() {
		done <- m.Watch(ctx, 20*time.Millisecond)
	}()
	time.Sleep(100 * time.Millisecond)

	before, err := m.ListRules("b.txt")
	require.NoError(t, err)
	require.Len(t, before, 2)
	require.NoError(t, m.SetRuleEnabled(ctx, before[1].Id, false))

	e := core.NewEntry("new")
	e.Responses = []string{"fresh"}
	id, err := m.AddRule(ctx, "b.txt", e)
	require.NoError(t, err)

	// Several debounce periods.
	time.Sleep(300 * time.Millisecond)

	_, name, err := m.GetRule(id)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", name)

	after, err := m.ListRules("b.txt")
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, before[0].Id, after[0].Id)
	assert.Equal(t, before[1].Id, after[1].Id)
	assert.False(t, after[1].Enabled)

	_, ok := m.Reply(ctx, "bye", nil)
	assert.False(t, ok)

	// Other writers still cause reloads.
	write(t, dir, "b.txt", "bye\nexternal\n")
	require.Eventually(t, func() bool {
		reply, _ := m.Reply(ctx, "bye", nil)
		return reply == "external"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, ConfigFilename)

	c, err := ReadConfig(filename)
	require.NoError(t, err)
	assert.Empty(t, c.EnabledFiles)

	assert.True(t, c.Add("a.txt"))
	assert.False(t, c.Add("a.txt"))
	assert.True(t, c.Add("b.txt"))
	require.NoError(t, c.Write(filename))

	js, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled_files":["a.txt","b.txt"]}`, string(js))
	assert.Contains(t, string(js), "\n  \"enabled_files\"")

	assert.True(t, c.Remove("a.txt"))
	assert.False(t, c.Remove("a.txt"))
	assert.Equal(t, []string{"b.txt"}, c.EnabledFiles)

	write(t, dir, ConfigFilename, "{not json")
	_, err = ReadConfig(filename)
	var cerr *core.ConfigIOError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "parse", cerr.Op)
}
