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

// Package library manages a directory of lexicon files.
//
// A Manager loads the enabled files (listed in config.json), keeps
// one core.UpdatableLexicon per loaded file, and answers messages by
// asking each enabled lexicon in order.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/store"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

// Ext is the lexicon file extension.
const Ext = ".txt"

// ErrBadName is returned for a lexicon name that isn't a plain
// "*.txt" file name.
var ErrBadName = errors.New("bad lexicon name")

// Loaded is a lexicon that's in memory.
type Loaded struct {
	Name      string
	Lex       *core.UpdatableLexicon
	Anomalies []*core.ParseAnomaly
	At        time.Time
}

// Manager is a set of lexicons backed by a directory.
//
// The enabled set is guarded by the Manager.  Lexicons are swapped
// atomically, so Process doesn't block on loading.
type Manager struct {
	Dir string

	// Control is given to every Process call.
	Control *core.Control

	// Storage records rule hits.
	Storage store.Storage

	Logger *zap.Logger

	sync.RWMutex

	conf   *Config
	loaded map[string]*Loaded

	// written is what edit last wrote to each file, so Watch can
	// ignore the Manager's own writes.
	written map[string][]byte
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.Logger = l
	}
}

func WithControl(c *core.Control) Option {
	return func(m *Manager) {
		m.Control = c
	}
}

func WithStorage(s store.Storage) Option {
	return func(m *Manager) {
		m.Storage = s
	}
}

// WithDispatcher sets the function dispatcher used by the Manager's
// Control.
func WithDispatcher(d *funcs.Dispatcher) Option {
	return func(m *Manager) {
		m.Control = m.Control.Copy()
		m.Control.Funcs = d
	}
}

// NewManager makes a Manager for the directory, which is created if
// necessary.
//
// An unreadable config.json is logged and treated as empty.  No
// lexicons are loaded until LoadEnabled or Load.
func NewManager(dir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		Dir:     dir,
		Control: core.DefaultControl,
		Storage: &store.NoopStorage{},
		loaded:  make(map[string]*Loaded, 8),
		written: make(map[string][]byte, 8),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.Logger == nil {
		m.Logger = util.Logger()
	}
	if m.Control == nil {
		m.Control = core.DefaultControl
	}
	if m.Storage == nil {
		m.Storage = &store.NoopStorage{}
	}
	if m.Control.Logger == nil {
		m.Control = m.Control.Copy()
		m.Control.Logger = m.Logger
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	conf, err := ReadConfig(m.configFilename())
	if err != nil {
		m.Logger.Warn("config", zap.Error(err))
	}
	m.conf = conf

	return m, nil
}

func (m *Manager) configFilename() string {
	return filepath.Join(m.Dir, ConfigFilename)
}

func (m *Manager) filename(name string) string {
	return filepath.Join(m.Dir, name)
}

// CheckName checks that the name is a plain lexicon file name.
func CheckName(name string) error {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// writeConfig persists the enabled set.  The caller holds the lock.
func (m *Manager) writeConfig() error {
	if err := m.conf.Write(m.configFilename()); err != nil {
		m.Logger.Error("config", zap.Error(err))
		return err
	}
	return nil
}

// read parses a file into a new Loaded.
func (m *Manager) read(name string) (*Loaded, error) {
	l, as, err := core.ParseFile(m.filename(name), m.Control.MatchTimeout)
	if err != nil {
		return nil, err
	}
	for _, a := range as {
		m.Logger.Debug("anomaly", zap.String("lexicon", name), zap.Error(a))
	}
	return &Loaded{
		Name:      name,
		Lex:       core.NewUpdatableLexicon(l),
		Anomalies: as,
		At:        time.Now().UTC(),
	}, nil
}

// install swaps a freshly read lexicon in.  The caller holds the
// lock.
func (m *Manager) install(x *Loaded) {
	delete(m.written, x.Name)
	if have, is := m.loaded[x.Name]; is {
		have.Lex.Set(x.Lex.Lexicon())
		have.Anomalies = x.Anomalies
		have.At = x.At
		return
	}
	m.loaded[x.Name] = x
}

// Load parses the file, puts it in service, and enables it.
//
// Returns the number of rules loaded.  A read failure is a
// *core.LoadIOError, and the enabled set is unchanged.
func (m *Manager) Load(ctx context.Context, name string) (int, error) {
	if err := CheckName(name); err != nil {
		return 0, err
	}
	x, err := m.read(name)
	if err != nil {
		m.Logger.Warn("load", zap.String("lexicon", name), zap.Error(err))
		return 0, err
	}

	m.Lock()
	defer m.Unlock()

	m.install(x)
	if m.conf.Add(name) {
		m.writeConfig()
	}

	n := len(x.Lex.Lexicon().Entries)
	m.Logger.Info("loaded", zap.String("lexicon", name), zap.Int("rules", n))
	return n, nil
}

// Enable is Load.
func (m *Manager) Enable(ctx context.Context, name string) (int, error) {
	return m.Load(ctx, name)
}

// Disable takes the lexicon out of service and out of the enabled
// set.  The file itself is untouched.
func (m *Manager) Disable(ctx context.Context, name string) error {
	m.Lock()
	defer m.Unlock()

	delete(m.loaded, name)
	if m.conf.Remove(name) {
		if err := m.writeConfig(); err != nil {
			return err
		}
	}
	m.Logger.Info("disabled", zap.String("lexicon", name))
	return nil
}

// Toggle enables a disabled lexicon or disables an enabled one.
// Returns the new state.
func (m *Manager) Toggle(ctx context.Context, name string) (bool, error) {
	m.RLock()
	enabled := m.conf.Has(name)
	m.RUnlock()

	if enabled {
		return false, m.Disable(ctx, name)
	}
	if _, err := m.Load(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

// Available lists the lexicon files in the directory in name order.
func (m *Manager) Available() ([]string, error) {
	des, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil, err
	}
	acc := make([]string, 0, len(des))
	for _, de := range des {
		if de.IsDir() || CheckName(de.Name()) != nil {
			continue
		}
		acc = append(acc, de.Name())
	}
	sort.Strings(acc)
	return acc, nil
}

// LoadEnabled loads every enabled lexicon.
//
// When nothing is enabled, every lexicon file in the directory is
// enabled first (in name order), and that set is persisted.  A file
// that can't be loaded is logged and skipped.  Returns the number of
// lexicons loaded along with the per-file errors.
func (m *Manager) LoadEnabled(ctx context.Context) (int, []error) {
	m.Lock()
	if len(m.conf.EnabledFiles) == 0 {
		names, err := m.Available()
		if err != nil {
			m.Unlock()
			return 0, []error{err}
		}
		if 0 < len(names) {
			m.conf.EnabledFiles = names
			m.writeConfig()
		}
	}
	names := append([]string(nil), m.conf.EnabledFiles...)
	m.Unlock()

	var (
		n    int
		errs []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := CheckName(name); err != nil {
			m.Logger.Warn("skipping", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		x, err := m.read(name)
		if err != nil {
			m.Logger.Warn("skipping", zap.String("lexicon", name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		m.Lock()
		m.install(x)
		m.Unlock()
		n++
	}
	m.Logger.Info("loaded enabled", zap.Int("lexicons", n), zap.Int("failures", len(errs)))
	return n, errs
}

// Reload re-reads a loaded lexicon and swaps it in.  An empty name
// reloads every loaded lexicon.
func (m *Manager) Reload(ctx context.Context, name string) error {
	if name == "" {
		var errs []error
		for _, name := range m.LoadedNames() {
			if err := m.Reload(ctx, name); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	m.RLock()
	_, have := m.loaded[name]
	m.RUnlock()
	if !have {
		return fmt.Errorf("%w: lexicon %q", core.ErrNotFound, name)
	}

	x, err := m.read(name)
	if err != nil {
		m.Logger.Warn("reload", zap.String("lexicon", name), zap.Error(err))
		return err
	}

	m.Lock()
	// Disabled while we were reading?
	if _, have = m.loaded[name]; have {
		m.install(x)
	}
	m.Unlock()

	m.Logger.Info("reloaded", zap.String("lexicon", name), zap.Int("rules", len(x.Lex.Lexicon().Entries)))
	return nil
}

// Enabled returns the enabled set in order.
func (m *Manager) Enabled() []string {
	m.RLock()
	defer m.RUnlock()
	return append([]string(nil), m.conf.EnabledFiles...)
}

// LoadedNames returns the loaded lexicons in enabled order.
func (m *Manager) LoadedNames() []string {
	m.RLock()
	defer m.RUnlock()
	acc := make([]string, 0, len(m.loaded))
	for _, name := range m.conf.EnabledFiles {
		if _, have := m.loaded[name]; have {
			acc = append(acc, name)
		}
	}
	return acc
}

// Lexicon returns the current Lexicon for a loaded file.
func (m *Manager) Lexicon(name string) (*core.Lexicon, bool) {
	m.RLock()
	defer m.RUnlock()
	x, have := m.loaded[name]
	if !have {
		return nil, false
	}
	return x.Lex.Lexicon(), true
}

// snapshot returns the loaded lexicons in enabled order.
func (m *Manager) snapshot() []*core.Lexicon {
	m.RLock()
	defer m.RUnlock()
	acc := make([]*core.Lexicon, 0, len(m.loaded))
	for _, name := range m.conf.EnabledFiles {
		if x, have := m.loaded[name]; have {
			acc = append(acc, x.Lex.Lexicon())
		}
	}
	return acc
}

// Result is a core.Result plus the name of the lexicon that
// produced it.
type Result struct {
	*core.Result
	Lexicon string `json:"lexicon,omitempty"`
}

// Process asks each enabled lexicon in order and returns the first
// result that matched, even if its reply is empty.  If nothing
// matched, the Result's Matched is false.
func (m *Manager) Process(ctx context.Context, text string, props core.Props) *Result {
	for _, l := range m.snapshot() {
		if ctx.Err() != nil {
			break
		}
		r := l.Process(ctx, text, props, m.Control)
		for _, err := range r.Traces.Errors() {
			m.Logger.Debug("trace", zap.String("lexicon", l.Name), zap.Error(err))
		}
		if !r.Matched {
			continue
		}
		if r.Entry != nil {
			if err := m.Storage.RecordHit(ctx, l.Name, r.Entry.Trigger, m.now()); err != nil {
				m.Logger.Warn("RecordHit", zap.String("lexicon", l.Name), zap.Error(err))
			}
		}
		return &Result{
			Result:  r,
			Lexicon: l.Name,
		}
	}
	return &Result{
		Result: &core.Result{
			Traces: core.NewTraces(),
		},
	}
}

// Reply is Process for callers that only want the text.
func (m *Manager) Reply(ctx context.Context, text string, props core.Props) (string, bool) {
	return m.Process(ctx, text, props).Reply()
}

func (m *Manager) now() time.Time {
	if m.Control != nil && m.Control.Now != nil {
		return m.Control.Now()
	}
	return time.Now()
}
