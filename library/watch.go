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
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before Watch acts on a file
// change.
var DefaultDebounce = 200 * time.Millisecond

// Watch reloads loaded lexicons when their files change, until the
// context is done.
//
// A changed file is reloaded once it has been quiet for debounce
// (DefaultDebounce if zero).  A removed file stays enabled but is
// taken out of service.  Files that aren't loaded are ignored, and
// so are the files written by rule edits as long as they still have
// what was written.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err = w.Add(m.Dir); err != nil {
		return err
	}
	m.Logger.Info("watching", zap.String("dir", m.Dir))

	var (
		pending = make(map[string]time.Time, 4)
		ticker  = time.NewTicker(debounce / 2)
	)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("watch done", zap.String("dir", m.Dir))
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if CheckName(name) != nil {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			m.Logger.Debug("file event", zap.String("lexicon", name), zap.String("op", ev.Op.String()))
			pending[name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.Logger.Warn("watch", zap.Error(err))

		case now := <-ticker.C:
			for name, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, name)
				m.changed(ctx, name)
			}
		}
	}
}

// changed handles a settled change to a file.
func (m *Manager) changed(ctx context.Context, name string) {
	m.RLock()
	_, loaded := m.loaded[name]
	m.RUnlock()
	if !loaded {
		return
	}

	src, err := os.ReadFile(m.filename(name))
	if errors.Is(err, fs.ErrNotExist) {
		m.Lock()
		delete(m.loaded, name)
		delete(m.written, name)
		m.Unlock()
		m.Logger.Warn("lexicon file removed", zap.String("lexicon", name))
		return
	}

	// Our own rule edit.  Reloading would assign new ids.
	m.RLock()
	wrote, have := m.written[name]
	m.RUnlock()
	if have && err == nil && bytes.Equal(src, wrote) {
		m.Logger.Debug("unchanged", zap.String("lexicon", name))
		return
	}

	if err := m.Reload(ctx, name); err != nil {
		m.Logger.Warn("auto reload", zap.String("lexicon", name), zap.Error(err))
	}
}
