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
	"os"

	"github.com/Comcast/lexicon/store"

	"go.uber.org/zap"
)

// FileInfo describes a lexicon file in the directory.
type FileInfo struct {
	Name    string `json:"filename" yaml:"filename"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Loaded  bool   `json:"loaded" yaml:"loaded"`
	Size    int64  `json:"size" yaml:"size"`

	// Rules is the number of rules in memory, which is zero if the
	// file isn't loaded.
	Rules int `json:"entries" yaml:"entries"`

	Hits uint64 `json:"hits,omitempty" yaml:"hits,omitempty"`
}

// Files describes every lexicon file in the directory.
func (m *Manager) Files(ctx context.Context) ([]*FileInfo, error) {
	names, err := m.Available()
	if err != nil {
		return nil, err
	}
	acc := make([]*FileInfo, 0, len(names))
	for _, name := range names {
		fi := &FileInfo{
			Name: name,
		}
		if s, err := os.Stat(m.filename(name)); err == nil {
			fi.Size = s.Size()
		}

		m.RLock()
		fi.Enabled = m.conf.Has(name)
		x, loaded := m.loaded[name]
		m.RUnlock()

		if loaded {
			fi.Loaded = true
			fi.Rules = len(x.Lex.Lexicon().Entries)
		}

		hits, err := m.Storage.Hits(ctx, name)
		if err != nil {
			m.Logger.Warn("Hits", zap.String("lexicon", name), zap.Error(err))
		}
		fi.Hits = store.Total(hits)

		acc = append(acc, fi)
	}
	return acc, nil
}

// Stats is a summary of the Manager's state.
type Stats struct {
	TotalFiles    int    `json:"total_files" yaml:"total_files"`
	EnabledFiles  int    `json:"enabled_files" yaml:"enabled_files"`
	LoadedEngines int    `json:"loaded_engines" yaml:"loaded_engines"`
	TotalEntries  int    `json:"total_entries" yaml:"total_entries"`
	Hits          uint64 `json:"hits" yaml:"hits"`
}

// Stats summarizes the directory and what's loaded.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	fis, err := m.Files(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalFiles:   len(fis),
		EnabledFiles: len(m.Enabled()),
	}
	for _, fi := range fis {
		if fi.Loaded {
			s.LoadedEngines++
			s.TotalEntries += fi.Rules
		}
		s.Hits += fi.Hits
	}
	return s, nil
}
