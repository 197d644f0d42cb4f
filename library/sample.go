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
	"io/fs"
	"os"

	"github.com/Comcast/lexicon/core"
)

// CreateSample writes the sample lexicon (unless the file already
// exists) and loads it.  Returns the file name.
func (m *Manager) CreateSample(ctx context.Context) (string, error) {
	name := core.SampleLexiconFilename
	filename := m.filename(name)
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		if err = writeFile(filename, []byte(core.SampleLexicon)); err != nil {
			return "", err
		}
		m.Logger.Info("wrote sample")
	}
	if _, err := m.Load(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}
