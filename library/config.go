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
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/Comcast/lexicon/core"
)

// ConfigFilename is the name of the enabled-set file in a library
// directory.
const ConfigFilename = "config.json"

// Config is the persisted enabled set.
//
// Order matters: Process consults lexicons in this order.
type Config struct {
	EnabledFiles []string `json:"enabled_files"`
}

// ReadConfig reads the config file.  A missing file gives an empty
// Config.
func ReadConfig(filename string) (*Config, error) {
	c := &Config{
		EnabledFiles: []string{},
	}
	js, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, &core.ConfigIOError{
			Filename: filename,
			Op:       "read",
			Err:      err,
		}
	}
	if err = json.Unmarshal(js, c); err != nil {
		return &Config{EnabledFiles: []string{}}, &core.ConfigIOError{
			Filename: filename,
			Op:       "parse",
			Err:      err,
		}
	}
	if c.EnabledFiles == nil {
		c.EnabledFiles = []string{}
	}
	return c, nil
}

// Write writes the Config as indented JSON.
func (c *Config) Write(filename string) error {
	js, err := json.MarshalIndent(c, "", "  ")
	if err == nil {
		err = writeFile(filename, js)
	}
	if err != nil {
		return &core.ConfigIOError{
			Filename: filename,
			Op:       "write",
			Err:      err,
		}
	}
	return nil
}

// Has reports whether the file is enabled.
func (c *Config) Has(name string) bool {
	return c.index(name) >= 0
}

func (c *Config) index(name string) int {
	for i, s := range c.EnabledFiles {
		if s == name {
			return i
		}
	}
	return -1
}

// Add appends the file unless it's already enabled.  Returns true if
// the Config changed.
func (c *Config) Add(name string) bool {
	if c.Has(name) {
		return false
	}
	c.EnabledFiles = append(c.EnabledFiles, name)
	return true
}

// Remove removes the file.  Returns true if the Config changed.
func (c *Config) Remove(name string) bool {
	i := c.index(name)
	if i < 0 {
		return false
	}
	c.EnabledFiles = append(c.EnabledFiles[:i:i], c.EnabledFiles[i+1:]...)
	return true
}

// Copy makes a copy.
func (c *Config) Copy() *Config {
	return &Config{
		EnabledFiles: append([]string{}, c.EnabledFiles...),
	}
}

// writeFile writes via a temporary file and a rename so that readers
// (including a watcher) never see a partial file.
func writeFile(filename string, bs []byte) error {
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, bs, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
