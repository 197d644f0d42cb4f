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

package tools

import (
	"io"

	"github.com/Comcast/lexicon/core"

	"gopkg.in/yaml.v2"
)

// DumpYAML writes the lexicon's rules as YAML.
func DumpYAML(l *core.Lexicon, out io.Writer) error {
	bs, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	_, err = out.Write(bs)
	return err
}

// LoadYAML reads rules written by DumpYAML.  Triggers are compiled
// with the default budget.
func LoadYAML(bs []byte) (*core.Lexicon, error) {
	var l core.Lexicon
	if err := yaml.Unmarshal(bs, &l); err != nil {
		return nil, err
	}
	for _, e := range l.Entries {
		if e.Variables == nil {
			e.Variables = make(map[string]string)
		}
	}
	l.Compile(0)
	return &l, nil
}
