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

import (
	"strconv"
	"strings"
)

// Names of the variables that a successful match binds.
const (
	// GroupPrefix is followed by a 1-based capture group index.
	GroupPrefix = "括号"

	// GroupCount holds the number of capture groups.
	GroupCount = "括号量"

	// ParamPrefix is followed by a 1-based whitespace token index.
	// The first token of the message isn't a parameter.
	ParamPrefix = "参数"

	// ParamCount holds the number of parameters.
	ParamCount = "参数量"

	// WholeMessage holds the entire message text.
	WholeMessage = "参数-1"
)

// Bindings is the variable store for a single message: capture
// groups, whitespace parameters, and whatever rule functions set.
//
// A Bindings is never shared between invocations.
type Bindings map[string]string

func NewBindings() Bindings {
	return make(Bindings, 16)
}

// Extend adds the property; modifies and returns the Bindings.
func (bs Bindings) Extend(p, v string) Bindings {
	bs[p] = v
	return bs
}

// Extendm adds all the given properties.
//
// The Bindings are modified.
func (bs Bindings) Extendm(m map[string]string) Bindings {
	for p, v := range m {
		bs[p] = v
	}
	return bs
}

// Remove removes the given keys.
//
// The Bindings are modified.
func (bs Bindings) Remove(ps ...string) Bindings {
	for _, p := range ps {
		delete(bs, p)
	}
	return bs
}

// Copy makes a copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Captures is what a successful match yields.
type Captures struct {
	// Message is the text that was matched.
	Message string `json:"message"`

	// Groups are the capture groups in order.  Groups[0] is the
	// first group (not the whole match).  A group that didn't
	// participate is the empty string.
	Groups []string `json:"groups,omitempty"`

	// Exact reports that the match was an exact string comparison
	// because the trigger isn't a valid regular expression.
	Exact bool `json:"exact,omitempty"`
}

// Params returns the whitespace-separated tokens of the message
// after the first one.
func (c *Captures) Params() []string {
	fs := strings.Fields(c.Message)
	if len(fs) == 0 {
		return nil
	}
	return fs[1:]
}

// Bind writes the captures into the given Bindings, which are
// modified and returned.
//
// Group values are bound with surrounding whitespace trimmed, so
// "测试(.*) (.*)" on "测试 foo bar" binds "foo" and "bar".
//
// An exact match binds nothing.
func (c *Captures) Bind(bs Bindings) Bindings {
	if c == nil || c.Exact {
		return bs
	}
	for i, g := range c.Groups {
		bs[GroupPrefix+strconv.Itoa(i+1)] = strings.TrimSpace(g)
	}
	bs[GroupCount] = strconv.Itoa(len(c.Groups))

	ps := c.Params()
	for i, p := range ps {
		bs[ParamPrefix+strconv.Itoa(i+1)] = p
	}
	bs[ParamCount] = strconv.Itoa(len(ps))
	bs[WholeMessage] = c.Message
	return bs
}
