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
	"github.com/Comcast/lexicon/funcs"
)

// Props is the message context: read-only facts about the inbound
// event such as "user_id", "group_id", "nickname", "raw_message",
// "message_type", "self_id", and "message_id".
//
// Values are usually strings or JSON numbers.
type Props map[string]interface{}

// Well-known Props keys.
const (
	PropSelfId      = "self_id"
	PropUserId      = "user_id"
	PropGroupId     = "group_id"
	PropMessageId   = "message_id"
	PropMessageType = "message_type"
	PropRawMessage  = "raw_message"
	PropNickname    = "nickname"
)

// Copy makes a shallow copy.
func (ps Props) Copy() Props {
	acc := make(Props, len(ps))
	for p, v := range ps {
		acc[p] = v
	}
	return acc
}

// Get returns the property rendered as a string.
func (ps Props) Get(p string) (string, bool) {
	v, have := ps[p]
	if !have {
		return "", false
	}
	return funcs.Stringify(v), true
}

// String returns the property as a string or the empty string.
func (ps Props) String(p string) string {
	s, _ := ps.Get(p)
	return s
}
