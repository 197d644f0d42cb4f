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

package sio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Comcast/lexicon/core"
)

// JS renders its argument as JSON or as '%#v'.
func JS(x interface{}) string {
	if x == nil {
		return "null"
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

// JShort renders its argument as JS() but only up to 73 characters.
func JShort(x interface{}) string {
	js := []rune(JS(x))
	if 70 < len(js) {
		js = append(js[0:70], []rune("...")...)
	}
	return string(js)
}

// ParseInbound makes an Inbound from a payload.
//
// A JSON object with a "text" property is an Inbound.  Any other
// JSON object is taken to be a chat event: its "raw_message" (or
// "message") is the text, and the whole object is the context.
// Anything else is plain text.
//
// Numbers are kept as json.Numbers so that large ids survive.
func ParseInbound(bs []byte) (*Inbound, error) {
	trimmed := bytes.TrimSpace(bs)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &Inbound{
			Text: strings.TrimRight(string(bs), "\r\n"),
		}, nil
	}

	d := json.NewDecoder(bytes.NewReader(trimmed))
	d.UseNumber()
	var m map[string]interface{}
	if err := d.Decode(&m); err != nil {
		return nil, err
	}

	if s, is := m["text"].(string); is {
		in := &Inbound{
			Text: s,
		}
		if ps, is := m["props"].(map[string]interface{}); is {
			in.Props = core.Props(ps)
		}
		return in, nil
	}

	props := core.Props(m)
	text := props.String(core.PropRawMessage)
	if text == "" {
		if s, is := m["message"].(string); is {
			text = s
		}
	}
	return &Inbound{
		Text:  text,
		Props: props,
	}, nil
}

var shell = regexp.MustCompile(`<<(.*?)>>`)

// ShellExpand expands shell commands delimited by '<<' and '>>'.  Use
// at your own risk, of course!
func ShellExpand(msg string) (string, error) {
	literals := shell.Split(msg, -1)
	ss := shell.FindAllStringSubmatch(msg, -1)
	acc := literals[0]
	for i, s := range ss {
		var sh = s[1]
		cmd := exec.Command("bash", "-c", sh)
		var out bytes.Buffer
		cmd.Stdout = &out
		err := cmd.Run()
		if err != nil {
			return "", fmt.Errorf("shell error %s on %s", err, sh)
		}
		acc += strings.TrimRight(out.String(), "\n")
		acc += literals[i+1]
	}
	return acc, nil
}
