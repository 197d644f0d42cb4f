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
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/match"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

// frame is the state of a single invocation.  It's the funcs.Env
// that built-in functions see.
type frame struct {
	ctx    context.Context
	entry  *Entry
	bs     match.Bindings
	props  Props
	c      *Control
	traces *Traces
	log    *zap.Logger

	calls  int
	passes int

	// exhausted notes which budgets have been reported.
	exhausted map[string]bool
}

func newFrame(ctx context.Context, e *Entry, props Props, c *Control, traces *Traces) *frame {
	if props == nil {
		props = Props{}
	}
	f := &frame{
		ctx:    ctx,
		entry:  e,
		bs:     match.NewBindings(),
		props:  props,
		c:      c,
		traces: traces,
		log:    util.Or(c.Logger),
	}
	for k, v := range e.Variables {
		f.bs[k] = v
	}
	return f
}

func (f *frame) Context() context.Context {
	return f.ctx
}

func (f *frame) Set(name, value string) {
	f.bs[name] = value
}

func (f *frame) Prop(key string) (string, bool) {
	return f.props.Get(key)
}

func (f *frame) Now() time.Time {
	if f.c.Now != nil {
		return f.c.Now()
	}
	return time.Now()
}

func (f *frame) Trace(x interface{}) {
	f.traces.Add(x)
}

// Resolve finds the value of a variable: the variable store first,
// then the message context, then the built-in variables.  Unknown
// names resolve to the empty string.
func (f *frame) Resolve(name string) string {
	if v, have := f.bs[name]; have {
		return v
	}
	if v, have := f.props.Get(name); have {
		return v
	}
	v, _ := Builtin(f.props, name, f.Now())
	return v
}

// Builtin computes a built-in variable from the message context and
// the time.
func Builtin(ps Props, name string, now time.Time) (string, bool) {
	switch name {
	case "QQ", "Uin":
		return ps.String(PropUserId), true
	case "昵称", "UinName":
		return ps.String(PropNickname), true
	case "群号", "GroupId", "群", "Groupid":
		return ps.String(PropGroupId), true
	case "登录账号", "Account", "Robot":
		return ps.String(PropSelfId), true
	case "MsgId":
		return ps.String(PropMessageId), true
	case "MSG":
		return ps.String(PropRawMessage), true
	case "MSGJ":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(map[string]interface{}(ps)); err != nil {
			return "", true
		}
		return strings.TrimSuffix(buf.String(), "\n"), true
	case "消息来源":
		switch ps.String(PropMessageType) {
		case "group":
			return "群聊消息", true
		case "private":
			return "好友消息", true
		default:
			return "其他消息", true
		}
	case "date", "日期":
		return now.Format("2006-01-02"), true
	case "time", "时间":
		return now.Format("15:04:05"), true
	case "datetime":
		return now.Format("2006-01-02 15:04:05"), true
	case "时间戳":
		return strconv.FormatInt(now.Unix(), 10), true
	case "时间戳毫秒":
		return strconv.FormatInt(now.UnixMilli(), 10), true
	}
	return "", false
}

func (f *frame) overBudget(what string, limit int) {
	if f.exhausted == nil {
		f.exhausted = make(map[string]bool, 2)
	}
	if f.exhausted[what] {
		return
	}
	f.exhausted[what] = true
	f.log.Warn("budget exceeded", zap.String("rule", f.entry.Id), zap.String("budget", what), zap.Int("limit", limit))
	f.traces.Add(&BudgetExceeded{
		What:  what,
		Limit: limit,
	})
}

// scan is the tokenizer for "%name%" and "$name args$".  It makes
// one left-to-right pass, and replacement text is never rescanned.
// When functions is false, "$...$" is copied verbatim.
func (f *frame) scan(s string, functions bool) string {
	if strings.IndexAny(s, "%$") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c == '%' || (c == '$' && functions) {
			// Empty content isn't a token.
			if j := strings.IndexByte(s[i+1:], c); 0 < j {
				inner := s[i+1 : i+1+j]
				if c == '%' {
					b.WriteString(f.Resolve(inner))
				} else {
					b.WriteString(f.call(inner))
				}
				i += j + 2
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// substitute is one substitution pass over a template.
func (f *frame) substitute(s string) string {
	if f.c.MaxPasses <= f.passes {
		f.overBudget("passes", f.c.MaxPasses)
		return s
	}
	f.passes++
	return f.scan(s, true)
}

// call runs the function described by the content between '$'
// delimiters.  Variables in the content are resolved first.
func (f *frame) call(content string) string {
	content = f.scan(content, false)
	name, args := funcs.Parse(content)
	if name == "" {
		return ""
	}
	if err := f.ctx.Err(); err != nil {
		f.traces.Add(err)
		return ""
	}
	if f.c.MaxCalls <= f.calls {
		f.overBudget("calls", f.c.MaxCalls)
		return ""
	}
	f.calls++

	d := f.c.Funcs
	if d == nil {
		d = funcs.Default
	}
	s, err := d.Call(f, name, args)
	if err != nil {
		f.log.Debug("function call", zap.String("rule", f.entry.Id), zap.Error(err))
		f.traces.Add(err)
		return ""
	}
	return s
}
