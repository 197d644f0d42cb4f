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

// Package funcs is the dispatcher for the built-in functions that a
// rule template calls with "$name arg ...$".
//
// The set of functions is closed.  Each Kind has a fixed name (or
// names) and an Arity, and lookup is a static table.  A function
// sees the current invocation only through an Env, so a function can
// never touch another invocation's variables.
package funcs

import (
	"fmt"
)

// Kind enumerates the built-in functions.
type Kind int

const (
	Unknown Kind = iota
	Random
	Length
	FileSize
	SetVar
	GetVar
	ReadKV
	WriteKV
	Image
	Gif
	Flash
	Voice
	Face
	SuperFace
	Send
	NewMessage
	AddMessage
	SendMessage
	HasMessage
	GetMessage
	IsGroup
	IsFriend
	IsTemp
	IsSystem
	Unauthorized
	Compute
	CronNext
)

// Variadic as an Arity.Max means any number of arguments.
const Variadic = -1

// Arity is the number of arguments a function accepts.
type Arity struct {
	Min int
	Max int
}

// Allows reports whether n arguments are acceptable.
func (a Arity) Allows(n int) bool {
	if n < a.Min {
		return false
	}
	return a.Max == Variadic || n <= a.Max
}

func (a Arity) String() string {
	switch {
	case a.Max == Variadic:
		return fmt.Sprintf("%d+", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("%d", a.Min)
	default:
		return fmt.Sprintf("%d-%d", a.Min, a.Max)
	}
}

// Def describes a built-in.
type Def struct {
	Kind  Kind
	Name  string
	Arity Arity
	Doc   string
}

var defs = []Def{
	{Random, "随机数", Arity{0, Variadic}, "Random integer in [a,b], a random element of the JSON array held by a variable, or 1-100."},
	{Length, "字符长度", Arity{1, Variadic}, "Number of characters in the arguments."},
	{FileSize, "文件大小", Arity{1, Variadic}, "Size of a file in bytes, 0 on error."},
	{SetVar, "变量", Arity{2, Variadic}, "Set a variable for the rest of this reply."},
	{GetVar, "取变量", Arity{1, 1}, "Value of a variable."},
	{ReadKV, "读", Arity{2, 3}, "Read a key from a JSON object file, with an optional default."},
	{WriteKV, "写", Arity{3, Variadic}, "Write a key to a JSON object file."},
	{Image, "图片", Arity{1, 1}, "Image markup."},
	{Gif, "动图", Arity{1, 1}, "Animated image markup."},
	{Flash, "闪照", Arity{1, 1}, "Flash image markup."},
	{Voice, "语音", Arity{1, 2}, "Voice markup: duration (ignored) and URL."},
	{Face, "Emoy", Arity{1, 1}, "Face markup."},
	{SuperFace, "Emoq", Arity{1, 1}, "Super face markup."},
	{Send, "发送", Arity{0, Variadic}, "Unsupported; does nothing."},
	{NewMessage, "新建消息", Arity{1, 1}, "Start a message batch."},
	{AddMessage, "添加消息", Arity{0, Variadic}, "Unsupported; does nothing."},
	{SendMessage, "发送消息", Arity{1, 2}, "Unsupported; does nothing."},
	{HasMessage, "存在消息", Arity{1, 1}, "1 if the message context has the key, else 0."},
	{GetMessage, "获取消息", Arity{1, 2}, "Value from the message context, with an optional default."},
	{IsGroup, "群聊消息", Arity{0, 0}, "1 for a group message, else 0."},
	{IsFriend, "好友消息", Arity{0, 0}, "1 for a private message, else 0."},
	{IsTemp, "临时消息", Arity{0, 0}, "Always 0."},
	{IsSystem, "系统消息", Arity{0, 0}, "Always 0."},
	{Unauthorized, "未授权", Arity{0, 0}, "Always 0."},
	{Compute, "计算", Arity{1, Variadic}, "Evaluate an arithmetic expression."},
	{CronNext, "下次时间", Arity{1, Variadic}, "Next time a cron expression fires."},
}

var byName = make(map[string]Kind, len(defs))

func init() {
	for _, d := range defs {
		byName[d.Name] = d.Kind
	}
}

// Lookup finds the Kind for the given function name.
func Lookup(name string) (Kind, bool) {
	k, have := byName[name]
	return k, have
}

// Def returns the description of the Kind.
func (k Kind) Def() Def {
	if k <= Unknown || int(k) > len(defs) {
		return Def{Name: "unknown"}
	}
	return defs[k-1]
}

func (k Kind) String() string {
	return k.Def().Name
}

// Defs returns all the built-in descriptions in Kind order.
func Defs() []Def {
	acc := make([]Def, len(defs))
	copy(acc, defs)
	return acc
}
