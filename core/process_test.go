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
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/interpreters/goja"
)

var fixedNow = time.Date(2024, 3, 1, 8, 30, 5, 0, time.UTC)

func testControl() *Control {
	c := DefaultControl.Copy()
	c.Now = func() time.Time { return fixedNow }
	return c
}

func process(t *testing.T, src, msg string, props Props) *Result {
	l, _ := Parse(src)
	return l.Process(context.Background(), msg, props, testControl())
}

func TestProcessFirstMatchWins(t *testing.T) {
	src := "hello\nfirst\n\nhel+o\nsecond\n"
	r := process(t, src, "hello", nil)
	if got, _ := r.Reply(); got != "first" {
		t.Fatal(got)
	}
	r = process(t, src, "helllo", nil)
	if got, _ := r.Reply(); got != "second" {
		t.Fatal(got)
	}
}

func TestProcessNoMatch(t *testing.T) {
	r := process(t, SampleLexicon, "完全无关", nil)
	if r.Matched {
		t.Fatal(r.Text)
	}
	if _, ok := r.Reply(); ok {
		t.Fatal("expected no reply")
	}
}

func TestProcessCaptures(t *testing.T) {
	r := process(t, "测试(.*) (.*)\n%括号1%-%括号2% %括号量% %参数量% [%参数-1%]\n", "测试 foo bar", nil)
	if r.Text != "foo-bar 2 2 [测试 foo bar]" {
		t.Fatal(r.Text)
	}
}

func TestProcessSinglePass(t *testing.T) {
	src := "echo (.*)\n变量:%括号1%\n"
	// The variable definition above is a response line because
	// it contains '%'.
	r := process(t, src, "echo %QQ% $图片 x$", Props{"user_id": "42"})
	if r.Text != "变量:%QQ% $图片 x$" {
		t.Fatal(r.Text)
	}

	// A function's result isn't rescanned either.
	src = "set\n$变量 v %%QQ%%$%v%\n"
	r = process(t, src, "set", Props{"user_id": "42"})
	if r.Text != "%42%" {
		t.Fatal(r.Text)
	}
}

func TestProcessConditions(t *testing.T) {
	src := `测试条件
如果:%QQ%==123456
你是管理员！
else
你是普通用户。
如果尾
`
	if r := process(t, src, "测试条件", Props{"user_id": 123456.0}); r.Text != "你是管理员！" {
		t.Fatal(r.Text)
	}
	if r := process(t, src, "测试条件", Props{"user_id": "7"}); r.Text != "你是普通用户。" {
		t.Fatal(r.Text)
	}
}

func TestProcessSequentialBlocks(t *testing.T) {
	src := `t
如果:%x%==a
A
如果尾
如果:%x%==b
B
如果尾
fallback
`
	for x, want := range map[string]string{"a": "A", "b": "B", "c": "fallback"} {
		if r := process(t, src, "t", Props{"x": x}); r.Text != want {
			t.Fatalf("%s: %q", x, r.Text)
		}
	}
}

func TestProcessReturnSuppresses(t *testing.T) {
	r := process(t, SampleLexicon, "闭嘴", nil)
	got, ok := r.Reply()
	if !ok || got != "" {
		t.Fatalf("%q %v", got, ok)
	}

	// 返回 only counts in the selected branch.
	src := "t\nif:0\n返回\nelse\nok\n如果尾\n"
	if r := process(t, src, "t", nil); r.Text != "ok" {
		t.Fatal(r.Text)
	}
}

func TestProcessMalformedTrigger(t *testing.T) {
	src := "[坏\n精确\n\n.*\n其他\n"
	l, _ := Parse(src)
	if !l.Entries[0].Compiled().Exact() {
		t.Fatal("expected exact fallback")
	}
	for msg, want := range map[string]string{"[坏": "精确", "[坏 ": "其他"} {
		r := l.Process(context.Background(), msg, nil, nil)
		if r.Text != want {
			t.Fatalf("%q: %q", msg, r.Text)
		}
	}
}

func TestProcessDisabledEntry(t *testing.T) {
	l, _ := Parse("hi\none\n\nhi\ntwo\n")
	l.Entries[0].Enabled = false
	if got, _ := l.Reply(context.Background(), "hi", nil); got != "two" {
		t.Fatal(got)
	}
}

func TestProcessLocalsAndSample(t *testing.T) {
	props := Props{
		"user_id":      "10001",
		"group_id":     "20002",
		"nickname":     "Marge",
		"message_type": "group",
	}
	tests := []struct {
		msg  string
		want string
	}{
		{"你好", "你好！我是机器人助手。"},
		{"早上好", "早上好！今天是 2024-03-01，祝你有美好的一天！"},
		{"测试变量", "Hello World！"},
		{"发图", "[CQ:image,file=https://q4.qlogo.cn/g?b=qq&nk=10001&s=140]"},
		{"笑脸", "[CQ:face,id=13]"},
		{"现在几点", "现在是 2024-03-01 08:30:05\n时间戳：" + fmt.Sprint(fixedNow.Unix())},
		{"群信息", "群号：20002\n群成员：Marge(10001)"},
	}
	l, _ := Parse(SampleLexicon)
	for _, test := range tests {
		r := l.Process(context.Background(), test.msg, props, testControl())
		if r.Text != test.want {
			t.Fatalf("%s: %q", test.msg, r.Text)
		}
	}

	r := l.Process(context.Background(), "随机测试", props, testControl())
	switch r.Text {
	case "回复1", "回复2", "回复3":
	default:
		t.Fatal(r.Text)
	}

	props["message_type"] = "private"
	r = l.Process(context.Background(), "群信息", props, testControl())
	if r.Text != "这不是群聊消息" {
		t.Fatal(r.Text)
	}
}

func TestProcessBuiltins(t *testing.T) {
	props := Props{
		"user_id":      "10001",
		"self_id":      "9",
		"message_id":   "m1",
		"raw_message":  "raw <b>",
		"message_type": "private",
	}
	src := "t\n%Uin%|%Robot%|%MsgId%|%MSG%|%消息来源%|%time%|%时间戳毫秒%|%nope%\n"
	r := process(t, src, "t", props)
	want := fmt.Sprintf("10001|9|m1|raw <b>|好友消息|08:30:05|%d|", fixedNow.UnixMilli())
	if r.Text != want {
		t.Fatal(r.Text)
	}

	r = process(t, "t\n%MSGJ%\n", "t", Props{"a": "<x>", "n": 1.0})
	if r.Text != `{"a":"<x>","n":1}` {
		t.Fatal(r.Text)
	}
}

func TestProcessSetVar(t *testing.T) {
	r := process(t, "t\n$变量 who world$hello %who%\n", "t", nil)
	if r.Text != "hello world" {
		t.Fatal(r.Text)
	}
	if r.Bindings["who"] != "world" {
		t.Fatal(r.Bindings)
	}
}

func TestProcessFunctionErrors(t *testing.T) {
	r := process(t, "t\na$nope x$b$图片$c\n", "t", nil)
	if r.Text != "abc" {
		t.Fatal(r.Text)
	}
	errs := r.Traces.Errors()
	if len(errs) != 2 {
		t.Fatal(errs)
	}
	var fe *FunctionCallError
	if !errors.As(errs[0], &fe) || !errors.Is(errs[0], ErrUnknownFunction) {
		t.Fatal(errs[0])
	}
	if !errors.Is(errs[1], ErrArity) {
		t.Fatal(errs[1])
	}
}

func TestProcessCallBudget(t *testing.T) {
	c := testControl()
	c.MaxCalls = 2
	l, _ := Parse("t\n$Emoy 1$$Emoy 2$$Emoy 3$\n")
	r := l.Process(context.Background(), "t", nil, c)
	if r.Text != "[CQ:face,id=1][CQ:face,id=2]" {
		t.Fatal(r.Text)
	}
	var be *BudgetExceeded
	if errs := r.Traces.Errors(); len(errs) != 1 || !errors.As(errs[0], &be) || be.What != "calls" {
		t.Fatal(errs)
	}
}

func TestProcessPassBudget(t *testing.T) {
	c := testControl()
	c.MaxPasses = 1
	l, _ := Parse("t\n如果:1==2\nno\n如果尾\n%QQ%\n")
	r := l.Process(context.Background(), "t", Props{"user_id": "1"}, c)
	if r.Text != "%QQ%" {
		t.Fatal(r.Text)
	}
}

func TestProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l, _ := Parse(SampleLexicon)
	if r := l.Process(ctx, "你好", nil, nil); r.Matched {
		t.Fatal(r.Text)
	}
}

func TestProcessNoLeakage(t *testing.T) {
	l, _ := Parse("set (.*)\n$变量 v %括号1%$%v%\n\nget\n[%v%][%括号1%]\n")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			want := fmt.Sprint(i)
			if got, _ := l.Reply(ctx, "set "+want, nil); got != want {
				t.Errorf("set: %q != %q", got, want)
			}
			if got, _ := l.Reply(ctx, "get", nil); got != "[][]" {
				t.Errorf("leaked: %q", got)
			}
		}(i)
	}
	wg.Wait()
}

type panicCalc struct{}

func (panicCalc) Eval(ctx context.Context, src string) (string, error) {
	panic("boom")
}

func TestProcessFunctionPanic(t *testing.T) {
	c := testControl()
	c.Funcs = &funcs.Dispatcher{
		Calculator: panicCalc{},
	}
	l, _ := Parse("t\nx$计算 1$y\n")
	r := l.Process(context.Background(), "t", nil, c)
	if r.Text != "xy" {
		t.Fatal(r.Text)
	}
}

func TestProcessComputeFromMessage(t *testing.T) {
	l, _ := Parse("calc (.*)\n= $计算 %括号1%$\n")
	ctx := context.Background()

	r := l.Process(ctx, "calc 6*7", nil, testControl())
	if r.Text != "= 42" {
		t.Fatal(r.Text)
	}

	r = l.Process(ctx, "calc this.constructor.constructor('return 7')()", nil, testControl())
	if r.Text != "= " {
		t.Fatal(r.Text)
	}
	found := false
	for _, err := range r.Traces.Errors() {
		if errors.Is(err, goja.ErrNotArithmetic) {
			found = true
		}
	}
	if !found {
		t.Fatal(r.Traces.Errors())
	}
}

func TestEvalCondition(t *testing.T) {
	tests := map[string]bool{
		"a==a":        true,
		" a == a ":    true,
		"a==b":        false,
		"a!=b":        true,
		"1<=1":        true,
		"2>=3":        false,
		"1<2":         true,
		"3>2":         true,
		"x<2":         false,
		"1&1":         true,
		"1&0":         false,
		"0|yes":       true,
		"0|no":        false,
		"1":           true,
		"0":           false,
		"0.0":         false,
		"TRUE":        true,
		"yes":         true,
		"":            false,
		"whatever":    false,
		"1==1&2==3":   false,
	}
	for expr, want := range tests {
		if got := EvalCondition(expr); got != want {
			t.Fatalf("%q: %v", expr, got)
		}
	}
}

func TestBlocks(t *testing.T) {
	bs := Blocks([]string{"如果:a", "x", "返回", "else", "y", "else", "如果尾", "if:b", "z"})
	if len(bs) != 2 {
		t.Fatal(len(bs))
	}
	if bs[0].Expr != "a" || !bs[0].ThenReturns || bs[0].ElseReturns || !bs[0].HasElse {
		t.Fatalf("%+v", bs[0])
	}
	if len(bs[0].Else) != 2 {
		t.Fatalf("%+v", bs[0])
	}
	if bs[1].Expr != "b" || len(bs[1].Then) != 1 {
		t.Fatalf("%+v", bs[1])
	}
}
