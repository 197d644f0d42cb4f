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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseSample(t *testing.T) {
	l, as := Parse(SampleLexicon)
	if len(as) != 0 {
		t.Fatalf("anomalies: %v", as)
	}

	triggers := []string{"你好", "早上好", "测试参数(.*) (.*)", "测试变量", "测试条件", "随机测试",
		"发图", "笑脸", "现在几点", "群信息", "闭嘴"}
	if len(l.Entries) != len(triggers) {
		t.Fatalf("got %d entries", len(l.Entries))
	}
	for i, e := range l.Entries {
		if e.Trigger != triggers[i] {
			t.Fatalf("%d: %q", i, e.Trigger)
		}
		if !e.Enabled {
			t.Fatalf("%d: not enabled", i)
		}
		if e.Id == "" {
			t.Fatalf("%d: no id", i)
		}
	}

	if c := l.Entries[0].Category; c != "基础问候" {
		t.Fatalf("category %q", c)
	}
	if c := l.Entries[1].Category; c != "" {
		t.Fatalf("category %q", c)
	}

	vars := l.Entries[3].Variables
	if vars["A"] != "Hello" || vars["B"] != "World" {
		t.Fatal(vars)
	}

	if got := l.Entries[5].Variables["replies"]; got != `["回复1", "回复2", "回复3"]` {
		t.Fatal(got)
	}

	conds := l.Entries[4].Conditions
	want := []string{"如果:%QQ%==123456", "你是管理员！", "else", "你是普通用户。", "如果尾"}
	if diff := cmp.Diff(want, conds); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseStates(t *testing.T) {
	src := "\ufefftrigger\r\n" +
		"// inside comment\r\n" +
		"k:v\r\n" +
		"line one\r\n" +
		"#->var:block\r\n" +
		"  raw line  \r\n" +
		"second\r\n" +
		"#->var:\r\n" +
		"x\r\n" +
		"// ends the block\r\n" +
		"after\r\n" +
		"\r\n" +
		"next\r\n" +
		"reply\r\n"

	l, as := Parse(src)
	if len(as) != 0 {
		t.Fatal(as)
	}
	if len(l.Entries) != 2 {
		t.Fatalf("%d entries", len(l.Entries))
	}
	e := l.Entries[0]
	if e.Trigger != "trigger" {
		t.Fatalf("%q", e.Trigger)
	}
	if e.Variables["k"] != "v" {
		t.Fatal(e.Variables)
	}
	if e.Variables["block"] != "  raw line  \nsecond" {
		t.Fatalf("%q", e.Variables["block"])
	}
	if e.Variables[DefaultVarBlock] != "x" {
		t.Fatal(e.Variables)
	}
	if diff := cmp.Diff([]string{"line one", "after"}, e.Responses); diff != "" {
		t.Fatal(diff)
	}
	if l.Entries[1].Line != 13 {
		t.Fatal(l.Entries[1].Line)
	}
}

func TestParseConditionBeforeVarDef(t *testing.T) {
	l, _ := Parse("群信息\n如果:$群聊消息$\n是\nelse\n不是\n如果尾\n")
	e := l.Entries[0]
	if len(e.Variables) != 0 {
		t.Fatalf("condition parsed as a variable: %v", e.Variables)
	}
	if len(e.Conditions) != 5 {
		t.Fatal(e.Conditions)
	}
}

func TestParseAnomalies(t *testing.T) {
	tests := []struct {
		src     string
		kinds   []AnomalyKind
		entries int
	}{
		{"lonely\n\nx\ny\n", []AnomalyKind{EmptyRule}, 1},
		{"t\nif:1\na\nif:2\nb\n如果尾\n", []AnomalyKind{NestedCondition}, 1},
		{"t\n如果:1\na\n\nnext\nreply\n", []AnomalyKind{UnterminatedCondition}, 2},
		{"t\n如果:1\na\nelse\nb\nelse\nc\n如果尾\n", []AnomalyKind{ExtraElse}, 1},
		{"t\nelse\n", []AnomalyKind{StrayKeyword}, 1},
		{"// only comments\n## more\n&& and more\n", nil, 0},
	}

	for i, test := range tests {
		l, as := Parse(test.src)
		if len(l.Entries) != test.entries {
			t.Fatalf("%d: %d entries", i, len(l.Entries))
		}
		if len(as) != len(test.kinds) {
			t.Fatalf("%d: anomalies %v", i, as)
		}
		for j, k := range test.kinds {
			if as[j].Kind != k {
				t.Fatalf("%d: %v", i, as[j])
			}
		}
	}
}

func TestParseUnterminatedSupplied(t *testing.T) {
	l, _ := Parse("t\n如果:1\na\n")
	conds := l.Entries[0].Conditions
	if conds[len(conds)-1] != EndIf {
		t.Fatal(conds)
	}
}

func TestParseCategory(t *testing.T) {
	src := `// lchliebedich header
// 这是注释
// 分类一
a
x

// 这是注释
b
y
// 分类二

c
z
`
	l, _ := Parse(src)
	cats := []string{"分类一", "", "分类二"}
	for i, e := range l.Entries {
		if e.Category != cats[i] {
			t.Fatalf("%d: %q", i, e.Category)
		}
	}
}

func TestIsVarDef(t *testing.T) {
	tests := map[string]bool{
		"A:Hello":          true,
		"名字:张三":            true,
		"abc:x":            true,
		"abcd:x":           false,
		":x":               false,
		"a%:x":             false,
		"参数1: %括号1%":       false,
		"http://example":   false,
		"12:30 吃饭":         true,
		"no colon at all":  false,
		"三个字:value":        true,
		"四个字的:value":       false,
	}
	for line, want := range tests {
		if got := IsVarDef(line); got != want {
			t.Fatalf("%q: %v", line, got)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	srcs := []string{
		SampleLexicon,
		"t\nk:v\nlong key:value\n如果:1\na\n如果尾\n",
		"t\n#->var:multi\n  one\ntwo\n",
		"t\nif:v\nreply\n",
	}

	ignore := cmpopts.IgnoreFields(Entry{}, "Id", "Line")
	unexported := cmpopts.IgnoreUnexported(Entry{})
	empty := cmpopts.EquateEmpty()

	for i, src := range srcs {
		l1, _ := Parse(src)
		l2, as := Parse(Format(l1))
		if len(as) != 0 {
			t.Fatalf("%d: %v", i, as)
		}
		if diff := cmp.Diff(l1.Entries, l2.Entries, ignore, unexported, empty); diff != "" {
			t.Fatalf("%d: %s\n%s", i, diff, Format(l1))
		}
		if Format(l1) != Format(l2) {
			t.Fatalf("%d: format not stable", i)
		}
	}
}

func TestFormatEntryVarBlocks(t *testing.T) {
	e := NewEntry("t")
	e.Responses = []string{"r"}
	e.Variables["if"] = "x"
	e.Variables["k"] = "v"
	got := FormatEntry(e)
	want := "t\nk:v\nr\n#->var:if\nx\n"
	if got != want {
		t.Fatalf("%q", got)
	}
}
