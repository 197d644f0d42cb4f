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

package expect

import (
	"context"
	"os/exec"
	"testing"

	"github.com/Comcast/lexicon/core"
	. "github.com/Comcast/lexicon/util/testutil"
)

const sampleSession = `
doc: Sample lexicon checks
props:
  user_id: 42
  nickname: Bob
expectations:
  - input: 你好
    reply: 你好！我是机器人助手。
  - input: 测试条件
    props:
      user_id: 123456
    reply: 你是管理员！
  - input: 测试参数 foo bar
    pattern: "^参数1: foo\\n参数2: bar"
  - input: 闭嘴
    reply: ""
  - input: 随机测试
    pattern: "^回复[123]$"
  - input: 没有这个
    noReply: true
`

func TestSessionRun(t *testing.T) {
	s, err := ParseSession([]byte(sampleSession))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Expectations) != 6 {
		t.Fatal(len(s.Expectations))
	}

	l, _ := core.Parse(core.SampleLexicon)
	l.Name = "sample"

	r, err := s.Run(context.Background(), &Lexicon{Lex: l})
	if err != nil {
		t.Fatal(err)
	}
	if err = r.Err(); err != nil {
		t.Fatal(err)
	}
	if r.Passed != 6 {
		t.Fatal(r.Passed)
	}
}

func TestSessionFailures(t *testing.T) {
	s, err := ParseSession([]byte(`
expectations:
  - input: 你好
    reply: 再见
  - input: 你好
    noReply: true
  - input: 没有这个
    pattern: .*
  - input: 你好
    lexicon: other
`))
	if err != nil {
		t.Fatal(err)
	}

	l, _ := core.Parse(core.SampleLexicon)
	r, err := s.Run(context.Background(), &Lexicon{Lex: l})
	if err != nil {
		t.Fatal(err)
	}
	if r.Passed != 0 || len(r.Failures) != 4 {
		t.Fatal(JS(r))
	}
	if r.Err() == nil {
		t.Fatal("expected an error")
	}
	if r.Failures[2].Problem != "no reply" {
		t.Fatal(r.Failures[2].Problem)
	}
}

func TestParseSessionBadPattern(t *testing.T) {
	if _, err := ParseSession([]byte("expectations:\n  - input: x\n    pattern: \"(\"\n")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunProcess(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip(err)
	}

	s, err := ParseSession([]byte(`
expectations:
  - input: anything
    reply: canned
  - input: more
    pattern: ^can
`))
	if err != nil {
		t.Fatal(err)
	}

	script := `while read line; do echo "log line"; echo '{"reply":"canned","matched":true}'; done`
	r, err := s.RunProcess(context.Background(), sh, "-c", script)
	if err != nil {
		t.Fatal(err)
	}
	if err = r.Err(); err != nil {
		t.Fatal(err)
	}
	if r.Passed != 2 {
		t.Fatal(r.Passed)
	}
}
