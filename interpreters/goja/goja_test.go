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

package goja

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
)

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		src    string
		expect string
	}{
		{"1+2", "3"},
		{"7/2", "3.5"},
		{"Math.max(3, 9)", "9"},
		{"(2+3)*4", "20"},
		{"-7 % 3", "-1"},
		{"Math.floor(Math.PI * 100) / 100", "3.14"},
	}

	c := NewCalculator()
	for _, test := range tests {
		got, err := c.Eval(context.Background(), test.src)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		if got != test.expect {
			t.Fatalf("%s: got %q, wanted %q", test.src, got, test.expect)
		}
	}
}

func TestEvalNotArithmetic(t *testing.T) {
	srcs := []string{
		"this.constructor.constructor('return 7')()",
		"'x'.repeat(50000000)",
		"[1,2]",
		"(1).constructor",
		"Math.abs.constructor",
		"Function('return 1')()",
		"x = 1",
		"while (true) {}",
		"",
		strings.Repeat("1+", MaxSource) + "1",
	}

	c := NewCalculator()
	for _, src := range srcs {
		if _, err := c.Eval(context.Background(), src); !errors.Is(err, ErrNotArithmetic) {
			t.Fatalf("%q: expected %v but got %v", src, ErrNotArithmetic, err)
		}
	}
}

func TestEvalResultTooLong(t *testing.T) {
	if _, err := NewCalculator().Eval(context.Background(), "Math.pow(10, 300)"); err != ErrResultTooLong {
		t.Fatalf("expected %v but got %v", ErrResultTooLong, err)
	}
}

func TestEvalSyntaxError(t *testing.T) {
	if _, err := NewCalculator().Eval(context.Background(), "1 +"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunInterrupted(t *testing.T) {
	c := &Calculator{
		Timeout: 10 * time.Millisecond,
	}
	p, err := goja.Compile("", "while (true) {}", true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = c.run(context.Background(), p); err != Interrupted {
		t.Fatalf("expected %v but got %v", Interrupted, err)
	}
}
