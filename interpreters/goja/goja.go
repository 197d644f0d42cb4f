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

// Package goja evaluates small arithmetic expressions for rule
// functions using Goja, which is a Go implementation of ECMAScript
// 5.1+.
//
// Expressions often come from message text, so only numbers,
// arithmetic operators, parentheses, and a few Math members are
// accepted.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Eval if the evaluation is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// ErrNotArithmetic is wrapped by Eval for source that isn't a
	// plain arithmetic expression.
	ErrNotArithmetic = errors.New("not an arithmetic expression")

	// ErrResultTooLong is returned for a result longer than
	// MaxResult.
	ErrResultTooLong = errors.New("result too long")

	// DefaultTimeout bounds a single evaluation when the given
	// context has no earlier deadline.
	DefaultTimeout = 50 * time.Millisecond

	// MaxSource is the longest expression Eval accepts.
	MaxSource = 256

	// MaxResult is the longest rendered result Eval returns.
	MaxResult = 64

	// MathNames are the identifiers an expression may use.
	MathNames = map[string]bool{
		"Math.abs":    true,
		"Math.ceil":   true,
		"Math.floor":  true,
		"Math.round":  true,
		"Math.trunc":  true,
		"Math.sign":   true,
		"Math.sqrt":   true,
		"Math.cbrt":   true,
		"Math.pow":    true,
		"Math.exp":    true,
		"Math.log":    true,
		"Math.log10":  true,
		"Math.log2":   true,
		"Math.min":    true,
		"Math.max":    true,
		"Math.sin":    true,
		"Math.cos":    true,
		"Math.tan":    true,
		"Math.random": true,
		"Math.PI":     true,
		"Math.E":      true,
	}
)

// Calculator evaluates expressions in a fresh runtime each time.
//
// A Calculator has no state, so one can be shared.
type Calculator struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// NewCalculator makes a new Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// CheckArithmetic returns an error unless the source has only
// numbers, the operators "+-*/%", parentheses, commas, whitespace,
// and the identifiers in MathNames.
//
// No strings, brackets, or property access, so the source can't
// reach anything else in the runtime.
func CheckArithmetic(src string) error {
	if MaxSource < len(src) {
		return fmt.Errorf("%w: longer than %d", ErrNotArithmetic, MaxSource)
	}
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("%w: empty", ErrNotArithmetic)
	}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case strings.IndexByte(" \t0123456789.+-*/%(),", c) >= 0:
			i++
		case isLetter(c):
			j := i
			for j < len(src) && (isLetter(src[j]) || isDigit(src[j]) || src[j] == '.') {
				j++
			}
			if name := src[i:j]; !MathNames[name] {
				return fmt.Errorf("%w: %q", ErrNotArithmetic, name)
			}
			i = j
		default:
			return fmt.Errorf("%w: %q", ErrNotArithmetic, c)
		}
	}
	return nil
}

// Compile checks that the source is a valid arithmetic expression.
func (c *Calculator) Compile(src string) (*goja.Program, error) {
	if err := CheckArithmetic(src); err != nil {
		return nil, err
	}
	return goja.Compile("", src, true)
}

// Eval computes an arithmetic expression and renders the result as
// a string.
func (c *Calculator) Eval(ctx context.Context, src string) (string, error) {
	p, err := c.Compile(src)
	if err != nil {
		return "", err
	}
	s, err := c.run(ctx, p)
	if err != nil {
		return "", err
	}
	if MaxResult < len(s) {
		return "", ErrResultTooLong
	}
	return s, nil
}

// run executes a program with the timeout.
func (c *Calculator) run(ctx context.Context, p *goja.Program) (string, error) {
	o := goja.New()

	timeout := DefaultTimeout
	if 0 < c.Timeout {
		timeout = c.Timeout
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithTimeout(ctx, timeout)
	go func() {
		<-ictx.Done()
		// Calling cancel() after RunProgram returns also
		// interrupts, but then nobody is listening.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return "", Interrupted
		}
		return "", err
	}

	return Render(v.Export())
}

// Render turns an exported value into a reply string.
func Render(x interface{}) (string, error) {
	switch vv := x.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	case bool:
		return strconv.FormatBool(vv), nil
	case int64:
		return strconv.FormatInt(vv, 10), nil
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			return fmt.Sprint(vv), nil
		}
		if vv == math.Trunc(vv) && math.Abs(vv) < 1e15 {
			return strconv.FormatInt(int64(vv), 10), nil
		}
		return strconv.FormatFloat(vv, 'f', -1, 64), nil
	default:
		js, err := json.Marshal(&x)
		if err != nil {
			return "", err
		}
		return string(js), nil
	}
}
