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
	"strconv"
	"strings"
)

// comparisons are checked in this order.  The first operator that
// appears anywhere in the expression splits it, once.
var comparisons = []string{"==", "!=", "<=", ">=", "<", ">"}

// EvalCondition evaluates an already-substituted condition
// expression.
//
// The operators are "==" and "!=" (trimmed string comparison), "<=",
// ">=", "<", and ">" (numeric comparison), "&" (all), and "|" (any).
// Operators aren't parsed by precedence.  The first one in the list
// above that occurs in the expression is the one applied.  Without
// an operator, a number is true when it isn't zero, and otherwise
// "true", "1", and "yes" (in any case) are true.
//
// Anything that can't be evaluated, like a numeric comparison of
// non-numbers, is false.
func EvalCondition(expr string) bool {
	for _, op := range comparisons {
		if !strings.Contains(expr, op) {
			continue
		}
		parts := strings.SplitN(expr, op, 2)
		l, r := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch op {
		case "==":
			return l == r
		case "!=":
			return l != r
		}
		x, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return false
		}
		y, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return false
		}
		switch op {
		case "<=":
			return x <= y
		case ">=":
			return x >= y
		case "<":
			return x < y
		default:
			return x > y
		}
	}

	if strings.Contains(expr, "&") {
		for _, part := range strings.Split(expr, "&") {
			if !EvalCondition(strings.TrimSpace(part)) {
				return false
			}
		}
		return true
	}

	if strings.Contains(expr, "|") {
		for _, part := range strings.Split(expr, "|") {
			if EvalCondition(strings.TrimSpace(part)) {
				return true
			}
		}
		return false
	}

	s := strings.TrimSpace(expr)
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return x != 0
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Block is one parsed conditional block.
type Block struct {
	Expr    string
	Then    []string
	Else    []string
	HasElse bool

	// ThenReturns and ElseReturns report a "返回" in the branch.
	ThenReturns bool
	ElseReturns bool
}

// Blocks splits a rule's condition lines into flat, sequential
// blocks.  Lines outside any block are ignored.  A "如果:" inside a
// block is an ordinary line, and so is an extra "else".
func Blocks(conds []string) []*Block {
	var (
		acc []*Block
		b   *Block
	)
	for _, raw := range conds {
		line := strings.TrimSpace(raw)
		if b == nil {
			if IsConditionStart(line) {
				b = &Block{
					Expr: ConditionExpr(line),
				}
			}
			continue
		}
		switch {
		case line == EndIf:
			acc = append(acc, b)
			b = nil
		case line == Else && !b.HasElse:
			b.HasElse = true
		case line == Return:
			if b.HasElse {
				b.ElseReturns = true
			} else {
				b.ThenReturns = true
			}
		case b.HasElse:
			b.Else = append(b.Else, raw)
		default:
			b.Then = append(b.Then, raw)
		}
	}
	if b != nil {
		acc = append(acc, b)
	}
	return acc
}

// selectBranch evaluates the blocks in order.  The first block
// whose condition is true selects its "then" lines.  A false block
// with an "else" selects its "else" lines.  A false block without
// one defers to the next block.
//
// A selected branch containing "返回" is suppressed.
func (f *frame) selectBranch(conds []string) (lines []string, suppressed bool, selected bool) {
	for _, b := range Blocks(conds) {
		if EvalCondition(f.substitute(b.Expr)) {
			return b.Then, b.ThenReturns, true
		}
		if b.HasElse {
			return b.Else, b.ElseReturns, true
		}
	}
	return nil, false, false
}
