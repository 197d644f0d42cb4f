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

package funcs

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Comcast/lexicon/interpreters/goja"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

var (
	// ErrUnknownFunction is wrapped by a CallError for a name
	// that isn't a built-in.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrArity is wrapped by a CallError when a function gets the
	// wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrUnsupported is reported (as a trace, not an error) by
	// functions that are accepted but do nothing.
	ErrUnsupported = errors.New("unsupported function")
)

// CallError occurs when a function call fails.  The call's
// substitution is the empty string.
type CallError struct {
	Name string
	Args []string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf(`function "%s" %q: %s`, e.Name, e.Args, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ConfigIOError occurs when a JSON configuration file can't be read,
// parsed, or written.
type ConfigIOError struct {
	Filename string

	// Op is "read", "parse", or "write".
	Op  string
	Err error
}

func (e *ConfigIOError) Error() string {
	return fmt.Sprintf(`can't %s config "%s": %s`, e.Op, e.Filename, e.Err)
}

func (e *ConfigIOError) Unwrap() error {
	return e.Err
}

// Env is what a function can see of the current invocation.
type Env interface {
	// Context is the invocation's context.
	Context() context.Context

	// Resolve gives the value of a variable by the usual rules:
	// variable store, then message context, then built-in
	// variables, then the empty string.
	Resolve(name string) string

	// Set writes to the invocation's variable store.
	Set(name, value string)

	// Prop gets a value from the message context.
	Prop(key string) (string, bool)

	// Now is the invocation's clock.
	Now() time.Time

	// Trace records a diagnostic.
	Trace(x interface{})
}

// Calculator evaluates expressions for "计算".
type Calculator interface {
	Eval(ctx context.Context, src string) (string, error)
}

// Dispatcher executes built-in functions.
type Dispatcher struct {
	// KVRoot, if not empty, confines the paths given to "读",
	// "写", and "文件大小" to this directory.
	KVRoot string

	// Calculator evaluates "计算" expressions.
	Calculator Calculator

	// IntN returns a random integer in [0,n).  Defaults to
	// math/rand/v2.IntN.
	IntN func(n int) int

	// Logger defaults to util.Logger().
	Logger *zap.Logger
}

// NewDispatcher makes a Dispatcher with a Goja calculator.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Calculator: goja.NewCalculator(),
	}
}

// Default is used when no Dispatcher is given.
var Default = NewDispatcher()

func (d *Dispatcher) logger() *zap.Logger {
	return util.Or(d.Logger)
}

func (d *Dispatcher) intn(n int) int {
	if d.IntN != nil {
		return d.IntN(n)
	}
	return rand.IntN(n)
}

// Call runs the named function.
//
// Any failure, including a panic inside the function, results in a
// *CallError and an empty result.
func (d *Dispatcher) Call(env Env, name string, args []string) (result string, err error) {
	k, have := Lookup(name)
	if !have {
		return "", &CallError{name, args, ErrUnknownFunction}
	}

	def := k.Def()
	if !def.Arity.Allows(len(args)) {
		return "", &CallError{name, args, fmt.Errorf("%w: got %d, want %s", ErrArity, len(args), def.Arity)}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger().Error("function panic", zap.String("function", name), zap.Any("recovered", r))
			result = ""
			err = &CallError{name, args, fmt.Errorf("panic: %v", r)}
		}
	}()

	if result, err = d.call(env, k, args); err != nil {
		return "", &CallError{name, args, err}
	}
	return result, nil
}

// Parse splits the content between '$' delimiters into a function
// name and arguments.  Arguments are separated by whitespace and
// there's no quoting.
func Parse(content string) (string, []string) {
	fs := strings.Fields(content)
	if len(fs) == 0 {
		return "", nil
	}
	return fs[0], fs[1:]
}
