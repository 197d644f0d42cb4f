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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorhill/cronexpr"

	"go.uber.org/zap"
)

// TimeLayout is used for rendering times.
const TimeLayout = "2006-01-02 15:04:05"

func (d *Dispatcher) call(env Env, k Kind, args []string) (string, error) {
	switch k {
	case Random:
		return d.random(env, args), nil
	case Length:
		return strconv.Itoa(utf8.RuneCountInString(strings.Join(args, " "))), nil
	case FileSize:
		return d.fileSize(strings.Join(args, " ")), nil
	case SetVar:
		env.Set(args[0], strings.Join(args[1:], " "))
		return "", nil
	case GetVar:
		return env.Resolve(args[0]), nil
	case ReadKV:
		def := ""
		if len(args) == 3 {
			def = args[2]
		}
		return d.readKV(args[0], args[1], def), nil
	case WriteKV:
		return "", d.writeKV(args[0], args[1], strings.Join(args[2:], " "))
	case Image, Gif:
		return "[CQ:image,file=" + args[0] + "]", nil
	case Flash:
		return "[CQ:image,file=" + args[0] + ",type=flash]", nil
	case Voice:
		return "[CQ:record,file=" + args[len(args)-1] + "]", nil
	case Face, SuperFace:
		return "[CQ:face,id=" + args[0] + "]", nil
	case Send, AddMessage, SendMessage:
		env.Trace(fmt.Errorf("%w: %s", ErrUnsupported, k))
		return "", nil
	case NewMessage:
		env.Set("msg_"+args[0], "")
		return "", nil
	case HasMessage:
		_, have := env.Prop(args[0])
		return flag(have), nil
	case GetMessage:
		if v, have := env.Prop(args[0]); have {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return "", nil
	case IsGroup:
		t, _ := env.Prop("message_type")
		return flag(t == "group"), nil
	case IsFriend:
		t, _ := env.Prop("message_type")
		return flag(t == "private"), nil
	case IsTemp, IsSystem, Unauthorized:
		return "0", nil
	case Compute:
		if d.Calculator == nil {
			return "", errors.New("no calculator")
		}
		return d.Calculator.Eval(env.Context(), strings.Join(args, " "))
	case CronNext:
		e, err := cronexpr.Parse(strings.Join(args, " "))
		if err != nil {
			return "", err
		}
		t := e.Next(env.Now())
		if t.IsZero() {
			return "", nil
		}
		return t.Format(TimeLayout), nil
	}
	return "", ErrUnknownFunction
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// random implements "随机数".  Bad input gives "0".
func (d *Dispatcher) random(env Env, args []string) string {
	switch len(args) {
	case 2:
		lo, err := strconv.Atoi(args[0])
		if err != nil {
			return "0"
		}
		hi, err := strconv.Atoi(args[1])
		if err != nil || hi < lo {
			return "0"
		}
		return strconv.Itoa(lo + d.intn(hi-lo+1))
	case 1:
		var xs []interface{}
		dec := json.NewDecoder(strings.NewReader(env.Resolve(args[0])))
		dec.UseNumber()
		if err := dec.Decode(&xs); err != nil || len(xs) == 0 {
			return "0"
		}
		return Stringify(xs[d.intn(len(xs))])
	default:
		return strconv.Itoa(1 + d.intn(100))
	}
}

// Stringify renders a decoded JSON value or a message context value
// as reply text.  Integral numbers are written without a fractional
// part.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case json.Number:
		return vv.String()
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1e15 {
			return strconv.FormatInt(int64(vv), 10)
		}
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case float32:
		return Stringify(float64(vv))
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case int32:
		return strconv.FormatInt(int64(vv), 10)
	case uint64:
		return strconv.FormatUint(vv, 10)
	case bool:
		return strconv.FormatBool(vv)
	default:
		js, err := json.Marshal(&x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(js)
	}
}

// path resolves a function's path argument, confining it to KVRoot
// if that's set.
func (d *Dispatcher) path(p string) string {
	if d.KVRoot == "" {
		return p
	}
	return filepath.Join(d.KVRoot, filepath.Clean("/"+p))
}

func (d *Dispatcher) fileSize(p string) string {
	info, err := os.Stat(d.path(p))
	if err != nil {
		return "0"
	}
	return strconv.FormatInt(info.Size(), 10)
}

// readObject reads a JSON object.  Failures are *ConfigIOErrors.
func (d *Dispatcher) readObject(filename string) (map[string]interface{}, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ConfigIOError{filename, "read", err}
	}
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, &ConfigIOError{filename, "parse", err}
	}
	return m, nil
}

// readKV implements "读".  A missing file, a bad file, or a missing
// key gives the default.
func (d *Dispatcher) readKV(p, key, def string) string {
	filename := d.path(p)
	m, err := d.readObject(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.logger().Warn("read failed", zap.Error(err))
		}
		return def
	}
	x, have := m[key]
	if !have {
		return def
	}
	return Stringify(x)
}

// writeKV implements "写".  Parent directories are created as
// needed.  An existing file that isn't a JSON object is replaced.
func (d *Dispatcher) writeKV(p, key, value string) error {
	filename := d.path(p)
	m, err := d.readObject(filename)
	if err != nil || m == nil {
		m = make(map[string]interface{})
	}
	m[key] = value

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &ConfigIOError{filename, "write", err}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m); err != nil {
		return &ConfigIOError{filename, "write", err}
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return &ConfigIOError{filename, "write", err}
	}
	return nil
}
