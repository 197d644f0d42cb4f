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

package main

import (
	"os"
	"strings"
	"time"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/funcs"
	"github.com/Comcast/lexicon/interpreters/goja"
	"github.com/Comcast/lexicon/sio"

	"github.com/jsccast/yaml"
)

// Config is the lexd configuration file.
type Config struct {
	Wordlib   WordlibConf   `yaml:"wordlib"`
	Limits    LimitsConf    `yaml:"limits"`
	Storage   StorageConf   `yaml:"storage"`
	WebSocket WebSocketConf `yaml:"websocket"`
	MQTT      MQTTConf      `yaml:"mqtt"`
	Log       LogConf       `yaml:"log"`
}

type WordlibConf struct {
	// Dir holds the lexicon files and config.json.
	Dir string `yaml:"dir"`

	// Watch reloads lexicons when their files change.
	Watch bool `yaml:"watch"`

	// Sample writes and enables the sample lexicon when the
	// directory has no lexicons.
	Sample bool `yaml:"sample"`
}

type LimitsConf struct {
	MaxCalls  int `yaml:"maxCalls"`
	MaxPasses int `yaml:"maxPasses"`

	// MatchTimeout is the trigger evaluation budget in
	// milliseconds.
	MatchTimeout int `yaml:"matchTimeout"`

	// CalcTimeout is the "计算" budget in milliseconds.
	CalcTimeout int `yaml:"calcTimeout"`

	// KVRoot confines "读" and "写" when not empty.
	KVRoot string `yaml:"kvRoot"`
}

type StorageConf struct {
	// Bolt is the BoltDB file for hit statistics.  Empty means
	// hits aren't recorded.
	Bolt string `yaml:"bolt"`

	// JSON is a JSON file for hit statistics.  Used when Bolt is
	// empty.
	JSON string `yaml:"json"`
}

type WebSocketConf struct {
	// Addr is the HTTP listen address for WebSockets, the API,
	// and metrics.  Empty disables HTTP.
	Addr string `yaml:"addr"`

	// Path is the WebSocket path.
	Path string `yaml:"path"`
}

type MQTTConf struct {
	// Broker is like "tcp://localhost:1883".  Empty disables MQTT.
	Broker    string   `yaml:"broker"`
	ClientId  string   `yaml:"clientId"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	KeepAlive int      `yaml:"keepAlive"`
	Reconnect bool     `yaml:"reconnect"`
	Clean     bool     `yaml:"clean"`
	CertFile  string   `yaml:"cert"`
	KeyFile   string   `yaml:"key"`
	CAFile    string   `yaml:"cafile"`
	Insecure  bool     `yaml:"insecure"`
	Sub       []string `yaml:"sub"`
	Pub       string   `yaml:"pub"`
}

type LogConf struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when there's no
// configuration file.
func DefaultConfig() *Config {
	return &Config{
		Wordlib: WordlibConf{
			Dir: "data/wordlib",
		},
		Limits: LimitsConf{
			MaxCalls:     core.DefaultControl.MaxCalls,
			MaxPasses:    core.DefaultControl.MaxPasses,
			MatchTimeout: int(core.DefaultControl.MatchTimeout / time.Millisecond),
			CalcTimeout:  int(goja.DefaultTimeout / time.Millisecond),
		},
		WebSocket: WebSocketConf{
			Path: "/ws",
		},
		MQTT: MQTTConf{
			ClientId:  "lexd",
			KeepAlive: 10,
			Clean:     true,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig()
	if filename == "" {
		return c, nil
	}
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, &core.ConfigIOError{
			Filename: filename,
			Op:       "read",
			Err:      err,
		}
	}
	if err = yaml.Unmarshal(bs, c); err != nil {
		return nil, &core.ConfigIOError{
			Filename: filename,
			Op:       "parse",
			Err:      err,
		}
	}
	return c, nil
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Control makes the engine limits.
func (c *Config) Control() *core.Control {
	ctl := core.DefaultControl.Copy()
	if 0 < c.Limits.MaxCalls {
		ctl.MaxCalls = c.Limits.MaxCalls
	}
	if 0 < c.Limits.MaxPasses {
		ctl.MaxPasses = c.Limits.MaxPasses
	}
	if 0 < c.Limits.MatchTimeout {
		ctl.MatchTimeout = millis(c.Limits.MatchTimeout)
	}
	return ctl
}

// Dispatcher makes the function dispatcher.
func (c *Config) Dispatcher() *funcs.Dispatcher {
	d := funcs.NewDispatcher()
	d.KVRoot = c.Limits.KVRoot
	if 0 < c.Limits.CalcTimeout {
		calc := goja.NewCalculator()
		calc.Timeout = millis(c.Limits.CalcTimeout)
		d.Calculator = calc
	}
	return d
}

// MQTTConf makes the MQTT client configuration.
func (c *Config) MQTTConf() sio.MQTTConf {
	m := c.MQTT
	return sio.MQTTConf{
		Broker:    m.Broker,
		ClientId:  m.ClientId,
		Username:  m.Username,
		Password:  m.Password,
		KeepAlive: time.Duration(m.KeepAlive) * time.Second,
		Reconnect: m.Reconnect,
		Clean:     m.Clean,
		Quiesce:   100,
		CertFile:  m.CertFile,
		KeyFile:   m.KeyFile,
		CAFile:    m.CAFile,
		Insecure:  m.Insecure,
		SubTopics: m.Sub,
		PubTopic:  strings.TrimSpace(m.Pub),
	}
}
