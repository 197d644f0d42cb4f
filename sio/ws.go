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

package sio

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Comcast/lexicon/util"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket is a Couplings that serves WebSocket clients.
//
// Each text frame from a client is parsed by ParseInbound, and the
// reply goes back to that client as a JSON Outbound.  Mount the
// WebSocket (an http.Handler) on an HTTP server.
type WebSocket struct {
	Logger *zap.Logger

	// Buffer is the per-connection out-bound queue length.
	Buffer int

	upgrader websocket.Upgrader
	conns    sync.Map
	n        int64

	in   chan *Inbound
	out  chan *Outbound
	done chan bool
	stop chan bool
	wg   sync.WaitGroup

	mu  sync.Mutex
	ctx context.Context
}

func NewWebSocket(logger *zap.Logger) *WebSocket {
	return &WebSocket{
		Logger: util.Or(logger),
		Buffer: 32,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		in:   make(chan *Inbound),
		out:  make(chan *Outbound),
		done: make(chan bool),
		stop: make(chan bool),
		ctx:  context.Background(),
	}
}

// Start starts routing out-bound replies to connections.
func (c *WebSocket) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case o := <-c.out:
				if o == nil || o.In == nil {
					continue
				}
				x, have := c.conns.Load(o.In.Origin)
				if !have {
					c.Logger.Debug("connection gone", zap.String("conn", o.In.Origin))
					continue
				}
				select {
				case x.(chan *Outbound) <- o:
				default:
					c.Logger.Warn("connection blocked", zap.String("conn", o.In.Origin))
				}
			}
		}
	}()
	return nil
}

func (c *WebSocket) IO(ctx context.Context) (chan *Inbound, chan *Outbound, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop stops routing.  Connections close when their clients leave
// or the Start context is done.
func (c *WebSocket) Stop(ctx context.Context) error {
	close(c.stop)
	c.wg.Wait()
	return nil
}

// Connections returns the number of open connections.
func (c *WebSocket) Connections() int {
	n := 0
	c.conns.Range(func(k, v interface{}) bool {
		n++
		return true
	})
	return n
}

// ServeHTTP upgrades the request and serves the connection.
func (c *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.Logger.Warn("upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	id := strconv.FormatInt(atomic.AddInt64(&c.n, 1), 10)
	replies := make(chan *Outbound, c.Buffer)
	c.conns.Store(id, replies)
	defer c.conns.Delete(id)

	c.Logger.Debug("connected", zap.String("conn", id), zap.String("remote", r.RemoteAddr))

	ctl := make(chan bool)
	defer close(ctl)

	go func() {
		for {
			select {
			case <-ctl:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case o := <-replies:
				js, err := json.Marshal(o)
				if err != nil {
					c.Logger.Error("marshal", zap.Error(err))
					continue
				}
				if err = conn.WriteMessage(websocket.TextMessage, js); err != nil {
					c.Logger.Warn("write", zap.String("conn", id), zap.Error(err))
					return
				}
			}
		}
	}()

	for {
		mt, bs, err := conn.ReadMessage()
		if err != nil {
			c.Logger.Debug("disconnected", zap.String("conn", id), zap.Error(err))
			return
		}
		if mt != websocket.TextMessage || len(bs) == 0 {
			continue
		}
		msg, err := ParseInbound(bs)
		if err != nil {
			c.Logger.Warn("bad input", zap.String("conn", id), zap.Error(err))
			continue
		}
		msg.Origin = id

		select {
		case <-ctx.Done():
			return
		case c.in <- msg:
		}
	}
}
