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

// Package sio couples a library.Manager to transports.
//
// A Couplings provides in-bound messages and takes out-bound
// replies.  A Service reads from the former, asks the Manager, and
// writes to the latter.
package sio

import (
	"context"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/library"
)

// Couplings provide channels for message input and reply output.
//
// For example, an implementation could couple a Manager to an MQTT
// broker.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the input and output channels along with a
	// channel that's closed when input is exhausted.
	IO(context.Context) (chan *Inbound, chan *Outbound, chan bool, error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}

// Processor answers messages.  A *library.Manager is a Processor.
type Processor interface {
	Process(ctx context.Context, text string, props core.Props) *library.Result
}

// Inbound is a message to answer.
type Inbound struct {
	Text  string     `json:"text"`
	Props core.Props `json:"props,omitempty"`

	// Origin says where a reply should go.  Its meaning depends
	// on the Couplings (a topic or a connection id, for example).
	Origin string `json:"-"`
}

// Outbound is a reply.
type Outbound struct {
	In *Inbound `json:"-"`

	Reply   string `json:"reply"`
	Matched bool   `json:"matched"`
	Lexicon string `json:"lexicon,omitempty"`
	Rule    string `json:"rule,omitempty"`

	// To has the routing properties (user, group, message type)
	// of the in-bound message.
	To core.Props `json:"to,omitempty"`
}

// RoutingProps are the in-bound properties copied to Outbound.To.
var RoutingProps = []string{
	core.PropSelfId,
	core.PropUserId,
	core.PropGroupId,
	core.PropMessageType,
	core.PropMessageId,
}

// NewOutbound makes an Outbound for a result.
func NewOutbound(in *Inbound, r *library.Result) *Outbound {
	o := &Outbound{
		In:      in,
		Lexicon: r.Lexicon,
	}
	o.Reply, o.Matched = r.Reply()
	if r.Entry != nil {
		o.Rule = r.Entry.Trigger
	}
	for _, p := range RoutingProps {
		if x, have := in.Props[p]; have {
			if o.To == nil {
				o.To = make(core.Props, len(RoutingProps))
			}
			o.To[p] = x
		}
	}
	return o
}
