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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/lexicon/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ReplyTopicProp is an in-bound property that overrides the
// out-bound topic for the reply.
const ReplyTopicProp = "reply_topic"

// MQTTConf configures an MQTT client.  Topics have the form
// TOPIC[:QOS].
type MQTTConf struct {
	Broker    string
	ClientId  string
	Username  string
	Password  string
	KeepAlive time.Duration
	Reconnect bool
	Clean     bool

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	CertFile string
	KeyFile  string
	CAFile   string
	Insecure bool

	// SubTopics are the subscriptions.
	SubTopics []string

	// PubTopic is the default out-bound topic.
	PubTopic string

	// InTimeout bounds how long an in-bound message waits to be
	// queued.
	InTimeout time.Duration
}

// MQTT is a Couplings for an MQTT client.
type MQTT struct {
	Client mqtt.Client
	Conf   MQTTConf
	Logger *zap.Logger

	incoming chan *Inbound
	outbound chan *Outbound
	done     chan bool
	stop     chan bool
}

// NewMQTT makes an MQTT client with the given configuration.
func NewMQTT(ctx context.Context, conf MQTTConf, logger *zap.Logger) (*MQTT, error) {
	if conf.InTimeout <= 0 {
		conf.InTimeout = time.Second
	}
	if conf.KeepAlive <= 0 {
		conf.KeepAlive = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(conf.Broker)
	opts.SetClientID(conf.ClientId)
	opts.SetKeepAlive(conf.KeepAlive)
	opts.Username = conf.Username
	opts.Password = conf.Password
	opts.AutoReconnect = conf.Reconnect
	opts.CleanSession = conf.Clean

	tlsConf, err := conf.tls()
	if err != nil {
		return nil, err
	}
	if tlsConf != nil {
		opts.SetTLSConfig(tlsConf)
	}

	c := &MQTT{
		Conf:     conf,
		Logger:   util.Or(logger),
		incoming: make(chan *Inbound),
		outbound: make(chan *Outbound),
		done:     make(chan bool),
		stop:     make(chan bool),
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		c.Logger.Warn("MQTT connection lost", zap.Error(err))
	}
	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.inHandler(ctx, msg.Topic(), msg.Payload())
	}

	c.Client = mqtt.NewClient(opts)

	return c, nil
}

func (conf MQTTConf) tls() (*tls.Config, error) {
	if conf.CAFile == "" && conf.KeyFile == "" && !conf.Insecure {
		return nil, nil
	}

	tlsConf := &tls.Config{
		InsecureSkipVerify: conf.Insecure,
	}

	if conf.CAFile != "" {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certs, err := os.ReadFile(conf.CAFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read %s: %w", conf.CAFile, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			return nil, fmt.Errorf("no certs in %s", conf.CAFile)
		}
		tlsConf.RootCAs = rootCAs
	}

	if conf.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
		if err != nil {
			return nil, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}

	return tlsConf, nil
}

// inHandler forwards a message sent to us by the broker due to our
// subscriptions.
func (c *MQTT) inHandler(ctx context.Context, topic string, payload []byte) {
	c.Logger.Debug("incoming", zap.String("topic", topic), zap.ByteString("payload", payload))

	msg, err := ParseInbound(payload)
	if err != nil {
		c.Logger.Warn("couldn't parse payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	msg.Origin = topic

	to := time.NewTimer(c.Conf.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
	case c.incoming <- msg:
	case <-to.C:
		c.Logger.Warn("dropped in-bound message due to stall", zap.String("topic", topic))
	}
}

// Start connects to the broker, subscribes, and starts forwarding
// out-bound replies.
func (c *MQTT) Start(ctx context.Context) error {
	c.Logger.Info("connecting to broker", zap.String("broker", c.Conf.Broker))
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	for _, topic := range c.Conf.SubTopics {
		topic, qos := ParseTopic(topic)
		if topic == "" {
			continue
		}
		c.Logger.Info("subscribing", zap.String("topic", topic), zap.Uint8("qos", qos))
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels.
func (c *MQTT) IO(ctx context.Context) (chan *Inbound, chan *Outbound, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// Publication determines the topic, QoS, and payload for a reply.
func (c *MQTT) Publication(o *Outbound) (string, byte, []byte, error) {
	topic, qos := ParseTopic(c.Conf.PubTopic)
	if o.In != nil {
		if t := o.In.Props.String(ReplyTopicProp); t != "" {
			topic, qos = ParseTopic(t)
		}
	}
	js, err := json.Marshal(o)
	return topic, qos, js, err
}

// outLoop publishes out-bound replies.
func (c *MQTT) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case o := <-c.outbound:
			topic, qos, js, err := c.Publication(o)
			if err != nil {
				c.Logger.Error("marshal", zap.Error(err))
				continue
			}
			if topic == "" {
				c.Logger.Warn("no out-bound topic")
				continue
			}
			token := c.Client.Publish(topic, qos, false, js)
			if token.Wait() && token.Error() != nil {
				c.Logger.Error("publish", zap.String("topic", topic), zap.Error(token.Error()))
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTT) Stop(ctx context.Context) error {
	c.Logger.Info("disconnecting")
	close(c.stop)
	c.Client.Disconnect(c.Conf.Quiesce)
	return nil
}

// ParseTopic extracts the QoS from a topic of the form TOPIC:QOS.
func ParseTopic(s string) (string, byte) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 8)
	if err != nil || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
