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
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Comcast/lexicon/library"
	"github.com/Comcast/lexicon/sio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr   string
	serveBroker string
	serveWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer messages from WebSockets and MQTT",
	Long: `Serve answers messages that arrive on WebSocket connections and MQTT
subscriptions.  The HTTP server also offers a small JSON API and
Prometheus metrics at /metrics.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides the configuration)")
	serveCmd.Flags().StringVar(&serveBroker, "broker", "", "MQTT broker (overrides the configuration)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload lexicons when their files change")
}

func serve(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		conf.WebSocket.Addr = serveAddr
	}
	if serveBroker != "" {
		conf.MQTT.Broker = serveBroker
	}
	if serveWatch {
		conf.Wordlib.Watch = true
	}
	if conf.WebSocket.Addr == "" && conf.MQTT.Broker == "" {
		return errors.New("nothing to serve: need an HTTP address or an MQTT broker")
	}

	m, closer, err := openManager(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closer()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := sio.NewMetrics(reg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	service := func(c sio.Couplings) {
		s := &sio.Service{
			Processor: m,
			Couplings: c,
			Metrics:   metrics,
			Logger:    logger,
		}
		g.Go(func() error {
			return s.Run(ctx)
		})
	}

	if conf.WebSocket.Addr != "" {
		ws := sio.NewWebSocket(logger)
		service(ws)

		server := &http.Server{
			Addr:              conf.WebSocket.Addr,
			Handler:           newMux(m, ws, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdown)
		})
	}

	if conf.MQTT.Broker != "" {
		c, err := sio.NewMQTT(ctx, conf.MQTTConf(), logger)
		if err != nil {
			return err
		}
		service(c)
	}

	if conf.Wordlib.Watch {
		g.Go(func() error {
			return m.Watch(ctx, library.DefaultDebounce)
		})
	}

	if f, is := m.Storage.(flusher); is {
		g.Go(func() error {
			flush(ctx, f, time.Minute)
			return nil
		})
	}

	return g.Wait()
}

type flusher interface {
	Flush(ctx context.Context) error
}

// flush periodically flushes storage that buffers writes.
func flush(ctx context.Context, f flusher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil {
				logger.Warn("flush", zap.Error(err))
			}
		}
	}
}

// newMux makes the HTTP handlers.
func newMux(m *library.Manager, ws *sio.WebSocket, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	path := conf.WebSocket.Path
	if path == "" {
		path = "/ws"
	}
	mux.Handle(path, ws)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	(&api{m: m}).register(mux)
	return mux
}
