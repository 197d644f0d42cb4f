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

// Package main is lexd, which serves and checks lexicons.
//
//	lexd serve   # answer messages from WebSockets and MQTT
//	lexd repl    # answer lines from stdin
//	lexd check   # report problems in lexicon files
//
// See "lexd help" for the rest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Comcast/lexicon/library"
	"github.com/Comcast/lexicon/store"
	"github.com/Comcast/lexicon/store/bolt"
	"github.com/Comcast/lexicon/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configFilename string
	dir            string
	verbose        bool

	conf   *Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lexd",
	Short: "lexd answers chat messages with lexicon rules",
	Long: `lexd loads lexicon files (trigger/response rules) from a directory
and answers messages with them.

The directory's config.json lists the enabled files.  When nothing is
enabled, every *.txt file is.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if conf, err = LoadConfig(configFilename); err != nil {
			return err
		}
		if dir != "" {
			conf.Wordlib.Dir = dir
		}
		if verbose {
			conf.Log.Verbose = true
		}
		if logger, err = util.NewLogger(conf.Log.Verbose); err != nil {
			return err
		}
		util.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFilename, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "lexicon directory (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		serveCmd,
		replCmd,
		checkCmd,
		dumpCmd,
		htmlCmd,
		expectCmd,
		sampleCmd,
		filesCmd,
		enableCmd,
		disableCmd,
	)
}

// openStorage opens the configured hit store.
func openStorage(ctx context.Context) (store.Storage, error) {
	if conf.Storage.Bolt == "" {
		if conf.Storage.JSON != "" {
			s := store.NewJSONStorage(conf.Storage.JSON)
			if err := s.Open(ctx); err != nil {
				return nil, fmt.Errorf("can't open %s: %w", conf.Storage.JSON, err)
			}
			return s, nil
		}
		return &store.NoopStorage{}, nil
	}
	s, err := bolt.NewStorage(conf.Storage.Bolt)
	if err != nil {
		return nil, err
	}
	s.Logger = logger
	if err = s.Open(ctx); err != nil {
		return nil, fmt.Errorf("can't open %s: %w", conf.Storage.Bolt, err)
	}
	return s, nil
}

// openManager makes a Manager for the configured directory and loads
// the enabled lexicons.  Call the returned function when done.
func openManager(ctx context.Context, load bool) (*library.Manager, func(), error) {
	s, err := openStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := s.Close(context.Background()); err != nil {
			logger.Warn("storage close", zap.Error(err))
		}
	}

	m, err := library.NewManager(conf.Wordlib.Dir,
		library.WithLogger(logger),
		library.WithControl(conf.Control()),
		library.WithDispatcher(conf.Dispatcher()),
		library.WithStorage(s))
	if err != nil {
		closer()
		return nil, nil, err
	}

	if !load {
		return m, closer, nil
	}

	if conf.Wordlib.Sample {
		if names, err := m.Available(); err == nil && len(names) == 0 {
			if _, err = m.CreateSample(ctx); err != nil {
				logger.Warn("sample", zap.Error(err))
			}
		}
	}

	n, errs := m.LoadEnabled(ctx)
	for _, err := range errs {
		logger.Warn("load", zap.Error(err))
	}
	logger.Info("lexicons loaded", zap.Int("count", n), zap.String("dir", conf.Wordlib.Dir))

	return m, closer, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
