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

// Package bolt is a store.Storage backed by BoltDB.
//
// Each lexicon gets a bucket, and each rule gets a key in that
// bucket.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Comcast/lexicon/store"
	"github.com/Comcast/lexicon/util"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type Storage struct {
	Debug    bool
	Logger   *zap.Logger
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) logf(msg string, fields ...zap.Field) {
	if s.Debug {
		util.Or(s.Logger).Debug("bolt storage "+msg, fields...)
	}
}

func (s *Storage) RecordHit(ctx context.Context, lexicon, rule string, at time.Time) error {
	s.logf("RecordHit", zap.String("lexicon", lexicon), zap.String("rule", rule))
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(lexicon))
		if err != nil {
			return err
		}
		key := []byte(rule)
		h := &store.Hit{}
		if bs := b.Get(key); bs != nil {
			if err := json.Unmarshal(bs, h); err != nil {
				return err
			}
		}
		h.Count++
		h.Last = at.UTC()
		js, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return b.Put(key, js)
	})
}

func (s *Storage) Hits(ctx context.Context, lexicon string) (map[string]*store.Hit, error) {
	s.logf("Hits", zap.String("lexicon", lexicon))
	acc := make(map[string]*store.Hit, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(lexicon))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var h store.Hit
			if err := json.Unmarshal(bs, &h); err != nil {
				return err
			}
			h.Lexicon = lexicon
			h.Rule = string(k)
			acc[h.Rule] = &h
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Storage) Forget(ctx context.Context, lexicon string) error {
	s.logf("Forget", zap.String("lexicon", lexicon))
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(lexicon))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}
