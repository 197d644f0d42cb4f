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

package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Comcast/lexicon/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestImpl(t *testing.T) {
	var _ store.Storage = &Storage{}
	var _ store.Storage = &store.NoopStorage{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "hits.db")

	s, err := NewStorage(filename)
	require.NoError(t, err)
	s.Debug = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Open(ctx))
	defer func() {
		require.NoError(t, s.Close(ctx))
	}()

	then := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.RecordHit(ctx, "a.txt", "你好", then))
	require.NoError(t, s.RecordHit(ctx, "a.txt", "你好", then.Add(time.Minute)))
	require.NoError(t, s.RecordHit(ctx, "a.txt", "早上好", then))
	require.NoError(t, s.RecordHit(ctx, "b.txt", "你好", then))

	hits, err := s.Hits(ctx, "a.txt")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint64(2), hits["你好"].Count)
	assert.Equal(t, then.Add(time.Minute), hits["你好"].Last)
	assert.Equal(t, "a.txt", hits["你好"].Lexicon)
	assert.Equal(t, uint64(3), store.Total(hits))

	require.NoError(t, s.Forget(ctx, "a.txt"))
	require.NoError(t, s.Forget(ctx, "never.txt"))

	hits, err = s.Hits(ctx, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Hits(ctx, "b.txt")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
