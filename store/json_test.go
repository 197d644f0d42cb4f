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

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStorage(t *testing.T) {
	var _ Storage = &JSONStorage{}

	ctx := context.Background()
	filename := filepath.Join(t.TempDir(), "hits.json")

	s := NewJSONStorage(filename)
	require.NoError(t, s.Open(ctx))

	then := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.RecordHit(ctx, "a.txt", "你好", then))
	require.NoError(t, s.RecordHit(ctx, "a.txt", "你好", then.Add(time.Minute)))
	require.NoError(t, s.RecordHit(ctx, "b.txt", "hi", then))
	require.NoError(t, s.Forget(ctx, "b.txt"))
	require.NoError(t, s.Close(ctx))

	_, err := os.Stat(filename + ".tmp")
	assert.True(t, os.IsNotExist(err))

	s = NewJSONStorage(filename)
	require.NoError(t, s.Open(ctx))

	hits, err := s.Hits(ctx, "a.txt")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(2), hits["你好"].Count)
	assert.True(t, then.Add(time.Minute).Equal(hits["你好"].Last))

	// Hits are copies.
	hits["你好"].Count = 100
	hits, _ = s.Hits(ctx, "a.txt")
	assert.Equal(t, uint64(2), Total(hits))

	hits, err = s.Hits(ctx, "b.txt")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestJSONStorageBadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "hits.json")
	require.NoError(t, os.WriteFile(filename, []byte("{"), 0644))
	assert.Error(t, NewJSONStorage(filename).Open(context.Background()))
}
