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
	"time"
)

// NoopStorage remembers nothing.
type NoopStorage struct {
}

func (s *NoopStorage) Open(ctx context.Context) error {
	return nil
}

func (s *NoopStorage) RecordHit(ctx context.Context, lexicon, rule string, at time.Time) error {
	return nil
}

func (s *NoopStorage) Hits(ctx context.Context, lexicon string) (map[string]*Hit, error) {
	return nil, nil
}

func (s *NoopStorage) Forget(ctx context.Context, lexicon string) error {
	return nil
}

func (s *NoopStorage) Close(ctx context.Context) error {
	return nil
}
