// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recent_cache

import (
	"sort"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
)

const (
	MinSize    = 100
	DefaultAge = 10 * time.Minute
	sinkName   = "recent"
)

// RecentCache
// views of the most recently completed datagrams
type RecentCache interface {
	inspector.DatagramSink
	List(limit int) []view.DatagramView
	Get(key string) (view.DatagramView, bool)
	Len() int
	Purge()
}

type recentCacheImpl struct {
	instance libcache.Cache
}

// NewRecentCache
// creates an LRU cache of the given capacity with entries expiring after ttl
func NewRecentCache(size int, ttl time.Duration) RecentCache {
	if size <= 0 {
		size = MinSize
	}
	if ttl <= 0 {
		ttl = DefaultAge
	}
	nc := recentCacheImpl{instance: libcache.LRU.New(size)}
	nc.instance.SetTTL(ttl)
	return &nc
}

func (rc *recentCacheImpl) Name() string {
	return sinkName
}

func (rc *recentCacheImpl) Consume(d inspector.CompletedDatagram) error {
	rc.instance.Store(d.Key(), d.View())
	return nil
}

// List
// newest first, at most limit entries
func (rc *recentCacheImpl) List(limit int) []view.DatagramView {
	if limit <= 0 {
		limit = view.DefaultRecentListLimit
	}
	ret := make([]view.DatagramView, 0, rc.instance.Len())
	for _, key := range rc.instance.Keys() {
		if v, ok := rc.instance.Peek(key); ok {
			ret = append(ret, v.(view.DatagramView))
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CompletedAt.Equal(ret[j].CompletedAt) {
			return ret[i].Key > ret[j].Key
		}
		return ret[i].CompletedAt.After(ret[j].CompletedAt)
	})
	if len(ret) > limit {
		ret = ret[:limit]
	}
	return ret
}

func (rc *recentCacheImpl) Get(key string) (view.DatagramView, bool) {
	v, ok := rc.instance.Peek(key)
	if !ok {
		return view.DatagramView{}, false
	}
	return v.(view.DatagramView), true
}

func (rc *recentCacheImpl) Len() int {
	return rc.instance.Len()
}

func (rc *recentCacheImpl) Purge() {
	rc.instance.Purge()
}
