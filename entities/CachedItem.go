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

package entities

import (
	"sync"
	"time"
)

const (
	// InterfaceListTTL how long a host interface listing is served from memory
	InterfaceListTTL = time.Second * 60
	// FailedRefreshTTL a listing that failed is retried sooner
	FailedRefreshTTL = time.Second * 5
)

// CachedItem
// expiry bookkeeping of a value refreshed on demand, the zero value is already expired
type CachedItem struct {
	TTL     time.Duration // InterfaceListTTL when zero
	lock    sync.Mutex
	expires time.Time
}

// NeedUpdate
// true once the value refreshed last has expired at now
func (ca *CachedItem) NeedUpdate(now time.Time) bool {
	ca.lock.Lock()
	defer ca.lock.Unlock()
	return !now.Before(ca.expires)
}

// Update
// records a refresh made at now, refreshErr shortens the expiry to FailedRefreshTTL
func (ca *CachedItem) Update(now time.Time, refreshErr error) {
	ttl := ca.TTL
	if ttl <= 0 {
		ttl = InterfaceListTTL
	}
	if refreshErr != nil && ttl > FailedRefreshTTL {
		ttl = FailedRefreshTTL
	}
	ca.lock.Lock()
	defer ca.lock.Unlock()
	ca.expires = now.Add(ttl)
}

func (ca *CachedItem) Invalidate() {
	ca.lock.Lock()
	defer ca.lock.Unlock()
	ca.expires = time.Time{}
}
