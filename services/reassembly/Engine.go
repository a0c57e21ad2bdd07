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

package reassembly

import (
	"context"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/header_decoder"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Datagram
// a completely reassembled datagram
type Datagram struct {
	Header      entities.FragmentHeader // header of the fragment which completed the datagram
	Payload     []byte
	Fragments   int
	FirstSeen   time.Time
	CompletedAt time.Time
}

type EngineStats struct {
	Fragments      int `json:"fragments"`
	Completed      int `json:"completed"`
	Evicted        int `json:"evicted"`
	Discarded      int `json:"discarded"`
	Conflicts      int `json:"conflicts"`
	DecodeFailures int `json:"decode_failures"`
	Pending        int `json:"pending"`
}

// Engine
// reassembles fragments of many concurrent datagrams keyed by the IPv4 identifier
type Engine struct {
	mu      sync.Mutex
	decoder header_decoder.HeaderDecoder
	policy  entities.OverlapPolicy
	stores  map[uint16]*FragmentStore
	stats   EngineStats
	now     func() time.Time
}

// NewEngine
// creates an engine without pending datagrams
func NewEngine(decoder header_decoder.HeaderDecoder, policy entities.OverlapPolicy) *Engine {
	return &Engine{
		decoder: decoder,
		policy:  policy,
		stores:  make(map[uint16]*FragmentStore),
		now:     time.Now,
	}
}

// NewEngineFromConfig
// creates an engine with a header decoder using the configured offset unit
func NewEngineFromConfig(cfg entities.ReassemblyConfig) *Engine {
	log.Debugf("reassembly: offset unit %s, overlap policy %s, eviction after %v", cfg.OffsetUnit, cfg.OverlapPolicy, cfg.Timeout)
	return NewEngine(header_decoder.NewHeaderDecoder(cfg.OffsetUnit), cfg.OverlapPolicy)
}

// AddAndCheck
// decodes raw IPv4 bytes and adds the fragment, a decode error leaves the engine untouched
func (e *Engine) AddAndCheck(raw []byte) (*Datagram, error) {
	header, payload, err := e.decoder.Decode(raw)
	if err != nil {
		e.mu.Lock()
		e.stats.DecodeFailures++
		e.mu.Unlock()
		return nil, err
	}
	return e.Add(header, payload)
}

// Add
// stores the fragment and returns the datagram when this fragment completed it, nil otherwise
func (e *Engine) Add(header entities.FragmentHeader, payload []byte) (*Datagram, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.stats.Fragments++
	store, ok := e.stores[header.Id]
	if !ok {
		store = NewFragmentStore(e.policy, now)
		e.stores[header.Id] = store
	}
	if err := store.Insert(header, payload, now); err != nil {
		e.stats.Conflicts++
		if store.Count() == 0 {
			delete(e.stores, header.Id)
		}
		return nil, errors.WithMessagef(err, "datagram %d", header.Id)
	}
	if !store.HasAllNecessaryFragments() {
		return nil, nil
	}
	delete(e.stores, header.Id)
	e.stats.Completed++
	return &Datagram{
		Header:      header,
		Payload:     store.Reassemble(),
		Fragments:   store.Count(),
		FirstSeen:   store.FirstSeen(),
		CompletedAt: now,
	}, nil
}

// Pending
// number of incomplete datagrams
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stores)
}

func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := e.stats
	ret.Pending = len(e.stores)
	return ret
}

// Reset
// drops every incomplete datagram and returns how many were dropped
func (e *Engine) Reset() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.stores)
	e.stores = make(map[uint16]*FragmentStore)
	e.stats.Discarded += n
	return n
}

// DiscardOlderThan
// evicts incomplete datagrams not touched since t
func (e *Engine) DiscardOlderThan(t time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, store := range e.stores {
		if store.LastTouched().Before(t) {
			log.Debugf("evicting datagram %d: %d fragments, first seen %v", id, store.Count(), store.FirstSeen())
			delete(e.stores, id)
			n++
		}
	}
	e.stats.Evicted += n
	return n
}

// RunSweeper
// evicts datagrams idle longer than timeout every interval until ctx is done. timeout <= 0 disables eviction
func (e *Engine) RunSweeper(ctx context.Context, timeout, interval time.Duration) {
	if timeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = entities.DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.DiscardOlderThan(e.now().Add(-timeout)); n > 0 {
				log.Infof("%d incomplete datagrams evicted after %v of inactivity", n, timeout)
			}
		}
	}
}
