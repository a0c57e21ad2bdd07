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
	"bytes"
	"sort"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/pkg/errors"
)

var ErrFragmentConflict = errors.New("fragment conflicts with already received data")

// FragmentStore
// fragments received so far for one datagram identifier
type FragmentStore struct {
	policy         entities.OverlapPolicy
	fragments      map[uint16][]byte // offset -> owned copy of the fragment payload
	hasTerminal    bool
	terminalOffset uint16
	firstSeen      time.Time
	lastTouched    time.Time
	received       int
	size           int
}

// NewFragmentStore
// creates an empty store
func NewFragmentStore(policy entities.OverlapPolicy, now time.Time) *FragmentStore {
	return &FragmentStore{
		policy:      policy,
		fragments:   make(map[uint16][]byte),
		firstSeen:   now,
		lastTouched: now,
	}
}

// Insert
// records the fragment payload at its offset and marks the terminal offset for a last fragment
func (s *FragmentStore) Insert(header entities.FragmentHeader, payload []byte, now time.Time) error {
	offset := header.FragmentOffset
	last := header.IsLastFragment()
	stored, exists := s.fragments[offset]
	if s.policy == entities.OverlapRejectConflict {
		if exists && !bytes.Equal(stored, payload) {
			return errors.Wrapf(ErrFragmentConflict, "payload differs at offset %d", offset)
		}
		if last && s.hasTerminal && s.terminalOffset != offset {
			return errors.Wrapf(ErrFragmentConflict, "terminal offset %d already set, got %d", s.terminalOffset, offset)
		}
	}
	if !exists || s.policy == entities.OverlapLastWriteWins {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		s.size += len(cp) - len(stored)
		s.fragments[offset] = cp
	}
	if last && (!s.hasTerminal || s.policy == entities.OverlapLastWriteWins) {
		s.hasTerminal = true
		s.terminalOffset = offset
	}
	s.received++
	s.lastTouched = now
	return nil
}

// HasAllNecessaryFragments
// true when fragments cover the datagram contiguously from offset 0 up to the terminal offset
func (s *FragmentStore) HasAllNecessaryFragments() bool {
	if !s.hasTerminal {
		return false
	}
	terminal := int(s.terminalOffset)
	cursor := 0
	for {
		fragment, ok := s.fragments[uint16(cursor)]
		if !ok {
			return false
		}
		if cursor == terminal {
			return true
		}
		if len(fragment) == 0 {
			return false // no progress possible
		}
		cursor += len(fragment)
		if cursor > terminal {
			return false
		}
	}
}

// Reassemble
// concatenates fragment payloads in ascending offset order, contiguity is not rechecked
func (s *FragmentStore) Reassemble() []byte {
	offsets := make([]int, 0, len(s.fragments))
	for offset := range s.fragments {
		offsets = append(offsets, int(offset))
	}
	sort.Ints(offsets)
	ret := make([]byte, 0, s.size)
	for _, offset := range offsets {
		ret = append(ret, s.fragments[uint16(offset)]...)
	}
	return ret
}

func (s *FragmentStore) Count() int {
	return len(s.fragments)
}

func (s *FragmentStore) Received() int {
	return s.received
}

func (s *FragmentStore) FirstSeen() time.Time {
	return s.firstSeen
}

func (s *FragmentStore) LastTouched() time.Time {
	return s.lastTouched
}

// TerminalOffset
// the offset of the last fragment and whether one was seen
func (s *FragmentStore) TerminalOffset() (uint16, bool) {
	return s.terminalOffset, s.hasTerminal
}
