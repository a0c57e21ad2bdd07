package entities

import (
	"fmt"
	"strings"
	"time"
)

// OffsetUnit
// how the header decoder turns the 13-bit fragment offset field into a byte offset
type OffsetUnit int

const (
	// OffsetUnitBytes the raw field value is used as a byte offset
	OffsetUnitBytes OffsetUnit = iota
	// OffsetUnitOctets8 the raw field value is scaled by 8 as on the wire
	OffsetUnitOctets8
)

// OverlapPolicy
// what a fragment store does when a fragment arrives at an already stored offset
type OverlapPolicy int

const (
	OverlapLastWriteWins OverlapPolicy = iota
	OverlapFirstWriteWins
	OverlapRejectConflict
)

const (
	DefaultReassemblyTimeout = time.Second * 30
	DefaultSweepInterval     = time.Second * 5
)

var offsetUnitNames = map[string]OffsetUnit{
	"":        OffsetUnitBytes,
	"bytes":   OffsetUnitBytes,
	"octets8": OffsetUnitOctets8,
}

var overlapPolicyNames = map[string]OverlapPolicy{
	"":                 OverlapLastWriteWins,
	"last-write-wins":  OverlapLastWriteWins,
	"first-write-wins": OverlapFirstWriteWins,
	"reject-conflict":  OverlapRejectConflict,
}

// ReassemblyConfig
// reassembly engine and header decoder settings
type ReassemblyConfig struct {
	OffsetUnit    OffsetUnit
	OverlapPolicy OverlapPolicy
	Timeout       time.Duration // incomplete datagrams untouched for longer are evicted, 0 disables eviction
	SweepInterval time.Duration // how often the eviction sweep runs
}

// DefaultReassemblyConfig
// settings used when nothing is configured
func DefaultReassemblyConfig() ReassemblyConfig {
	return ReassemblyConfig{
		OffsetUnit:    OffsetUnitBytes,
		OverlapPolicy: OverlapLastWriteWins,
		Timeout:       DefaultReassemblyTimeout,
		SweepInterval: DefaultSweepInterval,
	}
}

// ParseOffsetUnit
// converts configuration text into OffsetUnit
func ParseOffsetUnit(s string) (OffsetUnit, error) {
	if v, ok := offsetUnitNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return OffsetUnitBytes, fmt.Errorf("unknown fragment offset unit '%s'", s)
}

// ParseOverlapPolicy
// converts configuration text into OverlapPolicy
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	if v, ok := overlapPolicyNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return OverlapLastWriteWins, fmt.Errorf("unknown overlap policy '%s'", s)
}

func (u OffsetUnit) String() string {
	if u == OffsetUnitOctets8 {
		return "octets8"
	}
	return "bytes"
}

func (p OverlapPolicy) String() string {
	switch p {
	case OverlapFirstWriteWins:
		return "first-write-wins"
	case OverlapRejectConflict:
		return "reject-conflict"
	default:
		return "last-write-wins"
	}
}
