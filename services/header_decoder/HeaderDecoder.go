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

package header_decoder

import (
	"net"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

const (
	// MinHeaderLen IPv4 header without options
	MinHeaderLen = 20
	ipVersion4   = 4
	// octetsPerUnit multiplier of the offset field in standard IPv4
	octetsPerUnit = 8
	// maxOffsetField the offset field is 13 bits wide
	maxOffsetField = 0x1FFF
	defaultTTL     = 64
)

var (
	ErrHeaderTooShort = errors.New("buffer is shorter than an IPv4 header")
	ErrNotIPv4        = errors.New("not an IPv4 header")
)

// HeaderDecoder
// turns raw IPv4 bytes into a fragment header and the fragment payload
type HeaderDecoder interface {
	// Decode
	// returned payload shares memory with buf and is trimmed to the IPv4 total length
	Decode(buf []byte) (entities.FragmentHeader, []byte, error)
	Unit() entities.OffsetUnit
}

type headerDecoderImpl struct {
	unit entities.OffsetUnit
}

// NewHeaderDecoder
// creates a decoder interpreting the fragment offset field in the given unit
func NewHeaderDecoder(unit entities.OffsetUnit) HeaderDecoder {
	return &headerDecoderImpl{unit: unit}
}

func (d *headerDecoderImpl) Unit() entities.OffsetUnit {
	return d.unit
}

func (d *headerDecoderImpl) Decode(buf []byte) (entities.FragmentHeader, []byte, error) {
	if len(buf) < MinHeaderLen {
		return entities.FragmentHeader{}, nil, errors.Wrapf(ErrHeaderTooShort, "%d bytes", len(buf))
	}
	if v := buf[0] >> 4; v != ipVersion4 {
		return entities.FragmentHeader{}, nil, errors.Wrapf(ErrNotIPv4, "version %d", v)
	}
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(buf, gopacket.NilDecodeFeedback); err != nil {
		return entities.FragmentHeader{}, nil, errors.Wrap(err, "ipv4 decode")
	}
	offset := ip.FragOffset
	if d.unit == entities.OffsetUnitOctets8 {
		offset *= octetsPerUnit
	}
	header := entities.FragmentHeader{
		Id:             ip.Id,
		DontFragment:   ip.Flags&layers.IPv4DontFragment != 0,
		MoreFragments:  ip.Flags&layers.IPv4MoreFragments != 0,
		FragmentOffset: offset,
		SourceIP:       copyIP(ip.SrcIP),
		DestinationIP:  copyIP(ip.DstIP),
		Protocol:       entities.ProtocolFromTag(uint8(ip.Protocol)),
		ProtocolNumber: uint8(ip.Protocol),
	}
	return header, ip.Payload, nil
}

// EncodeFragment
// builds IPv4 bytes carrying the header fields and the payload, the reverse of Decode
func EncodeFragment(header entities.FragmentHeader, payload []byte, unit entities.OffsetUnit) ([]byte, error) {
	offset := header.FragmentOffset
	if unit == entities.OffsetUnitOctets8 {
		if offset%octetsPerUnit != 0 {
			return nil, errors.Errorf("offset %d is not a multiple of %d", offset, octetsPerUnit)
		}
		offset /= octetsPerUnit
	}
	if offset > maxOffsetField {
		return nil, errors.Errorf("offset %d does not fit the fragment offset field", header.FragmentOffset)
	}
	var flags layers.IPv4Flag
	if header.DontFragment {
		flags |= layers.IPv4DontFragment
	}
	if header.MoreFragments {
		flags |= layers.IPv4MoreFragments
	}
	ip := &layers.IPv4{
		Version:    ipVersion4,
		TTL:        defaultTTL,
		Id:         header.Id,
		Flags:      flags,
		FragOffset: offset,
		Protocol:   layers.IPProtocol(header.ProtocolTag()),
		SrcIP:      header.SourceIP,
		DstIP:      header.DestinationIP,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(payload)); err != nil {
		return nil, errors.Wrap(err, "ipv4 encode")
	}
	return buf.Bytes(), nil
}

func copyIP(ip net.IP) net.IP {
	ret := make(net.IP, len(ip))
	copy(ret, ip)
	return ret
}
