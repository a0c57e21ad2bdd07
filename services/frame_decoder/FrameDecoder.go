package frame_decoder

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

type EtherType int

const (
	EtherTypeOthers EtherType = iota
	EtherTypeIPv4
	EtherTypeIPv6
	EtherTypeARP
)

const (
	HeaderLen = 14
	// CookedHeaderLen Linux cooked capture (SLL) header
	CookedHeaderLen  = 16
	cookedMaxAddrLen = 8
	// maxVlanTags stacked 802.1Q tags unwrapped before giving up
	maxVlanTags = 2
)

// libpcap hands LINKTYPE_RAW files and raw interfaces over as DLT_RAW, its value depends on the platform
const (
	linkTypeDltRaw        layers.LinkType = 12
	linkTypeDltRawOpenBSD layers.LinkType = 14
)

// Frame
// a decoded link-layer frame, Payload shares memory with the decoded buffer
type Frame struct {
	Destination net.HardwareAddr
	Source      net.HardwareAddr
	Type        EtherType
	VlanId      uint16
	Payload     []byte
}

var (
	ErrFrameTooShort       = errors.New("frame is shorter than its link-layer header")
	ErrUnsupportedLinkType = errors.New("unsupported link type")
)

// CheckLinkType
// link types DecodeLinkFrame understands: ethernet, Linux cooked capture and raw IP
func CheckLinkType(linkType layers.LinkType) error {
	switch linkType {
	case layers.LinkTypeEthernet, layers.LinkTypeLinuxSLL, layers.LinkTypeRaw, layers.LinkTypeIPv4,
		linkTypeDltRaw, linkTypeDltRawOpenBSD:
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedLinkType, "%s (%d)", LinkTypeName(linkType), int(linkType))
	}
}

// LinkTypeName
// gopacket leaves some of the raw IP link types unnamed
func LinkTypeName(linkType layers.LinkType) string {
	switch linkType {
	case layers.LinkTypeIPv4:
		return "IPv4"
	case linkTypeDltRaw, linkTypeDltRawOpenBSD:
		return layers.LinkTypeRaw.String()
	default:
		return linkType.String()
	}
}

// DecodeLinkFrame
// decodes a frame according to the link type of the source it was read from
func DecodeLinkFrame(linkType layers.LinkType, data []byte) (Frame, error) {
	switch linkType {
	case layers.LinkTypeEthernet:
		return DecodeFrame(data)
	case layers.LinkTypeLinuxSLL:
		return decodeCooked(data)
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, linkTypeDltRaw, linkTypeDltRawOpenBSD:
		return decodeRawIP(linkType, data)
	default:
		return Frame{}, CheckLinkType(linkType)
	}
}

// DecodeFrame
// splits an ethernet frame into link addresses, upper layer type and payload
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < HeaderLen {
		return Frame{}, errors.Wrapf(ErrFrameTooShort, "%d bytes", len(data))
	}
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Frame{}, errors.Wrap(err, "ethernet decode")
	}
	frame := Frame{
		Destination: eth.DstMAC,
		Source:      eth.SrcMAC,
		Payload:     eth.Payload,
	}
	if err := unwrapVlan(&frame, eth.EthernetType); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// decodeCooked
// the any pseudo-interface on Linux delivers SLL frames, only the sender address is known
func decodeCooked(data []byte) (Frame, error) {
	if len(data) < CookedHeaderLen {
		return Frame{}, errors.Wrapf(ErrFrameTooShort, "%d bytes", len(data))
	}
	if addrLen := binary.BigEndian.Uint16(data[4:6]); addrLen > cookedMaxAddrLen {
		return Frame{}, errors.Errorf("cooked header address length %d", addrLen)
	}
	var sll layers.LinuxSLL
	if err := sll.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Frame{}, errors.Wrap(err, "cooked header decode")
	}
	frame := Frame{Source: sll.Addr, Payload: sll.Payload}
	if err := unwrapVlan(&frame, sll.EthernetType); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// decodeRawIP
// raw captures carry the IP header straight away
func decodeRawIP(linkType layers.LinkType, data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, errors.Wrap(ErrFrameTooShort, "empty raw frame")
	}
	frame := Frame{Payload: data, Type: EtherTypeOthers}
	switch {
	case linkType == layers.LinkTypeIPv4 || data[0]>>4 == 4:
		frame.Type = EtherTypeIPv4
	case data[0]>>4 == 6:
		frame.Type = EtherTypeIPv6
	}
	return frame, nil
}

func unwrapVlan(frame *Frame, etherType layers.EthernetType) error {
	for i := 0; i < maxVlanTags && etherType == layers.EthernetTypeDot1Q; i++ {
		var tag layers.Dot1Q
		if err := tag.DecodeFromBytes(frame.Payload, gopacket.NilDecodeFeedback); err != nil {
			return errors.Wrap(err, "vlan tag decode")
		}
		if i == 0 {
			frame.VlanId = tag.VLANIdentifier
		}
		etherType = tag.Type
		frame.Payload = tag.Payload
	}
	frame.Type = typeFromEthernet(etherType)
	return nil
}

func typeFromEthernet(t layers.EthernetType) EtherType {
	switch t {
	case layers.EthernetTypeIPv4:
		return EtherTypeIPv4
	case layers.EthernetTypeIPv6:
		return EtherTypeIPv6
	case layers.EthernetTypeARP:
		return EtherTypeARP
	default:
		return EtherTypeOthers
	}
}

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeIPv6:
		return "IPv6"
	case EtherTypeARP:
		return "ARP"
	default:
		return "Other Protocol"
	}
}

// FormatLinkAddress
// upper-case hex octets separated by colons
func FormatLinkAddress(addr net.HardwareAddr) string {
	parts := make([]string, len(addr))
	for i, b := range addr {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
