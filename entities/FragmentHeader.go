package entities

import (
	"fmt"
	"net"
)

// TransportProtocol
// upper layer protocol tag carried by an IPv4 header
type TransportProtocol int

const (
	ProtocolOthers TransportProtocol = iota
	ProtocolTCP
	ProtocolUDP
)

// protocol numbers from the IPv4 protocol field
const (
	ipProtoTCP = 6
	ipProtoUDP = 17
	// ipProtoOthers experimental protocol number used when an unknown protocol has to be written back
	ipProtoOthers = 253
)

// ProtocolFromTag
// maps the IPv4 protocol field onto TransportProtocol
func ProtocolFromTag(tag uint8) TransportProtocol {
	switch tag {
	case ipProtoTCP:
		return ProtocolTCP
	case ipProtoUDP:
		return ProtocolUDP
	default:
		return ProtocolOthers
	}
}

// Tag
// protocol field value for encoding
func (p TransportProtocol) Tag() uint8 {
	switch p {
	case ProtocolTCP:
		return ipProtoTCP
	case ProtocolUDP:
		return ipProtoUDP
	default:
		return ipProtoOthers
	}
}

func (p TransportProtocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	default:
		return "Others"
	}
}

// FragmentHeader
// decoded IPv4 header fields needed to place a fragment into its datagram
type FragmentHeader struct {
	Id             uint16 // datagram identifier, shared by all fragments of a datagram
	DontFragment   bool
	MoreFragments  bool
	FragmentOffset uint16 // position of the fragment payload in the datagram, in decoder units
	SourceIP       net.IP
	DestinationIP  net.IP
	Protocol       TransportProtocol
	ProtocolNumber uint8 // raw protocol field, 0 when only Protocol is known
}

// IsLastFragment
// true for the only fragment of a datagram or the one with no fragments following it
func (h FragmentHeader) IsLastFragment() bool {
	return h.DontFragment || !h.MoreFragments
}

// ProtocolTag
// protocol field value to write back, the raw number wins over the Protocol mapping
func (h FragmentHeader) ProtocolTag() uint8 {
	if h.ProtocolNumber != 0 {
		return h.ProtocolNumber
	}
	return h.Protocol.Tag()
}

func (h FragmentHeader) String() string {
	return fmt.Sprintf("Header { id: %d, dont_fragment: %t, more_fragment: %t, fragment_offset: %d, source_ip: %s, destination_ip: %s, protocol: %s }",
		h.Id, h.DontFragment, h.MoreFragments, h.FragmentOffset, h.SourceIP, h.DestinationIP, h.Protocol)
}
