package frame_decoder

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSrc = net.HardwareAddr{0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e}
	testDst = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func buildFrame(t *testing.T, etherType layers.EthernetType, payload []byte) []byte {
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: testSrc, DstMAC: testDst, EthernetType: etherType}
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestDecodeFrame(t *testing.T) {
	frame, err := DecodeFrame(buildFrame(t, layers.EthernetTypeIPv4, []byte{0x45, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)
	assert.Equal(t, testSrc, frame.Source)
	assert.Equal(t, testDst, frame.Destination)
	// serializer pads short frames to the ethernet minimum
	assert.Len(t, frame.Payload, 60-HeaderLen)
	assert.Equal(t, []byte{0x45, 0x00}, frame.Payload[:2])
}

func TestFrameTypes(t *testing.T) {
	cases := map[layers.EthernetType]string{
		layers.EthernetTypeIPv4:     "IPv4",
		layers.EthernetTypeIPv6:     "IPv6",
		layers.EthernetTypeARP:      "ARP",
		layers.EthernetType(0x88cc): "Other Protocol",
	}
	for et, name := range cases {
		frame, err := DecodeFrame(buildFrame(t, et, []byte{1, 2, 3}))
		require.NoError(t, err)
		assert.Equal(t, name, frame.Type.String())
	}
}

func TestDecodeVlanFrame(t *testing.T) {
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{SrcMAC: testSrc, DstMAC: testDst, EthernetType: layers.EthernetTypeDot1Q}
	tag := &layers.Dot1Q{VLANIdentifier: 42, Type: layers.EthernetTypeIPv4}
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, tag, gopacket.Payload([]byte{0x45})))
	frame, err := DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)
	assert.Equal(t, uint16(42), frame.VlanId)
	assert.Equal(t, byte(0x45), frame.Payload[0])
}

func TestDecodeShortFrame(t *testing.T) {
	_, err := DecodeFrame(make([]byte, HeaderLen-1))
	assert.Equal(t, ErrFrameTooShort, errors.Cause(err))
}

func cookedFrame(etherType layers.EthernetType, payload []byte) []byte {
	frame := make([]byte, CookedHeaderLen, CookedHeaderLen+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], uint16(layers.LinuxSLLPacketTypeHost))
	binary.BigEndian.PutUint16(frame[2:4], 1) // ARPHRD_ETHER
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(testSrc)))
	copy(frame[6:14], testSrc)
	binary.BigEndian.PutUint16(frame[14:16], uint16(etherType))
	return append(frame, payload...)
}

func TestDecodeCookedFrame(t *testing.T) {
	frame, err := DecodeLinkFrame(layers.LinkTypeLinuxSLL, cookedFrame(layers.EthernetTypeIPv4, []byte{0x45, 0x00, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)
	assert.Equal(t, testSrc, frame.Source)
	assert.Nil(t, frame.Destination)
	assert.Equal(t, []byte{0x45, 0x00, 0x00}, frame.Payload)

	frame, err = DecodeLinkFrame(layers.LinkTypeLinuxSLL, cookedFrame(layers.EthernetTypeARP, []byte{0, 1}))
	require.NoError(t, err)
	assert.Equal(t, EtherTypeARP, frame.Type)

	_, err = DecodeLinkFrame(layers.LinkTypeLinuxSLL, make([]byte, CookedHeaderLen-1))
	assert.Equal(t, ErrFrameTooShort, errors.Cause(err))

	broken := cookedFrame(layers.EthernetTypeIPv4, nil)
	binary.BigEndian.PutUint16(broken[4:6], 200)
	_, err = DecodeLinkFrame(layers.LinkTypeLinuxSLL, broken)
	assert.Error(t, err)
}

func TestDecodeRawFrame(t *testing.T) {
	frame, err := DecodeLinkFrame(layers.LinkTypeIPv4, []byte{0x45, 0x00})
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)
	assert.Equal(t, []byte{0x45, 0x00}, frame.Payload)
	assert.Nil(t, frame.Source)

	frame, err = DecodeLinkFrame(layers.LinkTypeRaw, []byte{0x60, 0x00})
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv6, frame.Type)
	frame, err = DecodeLinkFrame(layers.LinkTypeRaw, []byte{0x45})
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)

	_, err = DecodeLinkFrame(layers.LinkTypeRaw, nil)
	assert.Equal(t, ErrFrameTooShort, errors.Cause(err))
}

func TestDecodeLinkFrameEthernet(t *testing.T) {
	frame, err := DecodeLinkFrame(layers.LinkTypeEthernet, buildFrame(t, layers.EthernetTypeIPv4, []byte{0x45}))
	require.NoError(t, err)
	assert.Equal(t, EtherTypeIPv4, frame.Type)
	assert.Equal(t, testDst, frame.Destination)
}

func TestUnsupportedLinkType(t *testing.T) {
	for _, lt := range []layers.LinkType{layers.LinkTypeEthernet, layers.LinkTypeLinuxSLL, layers.LinkTypeRaw, layers.LinkTypeIPv4, 12} {
		assert.NoError(t, CheckLinkType(lt), LinkTypeName(lt))
	}
	err := CheckLinkType(layers.LinkTypeIEEE80211Radio)
	assert.Equal(t, ErrUnsupportedLinkType, errors.Cause(err))
	_, err = DecodeLinkFrame(layers.LinkTypeNull, []byte{2, 0, 0, 0, 0x45})
	assert.Equal(t, ErrUnsupportedLinkType, errors.Cause(err))
}

func TestLinkTypeName(t *testing.T) {
	assert.Equal(t, "Ethernet", LinkTypeName(layers.LinkTypeEthernet))
	assert.Equal(t, "Linux SLL", LinkTypeName(layers.LinkTypeLinuxSLL))
	assert.Equal(t, "IPv4", LinkTypeName(layers.LinkTypeIPv4))
	assert.Equal(t, "Raw", LinkTypeName(12))
}

func TestFormatLinkAddress(t *testing.T) {
	assert.Equal(t, "00:1A:2B:3C:4D:5E", FormatLinkAddress(testSrc))
	assert.Equal(t, "FF:FF:FF:FF:FF:FF", FormatLinkAddress(testDst))
	assert.Equal(t, "", FormatLinkAddress(nil))
}
