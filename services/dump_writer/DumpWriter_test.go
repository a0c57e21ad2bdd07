package dump_writer

import (
	"compress/gzip"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/header_decoder"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageStub struct {
	files []string
}

func (s *storageStub) StoreFile(fileName string) {
	s.files = append(s.files, fileName)
}

func (s *storageStub) Stop() {}

func (s *storageStub) Uploaded() int {
	return len(s.files)
}

func datagram(seq int, payload string) inspector.CompletedDatagram {
	return inspector.CompletedDatagram{
		SessionId: "s1",
		Seq:       seq,
		Datagram: &reassembly.Datagram{
			Header: entities.FragmentHeader{
				Id:             5678,
				FragmentOffset: 31,
				SourceIP:       net.IPv4(192, 168, 1, 1),
				DestinationIP:  net.IPv4(192, 168, 1, 2),
				Protocol:       entities.ProtocolUDP,
			},
			Payload:     []byte(payload),
			Fragments:   2,
			CompletedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func readDump(t *testing.T, r io.Reader) []string {
	pr, err := pcapgo.NewReader(r)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeIPv4, pr.LinkType())
	decoder := header_decoder.NewHeaderDecoder(entities.OffsetUnitBytes)
	var payloads []string
	for {
		data, _, err := pr.ReadPacketData()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		header, payload, err := decoder.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, uint16(0), header.FragmentOffset)
		assert.True(t, header.IsLastFragment())
		payloads = append(payloads, string(payload))
	}
	return payloads
}

func TestDumpWriter(t *testing.T) {
	dir := t.TempDir()
	storage := &storageStub{}
	dw := NewDumpWriter(DumpConfig{WorkDirectory: dir, SessionId: "s1", InstanceId: "i1"}, storage)
	assert.Equal(t, "dump", dw.Name())
	require.NoError(t, dw.Consume(datagram(1, "First fragment of the message. This is the last fragment.")))
	require.NoError(t, dw.Consume(datagram(2, "Hello, World!")))
	require.NoError(t, dw.Close())
	require.NoError(t, dw.Close())
	files := dw.Files()
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "s1_i1_00.pcap"), files[0])
	assert.Equal(t, files, storage.files)

	fh, err := os.Open(files[0])
	require.NoError(t, err)
	defer fh.Close()
	assert.Equal(t, []string{"First fragment of the message. This is the last fragment.", "Hello, World!"}, readDump(t, fh))
}

func TestDumpWriterRotation(t *testing.T) {
	dir := t.TempDir()
	dw := NewDumpWriter(DumpConfig{WorkDirectory: dir, SessionId: "s1", InstanceId: "i1", Compression: true, MaxFileSize: 64}, nil)
	for i := 1; i <= 3; i++ {
		require.NoError(t, dw.Consume(datagram(i, strings.Repeat("x", 40))))
	}
	require.NoError(t, dw.Close())
	files := dw.Files()
	require.Len(t, files, 3)
	assert.True(t, strings.HasSuffix(files[2], "s1_i1_02.pcap.gz"))
	fh, err := os.Open(files[1])
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	assert.Len(t, readDump(t, zr), 1)
}

func TestDumpWriterOversizedDatagram(t *testing.T) {
	dw := NewDumpWriter(DumpConfig{WorkDirectory: t.TempDir(), SessionId: "s1"}, nil)
	assert.Error(t, dw.Consume(datagram(1, strings.Repeat("x", maxPacketLen))))
	assert.Empty(t, dw.Files())
}

type collectingSink struct {
	datagrams []inspector.CompletedDatagram
}

func (s *collectingSink) Name() string {
	return "collect"
}

func (s *collectingSink) Consume(d inspector.CompletedDatagram) error {
	s.datagrams = append(s.datagrams, d)
	return nil
}

func TestDumpInspectedAgain(t *testing.T) {
	dir := t.TempDir()
	dw := NewDumpWriter(DumpConfig{WorkDirectory: dir, SessionId: "s1", InstanceId: "i1", Compression: true}, nil)
	gre := datagram(2, "tunnelled frame")
	gre.Header.Id = 4321
	gre.Header.Protocol = entities.ProtocolOthers
	gre.Header.ProtocolNumber = uint8(layers.IPProtocolGRE)
	require.NoError(t, dw.Consume(datagram(1, "First fragment of the message. This is the last fragment.")))
	require.NoError(t, dw.Consume(gre))
	require.NoError(t, dw.Close())
	require.Len(t, dw.Files(), 1)

	fh, err := os.Open(dw.Files()[0])
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	pr, err := pcapgo.NewReader(zr)
	require.NoError(t, err)

	sink := &collectingSink{}
	engine := reassembly.NewEngineFromConfig(entities.DefaultReassemblyConfig())
	summary, err := inspector.NewInspector("again", engine, sink).Run(context.Background(), pr, inspector.RunLimits{})
	require.NoError(t, err)
	assert.Equal(t, "IPv4", summary.LinkType)
	assert.Equal(t, 2, summary.Datagrams)
	assert.Empty(t, summary.Errors)
	require.Len(t, sink.datagrams, 2)
	assert.Equal(t, "First fragment of the message. This is the last fragment.", string(sink.datagrams[0].Payload))
	assert.Equal(t, entities.ProtocolUDP, sink.datagrams[0].Header.Protocol)
	assert.Equal(t, uint16(5678), sink.datagrams[0].Header.Id)
	assert.Equal(t, "tunnelled frame", string(sink.datagrams[1].Payload))
	assert.Equal(t, uint8(layers.IPProtocolGRE), sink.datagrams[1].Header.ProtocolNumber)
	assert.Equal(t, "192.168.1.2", sink.datagrams[1].Header.DestinationIP.String())
}
