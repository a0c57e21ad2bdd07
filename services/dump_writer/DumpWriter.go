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

package dump_writer

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/cloud_storage"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/header_decoder"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
)

const (
	sinkName = "dump"
	// maxPacketLen an IPv4 total length limit
	maxPacketLen = 0xFFFF
	// pcap file header and per-record header sizes
	fileHeaderLen   = 24
	recordHeaderLen = 16
)

// DumpConfig
// where and how dump files are written
type DumpConfig struct {
	WorkDirectory string
	SessionId     string
	InstanceId    string
	Compression   bool
	MaxFileSize   int // bytes written to one file before switching to the next one
}

// DumpWriter
// writes completed datagrams as unfragmented IPv4 packets into rotated pcap files
type DumpWriter interface {
	inspector.DatagramSink
	Close() error
	Files() []string
}

type dumpFile struct {
	name    string
	fh      *os.File
	bw      *bufio.Writer
	zw      *gzip.Writer
	pw      *pcapgo.Writer
	written int
	packets int
}

type dumpWriterImpl struct {
	cfg     DumpConfig
	storage cloud_storage.CloudStorage
	lock    sync.Mutex
	current *dumpFile
	nFile   int
	files   []string
}

// NewDumpWriter
// files are opened lazily, finished files are handed to storage when it is set
func NewDumpWriter(cfg DumpConfig, storage cloud_storage.CloudStorage) DumpWriter {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = view.DefaultDumpFileSize
	}
	return &dumpWriterImpl{cfg: cfg, storage: storage}
}

func (dw *dumpWriterImpl) Name() string {
	return sinkName
}

// Consume
// appends the datagram as one packet
func (dw *dumpWriterImpl) Consume(d inspector.CompletedDatagram) error {
	if len(d.Payload)+header_decoder.MinHeaderLen > maxPacketLen {
		return fmt.Errorf("datagram %s of %d bytes does not fit a single packet", d.Key(), len(d.Payload))
	}
	header := d.Header
	header.MoreFragments = false
	header.FragmentOffset = 0
	packet, err := header_decoder.EncodeFragment(header, d.Payload, entities.OffsetUnitBytes)
	if err != nil {
		return err
	}
	dw.lock.Lock()
	defer dw.lock.Unlock()
	if dw.current == nil {
		if dw.current, err = dw.openFile(); err != nil {
			return err
		}
	}
	ci := gopacket.CaptureInfo{Timestamp: d.CompletedAt, CaptureLength: len(packet), Length: len(packet)}
	if err = dw.current.pw.WritePacket(ci, packet); err != nil {
		return fmt.Errorf("unable to write datagram %s into '%s'. Error: %v", d.Key(), dw.current.name, err)
	}
	dw.current.written += recordHeaderLen + len(packet)
	dw.current.packets++
	if dw.current.written >= dw.cfg.MaxFileSize {
		err = dw.closeFile()
	}
	return err
}

// Close
// finishes the current file
func (dw *dumpWriterImpl) Close() error {
	dw.lock.Lock()
	defer dw.lock.Unlock()
	return dw.closeFile()
}

// Files
// names of the finished dump files
func (dw *dumpWriterImpl) Files() []string {
	dw.lock.Lock()
	defer dw.lock.Unlock()
	ret := make([]string, len(dw.files))
	copy(ret, dw.files)
	return ret
}

func (dw *dumpWriterImpl) openFile() (*dumpFile, error) {
	nameSuffix := view.EmptyString // file name suffix empty by default
	if dw.cfg.Compression {
		nameSuffix = view.GzipSuffix // but have a value when file compression is on
	}
	fileBaseName := fmt.Sprintf("%s_%s_%02d%s", dw.cfg.SessionId, dw.cfg.InstanceId, dw.nFile, view.PcapSuffix)
	fileName := path.Join(dw.cfg.WorkDirectory, fileBaseName+nameSuffix)
	dw.nFile++
	fh, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s'. Error: '%v'", fileName, err)
	}
	log.Printf("Writing datagrams to the file '%s'", fileName)
	df := &dumpFile{name: fileName, fh: fh, bw: bufio.NewWriter(fh)}
	if dw.cfg.Compression {
		df.zw = gzip.NewWriter(df.bw)
		df.zw.Name = fileBaseName // set filename in archive metadata
		df.pw = pcapgo.NewWriter(df.zw)
	} else {
		df.pw = pcapgo.NewWriter(df.bw)
	}
	if err = df.pw.WriteFileHeader(maxPacketLen, layers.LinkTypeIPv4); err != nil {
		_ = fh.Close()
		return nil, fmt.Errorf("unable to write file header into '%s'. Error: %v", fileName, err)
	}
	df.written = fileHeaderLen
	return df, nil
}

func (dw *dumpWriterImpl) closeFile() error {
	df := dw.current
	if df == nil {
		return nil
	}
	dw.current = nil
	var err error
	if df.zw != nil {
		if err = df.zw.Close(); err != nil {
			log.Errorf("unable to close compressed stream. Error: '%v'", err)
		}
	}
	if flushErr := df.bw.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if closeErr := df.fh.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("unable to close '%s'. Error: '%v'", df.name, err)
	}
	log.Printf("%d datagrams written into '%s'", df.packets, df.name)
	dw.files = append(dw.files, df.name)
	if dw.storage != nil {
		dw.storage.StoreFile(df.name) // store finished file in s3/minio
	}
	return nil
}
