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

package capture

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/frame_decoder"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	log "github.com/sirupsen/logrus"
)

const (
	// liveReadTimeout how long a live read blocks before the stop conditions are rechecked
	liveReadTimeout = time.Millisecond * 500
	tmpSuffix       = ".tmp"
)

// frameSource
// an opened frame source and its cleanup
type frameSource struct {
	gopacket.PacketDataSource
	description string
	live        bool
	linkType    layers.LinkType
	close       func()
}

func (s *frameSource) LinkType() layers.LinkType {
	return s.linkType
}

// liveSource
// hides read timeouts of a live handle until ctx is done
type liveSource struct {
	ctx    context.Context
	handle *pcap.Handle
}

func (s *liveSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	for {
		data, ci, err := s.handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			if s.ctx.Err() != nil {
				return nil, ci, io.EOF
			}
			continue
		}
		return data, ci, err
	}
}

// openSource
// opens the configured capture file or network interface and applies the filter
func openSource(ctx context.Context, cfg entities.InspectionInstanceConfig) (*frameSource, error) {
	var (
		handle *pcap.Handle
		err    error
		src    = &frameSource{close: func() {}}
	)
	if cfg.SourceFile != view.EmptyString {
		fileName := cfg.SourceFile
		if strings.HasSuffix(fileName, view.GzipSuffix) {
			if fileName, err = decompressToTemp(cfg.SourceFile, cfg.WorkDirectory); err != nil {
				return nil, err
			}
			tmpName := fileName
			src.close = func() {
				if err := os.Remove(tmpName); err != nil {
					log.Warnf("unable to remove intermediate file '%s'. Error: %v", tmpName, err)
				}
			}
		}
		handle, err = pcap.OpenOffline(fileName)
		if err != nil {
			src.close()
			return nil, fmt.Errorf("unable to open capture file '%s'. Error: '%v'", cfg.SourceFile, err)
		}
		src.description = cfg.SourceFile
		src.PacketDataSource = handle
	} else {
		handle, err = pcap.OpenLive(cfg.NetworkInterface, int32(cfg.SnapshotLen), true, liveReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("unable to open capture at '%s'. Error: '%v'", cfg.NetworkInterface, err)
		}
		src.description = cfg.NetworkInterface
		src.live = true
		src.PacketDataSource = &liveSource{ctx: ctx, handle: handle}
	}
	cleanup := src.close
	src.close = func() {
		handle.Close()
		cleanup()
	}
	if cfg.Filter != view.EmptyString {
		log.Debugf("Filter to compile: '%s'", cfg.Filter)
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			src.close()
			return nil, fmt.Errorf("unable to set filter '%s'. Error: '%v'", cfg.Filter, err)
		}
		log.Printf("Using filter: '%s'", cfg.Filter)
	}
	src.linkType = handle.LinkType()
	if err := frame_decoder.CheckLinkType(src.linkType); err != nil {
		src.close()
		return nil, fmt.Errorf("unable to inspect '%s'. Error: '%v'", src.description, err)
	}
	log.Printf("Reading frames from '%s', link type %s", src.description, src.linkType)
	return src, nil
}

// decompressToTemp
// libpcap reads plain files only
func decompressToTemp(fileName, workDir string) (string, error) {
	fh, err := os.Open(fileName)
	if err != nil {
		return view.EmptyString, fmt.Errorf("unable to open file '%s'. Error: %v", fileName, err)
	}
	defer func(fh *os.File) {
		_ = fh.Close()
	}(fh)
	zr, err := gzip.NewReader(fh)
	if err != nil {
		return view.EmptyString, fmt.Errorf("unable to uncompress file %s. Error: %v", fileName, err)
	}
	defer func(zr *gzip.Reader) {
		if err := zr.Close(); err != nil {
			log.Errorf("unable to close compressed file %s. Error: %v", fileName, err)
		}
	}(zr)
	if workDir == view.EmptyString {
		workDir = os.TempDir()
	}
	fth, err := os.CreateTemp(workDir, filepath.Base(strings.TrimSuffix(fileName, view.GzipSuffix))+"*"+tmpSuffix)
	if err != nil {
		return view.EmptyString, fmt.Errorf("unable to create intermediate file. Error: %v", err)
	}
	_, err = io.Copy(fth, zr)
	if closeErr := fth.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fth.Name())
		return view.EmptyString, fmt.Errorf("unable to write uncompressed data of '%s'. Error: %v", fileName, err)
	}
	return fth.Name(), nil
}

// LocalAddrMap - list local addresses
// returns a map of IPv4/IPv6 -> interface name
func LocalAddrMap() (map[string]string, error) {
	localAddrMap := make(map[string]string)
	interfaces, err := net.Interfaces()
	if err != nil {
		return localAddrMap, err
	}
	rea := regexp.MustCompile(`^([^/]+)/([^/]+)$`)
	for _, i := range interfaces {
		addresses, err := i.Addrs()
		if err != nil {
			log.Debugf("unable to get addresses for interface %s, error: %v", i.Name, err)
			continue
		}
		for _, a := range addresses {
			if parts := rea.FindStringSubmatch(a.String()); parts != nil {
				localAddrMap[parts[1]] = i.Name // without mask length
			} else {
				localAddrMap[a.String()] = i.Name
			}
		}
	}
	if len(localAddrMap) == 0 {
		return localAddrMap, fmt.Errorf("no IPv4 or IPv6 address detected")
	}
	return localAddrMap, nil
}

// LocalInterfaces - list local interfaces into string array
// skip interfaces without IP address if parameter is false
func LocalInterfaces(all bool) ([]string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	res := make(map[string]string)
	ipre := regexp.MustCompile(`(?m)(\d+\.){3}(\d+)`)
	for _, i := range interfaces {
		if all {
			res[i.Name] = "All"
			continue
		}
		addresses, err := i.Addrs()
		if err != nil {
			continue
		}
		if (i.Flags&net.FlagLoopback) == net.FlagLoopback || (i.Flags&net.FlagMulticast) != net.FlagMulticast {
			continue // skip loop-back or tunnel interfaces
		}
		if strings.HasPrefix(i.Name, "tun") || strings.HasPrefix(i.Name, "docker") {
			continue // skip tunnel or docker interfaces
		}
		for _, a := range addresses {
			if ipre.MatchString(a.String()) {
				res[i.Name] = a.String()
			}
		}
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no interface with IPv4 or IPv6 detected")
	}
	ret := make([]string, 0, len(res))
	for v := range res {
		ret = append(ret, v)
	}
	sort.Strings(ret)
	return ret, nil
}

// interfaceCache
// host interfaces change rarely, the HTTP API lists them on every call
type interfaceCache struct {
	entities.CachedItem
	lock       sync.Mutex
	interfaces []string
	err        error
}

var interfaces interfaceCache

// CachedLocalInterfaces
// LocalInterfaces(true) refreshed at most once per entities.InterfaceListTTL
func CachedLocalInterfaces() ([]string, error) {
	interfaces.lock.Lock()
	defer interfaces.lock.Unlock()
	if now := time.Now(); interfaces.NeedUpdate(now) {
		interfaces.interfaces, interfaces.err = LocalInterfaces(true)
		interfaces.Update(now, interfaces.err)
	}
	ret := make([]string, len(interfaces.interfaces))
	copy(ret, interfaces.interfaces)
	return ret, interfaces.err
}
