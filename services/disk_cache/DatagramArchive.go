package disk_cache

import (
	"sort"
	"strings"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	log "github.com/sirupsen/logrus"
)

const (
	archiveCacheName = "datagram_archive_"
	archiveSinkName  = "archive"
)

// DatagramArchive
// keeps payloads of completed datagrams on local disk for later download
type DatagramArchive interface {
	inspector.DatagramSink
	GetPayload(key string) ([]byte, bool, error)
	SessionKeys(sessionId string) ([]string, error)
	Count() int
	Close() error
}

type datagramArchive struct {
	cache DiskCache
}

// NewDatagramArchive
// creates an archive under workDir
func NewDatagramArchive(workDir string) (DatagramArchive, error) {
	dc, err := NewDiskCache(archiveCacheName, workDir)
	if err != nil {
		return nil, err
	}
	return &datagramArchive{cache: dc}, nil
}

func (a *datagramArchive) Name() string {
	return archiveSinkName
}

func (a *datagramArchive) Consume(d inspector.CompletedDatagram) error {
	return a.cache.StoreItem(d.Key(), d.Payload)
}

// GetPayload
// payload bytes and whether the key is archived
func (a *datagramArchive) GetPayload(key string) ([]byte, bool, error) {
	found, err := a.cache.HasItem(key)
	if err != nil || !found {
		return nil, false, err
	}
	val, err := a.cache.GetItem(key)
	if err != nil {
		return nil, false, err
	}
	if val == nil {
		val = []byte{}
	}
	return val, true, nil
}

// SessionKeys
// sorted keys of datagrams archived for the session
func (a *datagramArchive) SessionKeys(sessionId string) ([]string, error) {
	prefix := sessionId + inspector.KeySeparator
	var keys []string
	err := a.cache.Iterate(func(key string, _ []byte) error {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

func (a *datagramArchive) Count() int {
	return a.cache.Count()
}

func (a *datagramArchive) Close() error {
	n := a.cache.Sync()
	log.Debugf("closing datagram archive with %d items", n)
	return a.cache.Close()
}
