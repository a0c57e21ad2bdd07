package disk_cache

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cacheTestName = "disk_cache_test"
)

func TestNewDiskCache(t *testing.T) {
	dirName := t.TempDir()
	dc, err := NewDiskCache(cacheTestName, dirName)
	require.NoError(t, err)
	require.NotNil(t, dc)
	err = dc.StoreItem(cacheTestName, []byte("first"))
	assert.NoError(t, err)
	err = dc.StoreItem(cacheTestName, []byte("second"))
	assert.NoError(t, err)
	itemBytes, err := dc.GetItem(cacheTestName)
	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), itemBytes)
	assert.Equal(t, 1, dc.Count())
	missing, err := dc.GetItem("missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.Error(t, dc.StoreItem("", []byte("x")))

	assert.NoError(t, dc.StoreItem("other", []byte("third")))
	seen := make(map[string]string)
	assert.NoError(t, dc.Iterate(func(key string, value []byte) error {
		seen[key] = string(value)
		return nil
	}))
	assert.Equal(t, map[string]string{cacheTestName: "second", "other": "third"}, seen)
	assert.Equal(t, 2, dc.Sync())

	err = dc.Close()
	assert.NoError(t, err)
	assert.Error(t, dc.Close())
	files, err := os.ReadDir(dirName)
	assert.NoError(t, err)
	objCount := 0
	for _, file := range files {
		if strings.HasPrefix(file.Name(), cacheTestName) {
			objCount++
		}
	}
	assert.Equal(t, 0, objCount)
}

func TestDatagramArchive(t *testing.T) {
	archive, err := NewDatagramArchive(t.TempDir())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, archive.Close())
	}()
	assert.Equal(t, "archive", archive.Name())
	for i := 1; i <= 3; i++ {
		d := inspector.CompletedDatagram{
			SessionId: "s1",
			Seq:       i,
			Datagram:  &reassembly.Datagram{Payload: []byte(fmt.Sprintf("payload %d", i))},
		}
		require.NoError(t, archive.Consume(d))
	}
	require.NoError(t, archive.Consume(inspector.CompletedDatagram{SessionId: "s2", Seq: 1, Datagram: &reassembly.Datagram{}}))
	assert.Equal(t, 4, archive.Count())

	payload, found, err := archive.GetPayload(inspector.MakeDatagramKey("s1", 2))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "payload 2", string(payload))
	payload, found, err = archive.GetPayload(inspector.MakeDatagramKey("s2", 1))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, payload)
	_, found, err = archive.GetPayload("s9_000001")
	assert.NoError(t, err)
	assert.False(t, found)

	keys, err := archive.SessionKeys("s1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"s1_000001", "s1_000002", "s1_000003"}, keys)
}
