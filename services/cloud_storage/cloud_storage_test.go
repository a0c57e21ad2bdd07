package cloud_storage

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "dump_00.pcap")
	require.NoError(t, os.WriteFile(name, []byte("pcap contents"), 0644))
	compressed, err := compressFile(name)
	require.NoError(t, err)
	assert.Equal(t, name+".gz", compressed)
	fh, err := os.Open(compressed)
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	assert.Equal(t, "dump_00.pcap", zr.Name)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "pcap contents", string(body))

	_, err = compressFile(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestInactiveStorageKeepsFiles(t *testing.T) {
	name := filepath.Join(t.TempDir(), "dump_00.pcap")
	require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	s3 := NewCloudStorage(entities.MinioStorageCreds{IsActive: false}, true)
	s3.StoreFile(name)
	s3.Stop()
	s3.Stop()
	assert.Equal(t, 0, s3.Uploaded())
	_, err := os.Stat(name)
	assert.NoError(t, err)
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("http://minio:9000")
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)
	host, secure = splitEndpoint("https://minio:9000")
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
	host, secure = splitEndpoint("minio:9000")
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}
