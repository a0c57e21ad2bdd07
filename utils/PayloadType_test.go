package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPayloadType(t *testing.T) {
	assert.Equal(t, PTHttpReq, DetectPayloadType([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")))
	assert.Equal(t, PTHttpResp, DetectPayloadType([]byte("HTTP/1.1 200 OK\r\n\r\n")))
	assert.Equal(t, PTText, DetectPayloadType([]byte("First part. Middle part. Last part.")))
	assert.Equal(t, PTBinary, DetectPayloadType([]byte{0, 1, 2, 3, 0xff}))
	assert.Equal(t, PTBinary, DetectPayloadType(nil))
	assert.Equal(t, "http-request", PTHttpReq.String())
}

func TestPayloadPreview(t *testing.T) {
	assert.Equal(t, "ab.c", PayloadPreview([]byte{'a', 'b', 0, 'c'}, 10))
	assert.Equal(t, "abc...", PayloadPreview([]byte("abcdef"), 3))
	assert.Equal(t, "", PayloadPreview([]byte("abcdef"), 0))
}

func TestMakeUniqueId(t *testing.T) {
	a, b := MakeUniqueId(), MakeUniqueId()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
