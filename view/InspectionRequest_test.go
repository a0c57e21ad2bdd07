package view

import (
	"crypto/md5"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRequestFingerprint(t *testing.T) {
	req := InspectionRequest{
		Filter:      "ip",
		Id:          "456",
		FrameCount:  1,
		Duration:    "1m59s",
		DateAndTime: EmptyString,
		SourceFile:  "frames.pcap",
	}
	s1 := getStringForSum(req)
	s2 := req.Filter + req.Id + fmt.Sprintf(printFormat, req.FrameCount, req.Duration, req.SnapshotLen) +
		req.DateAndTime + req.CaptureDevice + req.SourceFile
	assert.Equal(t, s1, s2, "getStringForSum")
	sum1 := fmt.Sprintf(hexMd5Format, md5.Sum([]byte(s2)))
	assert.Equal(t, sum1, GetRequestFingerprint(req), "direct md5")
	req.FrameCount = 2
	assert.NotEqual(t, sum1, GetRequestFingerprint(req), "fingerprint follows the content")
}

func TestCapStateToReqStatus(t *testing.T) {
	assert.Equal(t, RequestStatusRunning, CapStateToReqStatus(CapStateRunning))
	assert.Equal(t, RequestStatusStopped, CapStateToReqStatus(CapStateStopped))
	assert.Equal(t, RequestStatusNone, CapStateToReqStatus(CaptureState(100)))
	assert.True(t, CapStateStarting.IsActive())
	assert.False(t, CapStateCompleted.IsActive())
}
