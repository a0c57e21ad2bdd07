package view

import (
	"crypto/md5"
	"fmt"
)

const (
	printFormat  = "%d%s%d"
	hexMd5Format = "%x"
)

// InspectionRequest
// received inspection start/stop request
type InspectionRequest struct {
	Filter        string `json:"filter,omitempty"`
	Id            string `json:"id,omitempty"`
	FrameCount    int    `json:"frame_count,omitempty"`
	Duration      string `json:"duration,omitempty"`
	DateAndTime   string `json:"time_stamp,omitempty"`
	CaptureDevice string `json:"capture_device,omitempty"`
	SnapshotLen   int    `json:"snapshot_len,omitempty"`
	SourceFile    string `json:"source_file,omitempty"`
}

// getStringForSum
// get unified string from stored data to compute request fingerprint
func getStringForSum(req InspectionRequest) string {
	return req.Filter + req.Id +
		fmt.Sprintf(printFormat, req.FrameCount, req.Duration, req.SnapshotLen) +
		req.DateAndTime + req.CaptureDevice + req.SourceFile
}

// GetRequestFingerprint
// compute a fingerprint on inspection request, used to detect duplicated sessions
func GetRequestFingerprint(req InspectionRequest) string {
	return fmt.Sprintf(hexMd5Format, md5.Sum([]byte(getStringForSum(req))))
}
