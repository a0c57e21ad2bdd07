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

package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	log "github.com/sirupsen/logrus"
)

type ValidationResult int

const (
	VrNotValid ValidationResult = iota
	VrIdGenerated
	VrFilterTooLong
	VrDurationTooShort
	VrValidated
)
const (
	dateFormat = "2006-01-02T15:04:05"
)

// InspectionInstanceConfig
// inspection request parameters for internal usage
type InspectionInstanceConfig struct {
	InspectorServiceConfig
	Filter      string
	Id          string
	FrameCount  int
	Duration    time.Duration
	DateAndTime time.Time
	SourceFile  string
	Fingerprint string
	Status      ValidationResult
}

// MakeInspectionInstanceConfig
// converts externally sent input parameters into internally used
func MakeInspectionInstanceConfig(request view.InspectionRequest, defaults InspectorServiceConfig) (InspectionInstanceConfig, error) {
	var err error
	ret := InspectionInstanceConfig{
		InspectorServiceConfig: defaults,
		Filter:                 request.Filter,
		Id:                     request.Id,
		FrameCount:             request.FrameCount,
		SourceFile:             request.SourceFile,
		Status:                 VrNotValid,
	}
	if request.SnapshotLen > 0 {
		ret.SnapshotLen = request.SnapshotLen
	}
	if ret.SnapshotLen <= 0 {
		ret.SnapshotLen = view.DefaultSnapLenBytes
	}
	if request.CaptureDevice != view.EmptyString {
		ret.NetworkInterface = request.CaptureDevice
	}
	if request.Duration != view.EmptyString {
		ret.Duration, err = time.ParseDuration(request.Duration)
	} else {
		ret.Duration = view.DefaultCaptureDuration
	}
	if err == nil && len(request.DateAndTime) >= len(dateFormat) {
		ret.DateAndTime, err = time.Parse(dateFormat, request.DateAndTime)
	}
	if err != nil {
		return ret, err
	}
	if ret.DateAndTime.IsZero() {
		ret.DateAndTime = time.Now()
	}
	ret.Status = validateRequest(&ret)
	switch ret.Status {
	case VrFilterTooLong:
		err = fmt.Errorf("capture filter exceeds %d bytes", view.FilterMaxLength)
	case VrDurationTooShort:
		err = fmt.Errorf("inspection duration %v is shorter than %v", ret.Duration, view.MinCaptureDuration)
	}
	if err == nil {
		ret.Fingerprint = view.GetRequestFingerprint(ConvertToInspectionRequest(ret))
	}
	return ret, err
}

// ConvertToInspectionRequest
// converts internal parameters to external representation
func ConvertToInspectionRequest(request InspectionInstanceConfig) view.InspectionRequest {
	return view.InspectionRequest{
		Filter:        request.Filter,
		Id:            request.Id,
		FrameCount:    request.FrameCount,
		Duration:      request.Duration.String(),
		DateAndTime:   request.DateAndTime.Format(dateFormat),
		CaptureDevice: request.NetworkInterface,
		SnapshotLen:   request.SnapshotLen,
		SourceFile:    request.SourceFile,
	}
}

// validateRequest
// checks request limits, generates a session ID when none was sent
func validateRequest(req *InspectionInstanceConfig) ValidationResult {
	if len(req.Filter) > view.FilterMaxLength {
		return VrFilterTooLong
	}
	// offline sources end on their own, a live capture must run long enough to be useful
	if req.SourceFile == view.EmptyString && req.Duration > 0 && req.Duration < view.MinCaptureDuration {
		return VrDurationTooShort
	}
	if req.Id == view.EmptyString {
		req.Id = utils.MakeUniqueId()
		log.Debugf("no inspection id sent, generated %s", req.Id)
		return VrIdGenerated
	}
	return VrValidated
}

func InspectionConfigurationEqual(cfg1, cfg2 InspectionInstanceConfig) bool {
	return cfg1.Duration == cfg2.Duration &&
		cfg1.Filter == cfg2.Filter &&
		cfg1.FrameCount == cfg2.FrameCount &&
		strings.Join([]string{cfg1.NetworkInterface, cfg1.SourceFile}, view.ArrayJoinSeparator) ==
			strings.Join([]string{cfg2.NetworkInterface, cfg2.SourceFile}, view.ArrayJoinSeparator) &&
		cfg1.SnapshotLen == cfg2.SnapshotLen
}
