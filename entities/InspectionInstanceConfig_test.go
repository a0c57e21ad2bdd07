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
	"testing"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/stretchr/testify/assert"
)

const testFilter = "ip[6:2] & 0x3fff != 0"

func TestMakeInspectionInstanceConfig(t *testing.T) {
	defaults := InspectorServiceConfig{NetworkInterface: "eth0", WorkDirectory: "/tmp"}
	_, err := MakeInspectionInstanceConfig(view.InspectionRequest{}, defaults)
	assert.NoError(t, err) // no conversion error on empty data
	extReq := view.InspectionRequest{
		Filter:      testFilter,
		Id:          "session-1",
		FrameCount:  1,
		Duration:    "1m30s",
		SnapshotLen: 1500,
	}
	intReq, err := MakeInspectionInstanceConfig(extReq, defaults)
	assert.NoError(t, err)
	assert.Equal(t, VrValidated, intReq.Status)
	assert.Equal(t, testFilter, intReq.Filter)
	assert.Equal(t, time.Minute+30*time.Second, intReq.Duration) // duration converted
	assert.Equal(t, "eth0", intReq.NetworkInterface)             // default interface kept
	assert.Equal(t, 1500, intReq.SnapshotLen)
	assert.Equal(t, "/tmp", intReq.WorkDirectory)
	assert.NotEmpty(t, intReq.Fingerprint)
	back := ConvertToInspectionRequest(intReq)
	assert.Equal(t, extReq.Filter, back.Filter)
	assert.Equal(t, "1m30s", back.Duration)
	assert.Equal(t, intReq.Fingerprint, view.GetRequestFingerprint(back))
}

func TestMakeInspectionInstanceConfigGeneratesId(t *testing.T) {
	intReq, err := MakeInspectionInstanceConfig(view.InspectionRequest{SourceFile: "in.pcap"}, InspectorServiceConfig{})
	assert.NoError(t, err)
	assert.Equal(t, VrIdGenerated, intReq.Status)
	assert.NotEmpty(t, intReq.Id)
	assert.Equal(t, view.DefaultSnapLenBytes, intReq.SnapshotLen)
	assert.Equal(t, view.DefaultCaptureDuration, intReq.Duration)
}

func TestMakeInspectionInstanceConfigLimits(t *testing.T) {
	_, err := MakeInspectionInstanceConfig(view.InspectionRequest{Duration: "1s"}, InspectorServiceConfig{})
	assert.Error(t, err)
	// offline sources are not bound by the minimal duration
	_, err = MakeInspectionInstanceConfig(view.InspectionRequest{Duration: "1s", SourceFile: "in.pcap"}, InspectorServiceConfig{})
	assert.NoError(t, err)
	long := make([]byte, view.FilterMaxLength+1)
	for i := range long {
		long[i] = 'a'
	}
	res, err := MakeInspectionInstanceConfig(view.InspectionRequest{Filter: string(long)}, InspectorServiceConfig{})
	assert.Error(t, err)
	assert.Equal(t, VrFilterTooLong, res.Status)
	_, err = MakeInspectionInstanceConfig(view.InspectionRequest{Duration: "forever"}, InspectorServiceConfig{})
	assert.Error(t, err)
}

func TestInspectionConfigurationEqual(t *testing.T) {
	a, _ := MakeInspectionInstanceConfig(view.InspectionRequest{Id: "a", Filter: "ip"}, InspectorServiceConfig{})
	b, _ := MakeInspectionInstanceConfig(view.InspectionRequest{Id: "b", Filter: "ip"}, InspectorServiceConfig{})
	assert.True(t, InspectionConfigurationEqual(a, b))
	b.SourceFile = "in.pcap"
	assert.False(t, InspectionConfigurationEqual(a, b))
}
