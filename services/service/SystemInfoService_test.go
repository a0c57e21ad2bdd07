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

package service

import (
	"testing"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var knownVariables = []string{
	ListenAddress, OriginAllowed, MinioAccessKeyId, MinioSecretAccessKey, MinioCrt, MinioEndpoint,
	MinioBucketName, MinioStorageActive, CaptureInterface, CaptureDirectory, CaptureSnapLen,
	CaptureFileCompression, ReassemblyTimeout, ReassemblySweepInterval, ReassemblyOffsetUnit,
	ReassemblyOverlapPolicy, RecentCacheSize, RecentCacheTTL, ArchiveActive, DumpActive, DbDriver,
	DbHost, DbPort, DbUser, DbPassword, DbName, NotifyURL, NotifyApiKey, NotifyQueueSize, NotifyTimeout,
	APIkey, ProductionMode,
}

// setEnvironment clears every known variable and sets the given ones
func setEnvironment(t *testing.T, values map[string]string) {
	for _, name := range knownVariables {
		t.Setenv(name, values[name])
	}
}

func TestSystemInfoDefaults(t *testing.T) {
	setEnvironment(t, map[string]string{
		ListenAddress:    ":8080",
		APIkey:           "key",
		CaptureDirectory: "/tmp",
	})
	s, err := NewSystemInfoService()
	require.NoError(t, err)
	assert.Equal(t, ":8080", s.GetListenAddress())
	assert.Equal(t, int64(8080), s.GetInt64(EndPointPort, 0))
	assert.Equal(t, DefaultEndpointProtocol, s.GetString(EndPointProto))
	assert.True(t, s.GetBool(ProductionMode))

	cfg := s.GetInspectorConfig()
	assert.Equal(t, view.CaptureInterfaceAny, cfg.NetworkInterface)
	assert.Equal(t, "/tmp", cfg.WorkDirectory)
	assert.Equal(t, view.DefaultSnapLenBytes, cfg.SnapshotLen)
	assert.Equal(t, s.GetInstanceId(), cfg.InstanceId)
	assert.False(t, cfg.DumpActive)
	assert.False(t, cfg.ArchiveActive)
	assert.Equal(t, entities.DefaultReassemblyConfig(), cfg.Reassembly)

	assert.Equal(t, entities.InspectorControllerConfig{APIkey: "key", ProductionMode: true}, s.GetInspectorControllerConfig())
	assert.Equal(t, entities.RecentCacheConfig{}, s.GetRecentCacheConfig())
	dbCfg := s.GetDatagramLogConfig()
	assert.Empty(t, dbCfg.Driver)
	assert.Equal(t, DefaultDbPort, dbCfg.Port)
	notify := s.GetNotificationConfig()
	assert.False(t, notify.Enabled())
	assert.Equal(t, entities.DefaultNotifyQueueSize, notify.QueueSize)
	assert.Equal(t, entities.DefaultNotifyTimeout, notify.Timeout)
	creds, err := s.GetMinioCredentials()
	require.NoError(t, err)
	assert.False(t, creds.IsActive)
	assert.True(t, creds.CompressBeforeUpload)
}

func TestSystemInfoValues(t *testing.T) {
	setEnvironment(t, map[string]string{
		ListenAddress:           "https://inspector:9443",
		ProductionMode:          "false",
		CaptureSnapLen:          "1500",
		CaptureFileCompression:  "true",
		DumpActive:              "true",
		ArchiveActive:           "1",
		ReassemblyTimeout:       "2m",
		ReassemblySweepInterval: "10s",
		ReassemblyOffsetUnit:    "octets8",
		ReassemblyOverlapPolicy: "reject-conflict",
		RecentCacheSize:         "500",
		RecentCacheTTL:          "1h",
		DbDriver:                "postgres",
		DbHost:                  "db",
		DbPort:                  "5433",
		DbName:                  "inspector",
		NotifyURL:               "http://collector:8080/events",
		NotifyApiKey:            "hook",
		NotifyQueueSize:         "16",
		NotifyTimeout:           "2s",
		MinioStorageActive:      "true",
		MinioEndpoint:           "https://minio:9000",
		MinioBucketName:         "dumps",
	})
	s, err := NewSystemInfoService()
	require.NoError(t, err)
	assert.Equal(t, "https://", s.GetString(EndPointProto))
	assert.Equal(t, "inspector", s.GetString(EndPointHost))
	assert.Equal(t, int64(9443), s.GetInt64(EndPointPort, 0))
	assert.Empty(t, s.GetApiKey())

	cfg := s.GetInspectorConfig()
	assert.Equal(t, 1500, cfg.SnapshotLen)
	assert.True(t, cfg.OutputFileCompression)
	assert.True(t, cfg.DumpActive)
	assert.True(t, cfg.ArchiveActive)
	assert.Equal(t, entities.ReassemblyConfig{
		OffsetUnit:    entities.OffsetUnitOctets8,
		OverlapPolicy: entities.OverlapRejectConflict,
		Timeout:       2 * time.Minute,
		SweepInterval: 10 * time.Second,
	}, cfg.Reassembly)
	assert.Equal(t, entities.RecentCacheConfig{Capacity: 500, TTL: time.Hour}, s.GetRecentCacheConfig())
	assert.Equal(t, entities.DatagramLogConfig{Driver: "postgres", Host: "db", Port: 5433, DbName: "inspector"}, s.GetDatagramLogConfig())
	assert.Equal(t, entities.NotificationConfig{
		URL:       "http://collector:8080/events",
		APIkey:    "hook",
		QueueSize: 16,
		Timeout:   2 * time.Second,
	}, s.GetNotificationConfig())
	creds, err := s.GetMinioCredentials()
	require.NoError(t, err)
	assert.True(t, creds.IsActive)
	assert.False(t, creds.CompressBeforeUpload)
	assert.Equal(t, "dumps", creds.BucketName)
}

func TestSystemInfoErrors(t *testing.T) {
	base := map[string]string{ListenAddress: ":8080", ProductionMode: "false"}
	cases := map[string]map[string]string{
		"empty key in production": {ProductionMode: "true"},
		"no listen address":       {ListenAddress: ""},
		"offset unit":             {ReassemblyOffsetUnit: "words"},
		"overlap policy":          {ReassemblyOverlapPolicy: "random"},
		"timeout format":          {ReassemblyTimeout: "soon"},
		"negative timeout":        {ReassemblyTimeout: "-1s"},
		"snapshot format":         {CaptureSnapLen: "big"},
		"negative cache size":     {RecentCacheSize: "-5"},
		"notify url":              {NotifyURL: "ftp://collector"},
		"unknown interface":       {CaptureInterface: "no-such-interface0"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			values := make(map[string]string)
			for k, v := range base {
				values[k] = v
			}
			for k, v := range override {
				values[k] = v
			}
			setEnvironment(t, values)
			_, err := NewSystemInfoService()
			assert.Error(t, err)
		})
	}
}

func TestMinioCredentialsRequireEndpoint(t *testing.T) {
	setEnvironment(t, map[string]string{
		ListenAddress:      ":8080",
		ProductionMode:     "false",
		MinioStorageActive: "true",
	})
	s, err := NewSystemInfoService()
	require.NoError(t, err)
	_, err = s.GetMinioCredentials()
	assert.Error(t, err)
}
