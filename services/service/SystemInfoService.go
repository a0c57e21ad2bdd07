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
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/capture"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	log "github.com/sirupsen/logrus"
)

const (
	ListenAddress           = "LISTEN_ADDRESS"
	OriginAllowed           = "ORIGIN_ALLOWED"
	MinioAccessKeyId        = "STORAGE_SERVER_USERNAME"
	MinioSecretAccessKey    = "STORAGE_SERVER_PASSWORD"
	MinioCrt                = "STORAGE_SERVER_CRT"
	MinioEndpoint           = "STORAGE_SERVER_URL"
	MinioBucketName         = "STORAGE_SERVER_BUCKET_NAME"
	MinioStorageActive      = "MINIO_STORAGE_ACTIVE"
	CaptureInterface        = "CAPTURE_INTERFACE"
	CaptureDirectory        = "CAPTURE_DIRECTORY"
	CaptureSnapLen          = "CAPTURE_SNAPSHOT_LEN"
	CaptureFileCompression  = "CAPTURE_FILE_COMPRESSION"
	ReassemblyTimeout       = "REASSEMBLY_TIMEOUT"
	ReassemblySweepInterval = "REASSEMBLY_SWEEP_INTERVAL"
	ReassemblyOffsetUnit    = "REASSEMBLY_OFFSET_UNIT"
	ReassemblyOverlapPolicy = "REASSEMBLY_OVERLAP_POLICY"
	RecentCacheSize         = "RECENT_CACHE_SIZE"
	RecentCacheTTL          = "RECENT_CACHE_TTL"
	ArchiveActive           = "ARCHIVE_ACTIVE"
	DumpActive              = "DUMP_ACTIVE"
	DbDriver                = "DB_DRIVER"
	DbHost                  = "DB_HOST"
	DbPort                  = "DB_PORT"
	DbUser                  = "DB_USER"
	DbPassword              = "DB_PASSWORD"
	DbName                  = "DB_NAME"
	NotifyURL               = "NOTIFY_URL"
	NotifyApiKey            = "NOTIFY_API_KEY"
	NotifyQueueSize         = "NOTIFY_QUEUE_SIZE"
	NotifyTimeout           = "NOTIFY_TIMEOUT"
	APIkey                  = "INSPECTOR_API_KEY"
	ProductionMode          = "PRODUCTION_MODE"
	EndPointProto           = "ENDPOINT_PROTOCOL" // http:// or https://
	EndPointPort            = "ENDPOINT_PORT"     // 80,8080,...
	EndPointHost            = "ENDPOINT_HOST"
	CfgDefaultPort          = 8080 // default port number
	DefaultEndpointProtocol = "http://"
	DefaultDbPort           = 5432
)

type SystemInfoService interface {
	Init() error
	GetListenAddress() string
	GetOriginAllowed() string
	GetString(name string) string
	GetInt64(name string, defVal int64) int64
	GetBool(name string) bool
	GetDuration(name string, defVal time.Duration) time.Duration
	GetMinioCredentials() (*entities.MinioStorageCreds, error)
	GetInstanceId() string
	GetInspectorConfig() entities.InspectorServiceConfig
	GetRecentCacheConfig() entities.RecentCacheConfig
	GetDatagramLogConfig() entities.DatagramLogConfig
	GetNotificationConfig() entities.NotificationConfig
	GetApiKey() string
	GetInspectorControllerConfig() entities.InspectorControllerConfig
}

// common functions

// NewSystemInfoService
// creates an interface instance
func NewSystemInfoService() (SystemInfoService, error) {
	s := &systemInfoServiceImpl{
		systemInfoMap: make(map[string]interface{}),
		instanceId:    utils.MakeUniqueId(),
	}
	log.Printf("instance ID:%s", s.instanceId)
	if err := s.Init(); err != nil {
		log.Error("Failed to read system info: " + err.Error())
		return nil, err
	}
	return s, nil
}

// systemInfoServiceImpl an interface implementation
type systemInfoServiceImpl struct {
	systemInfoMap map[string]interface{} // parameters
	instanceId    string
}

// extractBoolDef
// extracts bool value from string with default value
func extractBoolDef(v string, defVal bool) bool {
	if v == view.EmptyString {
		return defVal
	}
	val, err := strconv.ParseBool(v)
	if err != nil {
		return defVal
	}
	return val
}

// extractBool
// extracts bool value from string. error, empty or absent value means 'false'
func extractBool(v string) bool {
	return extractBoolDef(v, false)
}

// extractInt
// stores a non-negative integer variable when it is set
func (g systemInfoServiceImpl) extractInt(name string) error {
	v := os.Getenv(name)
	if v == view.EmptyString {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("improper number format for %s => '%s' (%v)", name, v, err)
	}
	if n < 0 {
		return fmt.Errorf("negative value of %s (%s) is not allowed", name, v)
	}
	g.systemInfoMap[name] = n
	return nil
}

// extractDuration
// stores a positive duration variable when it is set
func (g systemInfoServiceImpl) extractDuration(name string) error {
	v := os.Getenv(name)
	if v == view.EmptyString {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("improper duration format for %s => '%s' (%v)", name, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got '%s'", name, v)
	}
	g.systemInfoMap[name] = d
	return nil
}

// selectInterface
// resolves the configured capture interface name
func selectInterface(iface string) (string, error) {
	switch iface {
	case view.EmptyString:
		return view.CaptureInterfaceAny, nil
	case view.CaptureInterfaceAny:
		return iface, nil
	case view.CaptureInterfaceDetect:
		// get the first interface with an IPv4 or IPv6 address
		aInterfaceList, err := capture.LocalInterfaces(false)
		if err != nil {
			return view.EmptyString, err
		}
		return aInterfaceList[0], nil
	}
	// ensure that the given value is an interface name
	aInterfaceList, err := capture.LocalInterfaces(true)
	if err != nil {
		return view.EmptyString, err
	}
	for _, v := range aInterfaceList {
		if iface == v {
			return iface, nil
		}
	}
	return view.EmptyString, fmt.Errorf("unknown interface '%s'", iface)
}

// interface functions

// Init
// loads configuration from the environment
func (g systemInfoServiceImpl) Init() error {
	// production mode (enable by default)
	g.systemInfoMap[ProductionMode] = extractBoolDef(os.Getenv(ProductionMode), true)
	// configuration parameters without validation
	g.systemInfoMap[OriginAllowed] = os.Getenv(OriginAllowed)
	// capture
	iface, err := selectInterface(os.Getenv(CaptureInterface))
	if err != nil {
		return err
	}
	// an interface selected or set to CaptureInterfaceAny
	g.systemInfoMap[CaptureInterface] = iface
	g.systemInfoMap[CaptureDirectory] = os.Getenv(CaptureDirectory)
	g.systemInfoMap[CaptureFileCompression] = extractBool(os.Getenv(CaptureFileCompression))
	g.systemInfoMap[DumpActive] = extractBool(os.Getenv(DumpActive))
	g.systemInfoMap[ArchiveActive] = extractBool(os.Getenv(ArchiveActive))
	// reassembly
	offsetUnit, err := entities.ParseOffsetUnit(os.Getenv(ReassemblyOffsetUnit))
	if err != nil {
		return err
	}
	g.systemInfoMap[ReassemblyOffsetUnit] = offsetUnit
	overlapPolicy, err := entities.ParseOverlapPolicy(os.Getenv(ReassemblyOverlapPolicy))
	if err != nil {
		return err
	}
	g.systemInfoMap[ReassemblyOverlapPolicy] = overlapPolicy
	for _, name := range []string{ReassemblyTimeout, ReassemblySweepInterval, RecentCacheTTL, NotifyTimeout} {
		if err = g.extractDuration(name); err != nil {
			return err
		}
	}
	for _, name := range []string{CaptureSnapLen, RecentCacheSize, DbPort, NotifyQueueSize} {
		if err = g.extractInt(name); err != nil {
			return err
		}
	}
	// datagram log
	for _, name := range []string{DbDriver, DbHost, DbUser, DbPassword, DbName} {
		g.systemInfoMap[name] = os.Getenv(name)
	}
	// webhook
	notifyURL, err := entities.ValidateNotifyURL(os.Getenv(NotifyURL))
	if err != nil {
		return fmt.Errorf("invalid %s: %v", NotifyURL, err)
	}
	g.systemInfoMap[NotifyURL] = notifyURL
	g.systemInfoMap[NotifyApiKey] = os.Getenv(NotifyApiKey)
	// S3/Minio
	g.systemInfoMap[MinioAccessKeyId] = os.Getenv(MinioAccessKeyId)
	g.systemInfoMap[MinioSecretAccessKey] = os.Getenv(MinioSecretAccessKey)
	g.systemInfoMap[MinioCrt] = os.Getenv(MinioCrt)
	g.systemInfoMap[MinioEndpoint] = os.Getenv(MinioEndpoint)
	g.systemInfoMap[MinioBucketName] = os.Getenv(MinioBucketName)
	g.systemInfoMap[MinioStorageActive] = extractBool(os.Getenv(MinioStorageActive))
	apiKey := os.Getenv(APIkey)
	if apiKey == view.EmptyString {
		if g.GetBool(ProductionMode) {
			return fmt.Errorf("unable to load API key. That will be unsafe in production mode")
		}
		log.Warnln("API key empty or not present")
	} else {
		g.systemInfoMap[APIkey] = apiKey
	}
	// ListenAddress a.k.a. endpoint
	sla := os.Getenv(ListenAddress)
	if sla == view.EmptyString {
		return fmt.Errorf("unable to use empty listen address")
	}
	const (
		reIndexProto = 2
		reIndexHost  = 3
		reIndexPort  = 5
	)
	re := regexp.MustCompile(`^((http://|https://)?([^:]+))?(:(\d+))?$`)
	if matches := re.FindStringSubmatch(sla); matches != nil {
		g.systemInfoMap[ListenAddress] = sla
		if len(matches[reIndexProto]) > 0 {
			g.systemInfoMap[EndPointProto] = matches[reIndexProto]
		} else {
			g.systemInfoMap[EndPointProto] = DefaultEndpointProtocol
		}
		g.systemInfoMap[EndPointHost] = matches[reIndexHost]
		nPort, err := strconv.ParseInt(matches[reIndexPort], 10, 64)
		if err != nil || nPort <= 0 {
			nPort = CfgDefaultPort
			log.Warnf("improper value '%s' passed as port number. using default port: %d", matches[reIndexPort], nPort)
		}
		g.systemInfoMap[EndPointPort] = nPort
	} else {
		return fmt.Errorf("invalid listen address: %s", sla)
	}
	return nil
}

// GetListenAddress
// returns string value for ListenAddress
func (g systemInfoServiceImpl) GetListenAddress() string {
	return g.systemInfoMap[ListenAddress].(string)
}

// GetOriginAllowed
// returns string value for OriginAllowed
func (g systemInfoServiceImpl) GetOriginAllowed() string {
	return g.systemInfoMap[OriginAllowed].(string)
}

// GetString
// returns string by name or empty string when not found
func (g systemInfoServiceImpl) GetString(name string) string {
	if v, ok := g.systemInfoMap[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt64
// returns int64 by name or defVal when not found
func (g systemInfoServiceImpl) GetInt64(name string, defVal int64) int64 {
	if v, ok := g.systemInfoMap[name]; ok {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return defVal
}

// GetBool
// get bool value from configuration
func (g systemInfoServiceImpl) GetBool(name string) bool {
	if v, ok := g.systemInfoMap[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetDuration
// returns duration by name or defVal when not found
func (g systemInfoServiceImpl) GetDuration(name string, defVal time.Duration) time.Duration {
	if v, ok := g.systemInfoMap[name]; ok {
		if d, ok := v.(time.Duration); ok {
			return d
		}
	}
	return defVal
}

// GetMinioCredentials
// constructs MINIO credentials from configuration
func (g systemInfoServiceImpl) GetMinioCredentials() (*entities.MinioStorageCreds, error) {
	creds := &entities.MinioStorageCreds{
		BucketName:           g.GetString(MinioBucketName),
		IsActive:             g.GetBool(MinioStorageActive),
		Endpoint:             g.GetString(MinioEndpoint),
		Crt:                  g.GetString(MinioCrt),
		AccessKeyId:          g.GetString(MinioAccessKeyId),
		SecretAccessKey:      g.GetString(MinioSecretAccessKey),
		CompressBeforeUpload: !g.GetBool(CaptureFileCompression),
	}
	if creds.IsActive && (creds.Endpoint == view.EmptyString || creds.BucketName == view.EmptyString) {
		return nil, fmt.Errorf("%s and %s are required when %s is on", MinioEndpoint, MinioBucketName, MinioStorageActive)
	}
	return creds, nil
}

// GetInstanceId
// returns unique instance Id, generated at start
func (g systemInfoServiceImpl) GetInstanceId() string {
	return g.instanceId
}

func (g systemInfoServiceImpl) GetInspectorConfig() entities.InspectorServiceConfig {
	iface := g.GetString(CaptureInterface)
	snapLen := int(g.GetInt64(CaptureSnapLen, int64(view.DefaultSnapLenBytes)))
	reassembly := entities.ReassemblyConfig{
		OffsetUnit:    g.systemInfoMap[ReassemblyOffsetUnit].(entities.OffsetUnit),
		OverlapPolicy: g.systemInfoMap[ReassemblyOverlapPolicy].(entities.OverlapPolicy),
		Timeout:       g.GetDuration(ReassemblyTimeout, entities.DefaultReassemblyTimeout),
		SweepInterval: g.GetDuration(ReassemblySweepInterval, entities.DefaultSweepInterval),
	}
	log.Printf("Interface   :'%s' configured", iface)
	log.Printf("Instance Id :%s", g.instanceId)
	log.Printf("Snapshot len:%d", snapLen)
	log.Printf("Reassembly  :offsets in %s, %s, timeout %v", reassembly.OffsetUnit, reassembly.OverlapPolicy, reassembly.Timeout)
	return entities.InspectorServiceConfig{
		NetworkInterface:      iface,
		WorkDirectory:         g.GetString(CaptureDirectory),
		SnapshotLen:           snapLen,
		OutputFileCompression: g.GetBool(CaptureFileCompression),
		InstanceId:            g.instanceId,
		DumpActive:            g.GetBool(DumpActive),
		ArchiveActive:         g.GetBool(ArchiveActive),
		Reassembly:            reassembly,
	}
}

func (g systemInfoServiceImpl) GetRecentCacheConfig() entities.RecentCacheConfig {
	return entities.RecentCacheConfig{
		Capacity: int(g.GetInt64(RecentCacheSize, 0)),
		TTL:      g.GetDuration(RecentCacheTTL, 0),
	}
}

func (g systemInfoServiceImpl) GetDatagramLogConfig() entities.DatagramLogConfig {
	return entities.DatagramLogConfig{
		Driver:   g.GetString(DbDriver),
		Host:     g.GetString(DbHost),
		Port:     int(g.GetInt64(DbPort, DefaultDbPort)),
		User:     g.GetString(DbUser),
		Password: g.GetString(DbPassword),
		DbName:   g.GetString(DbName),
	}
}

func (g systemInfoServiceImpl) GetNotificationConfig() entities.NotificationConfig {
	return entities.NotificationConfig{
		URL:       g.GetString(NotifyURL),
		APIkey:    g.GetString(NotifyApiKey),
		QueueSize: int(g.GetInt64(NotifyQueueSize, entities.DefaultNotifyQueueSize)),
		Timeout:   g.GetDuration(NotifyTimeout, entities.DefaultNotifyTimeout),
	}
}

func (g systemInfoServiceImpl) GetApiKey() string {
	return g.GetString(APIkey)
}

func (g systemInfoServiceImpl) GetInspectorControllerConfig() entities.InspectorControllerConfig {
	return entities.InspectorControllerConfig{
		APIkey:         g.GetApiKey(),
		ProductionMode: g.GetBool(ProductionMode),
	}
}
