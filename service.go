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

package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/controllers"
	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/capture"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/cloud_storage"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/datagram_log"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/disk_cache"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/notifier"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/recent_cache"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/service"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/netcracker/qubership-core-lib-go/v3/configloader"
	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

type serviceStatusType int

const (
	serviceStatusRunning serviceStatusType = iota
	serviceStatusStart
	serviceStatusRestart
)

const (
	restartServiceInterval = 10 * time.Second
	actionInspectFile      = "inspect-file"
	actionInspectLive      = "inspect-live"
	actionListInterfaces   = "list-interfaces"
)

// actionFlags
// command line parameters of the action mode
type actionFlags struct {
	action        string
	fileName      string
	iface         string
	filter        string
	frameCount    int
	duration      time.Duration
	logLevel      string
	workDir       string
	offsetUnit    string
	overlapPolicy string
	listLimit     int
	connAttrs     datagram_log.ConnAttrs
	driverName    string
}

func makeServer(systemInfoService service.SystemInfoService, r *mux.Router) *http.Server {
	listenAddr := systemInfoService.GetListenAddress()

	log.Infof("Listen addr = %s", listenAddr)

	var corsOptions []handlers.CORSOption

	corsOptions = append(corsOptions,
		handlers.AllowedHeaders([]string{
			"Connection",
			"Accept-Encoding",
			"Content-Encoding",
			"X-Requested-With",
			controllers.HttpContentType,
			view.ApiKeyHeader,
			"Authorization"}))

	allowedOrigin := systemInfoService.GetOriginAllowed()
	if allowedOrigin != "" {
		corsOptions = append(corsOptions, handlers.AllowedOrigins([]string{allowedOrigin}))
	}
	corsOptions = append(corsOptions, handlers.AllowedMethods([]string{http.MethodPost, http.MethodGet}))

	return &http.Server{
		Handler:      handlers.CompressHandler(handlers.CORS(corsOptions...)(r)),
		Addr:         listenAddr,
		WriteTimeout: 300 * time.Second,
		ReadTimeout:  30 * time.Second,
	}
}

// init
// initialises logging
func init() {
	basePath := os.Getenv("BASE_PATH")
	if basePath == "" {
		basePath = "."
	}
	mw := io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename: path.Join(basePath, "logs", "packet_inspector.log"),
		MaxSize:  10, // megabytes
	})
	log.SetFormatter(&prefixed.TextFormatter{
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	logLevel, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = log.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(mw)
}

// init
// initialises paas configuration from environment
func init() {
	sourceParams := configloader.YamlPropertySourceParams{ConfigFilePath: "config.yaml"}
	configloader.Init(configloader.BasePropertySources(sourceParams)...)
	piece := configloader.GetKoanf()
	if piece != nil {
		err := configloader.GetKoanf().Set("paas.platform", os.Getenv("PAAS_PLATFORM"))
		if err != nil {
			log.Error(err)
		} else {
			err = configloader.GetKoanf().Set("paas.version", os.Getenv("PAAS_VERSION"))
			if err != nil {
				log.Error(err)
			}
		}
	}
}

func main() {
	var af actionFlags
	flag.StringVar(&af.action, "action", view.EmptyString,
		fmt.Sprintf("An action to run instead of the service: %s, %s, %s", actionInspectFile, actionInspectLive, actionListInterfaces))
	flag.StringVar(&af.fileName, "file", view.EmptyString, "A pcap file to inspect, may be gzip-compressed")
	flag.StringVar(&af.iface, "interface", view.CaptureInterfaceAny, "A network interface to inspect")
	flag.StringVar(&af.filter, "filter", view.EmptyString, "A BPF capture filter")
	flag.IntVar(&af.frameCount, "count", 0, "Stop after this number of frames (0 - no limit)")
	flag.DurationVar(&af.duration, "duration", view.DefaultCaptureDuration, "Live inspection duration")
	flag.StringVar(&af.logLevel, "log-level", "INFO", "A logging level: (trace, debug, info, warning, error, fatal, panic)")
	flag.StringVar(&af.workDir, "work-dir", os.Getenv(service.CaptureDirectory), "Working directory")
	flag.StringVar(&af.offsetUnit, "offset-unit", entities.OffsetUnitBytes.String(), "Fragment offset unit: bytes or octets8")
	flag.StringVar(&af.overlapPolicy, "overlap-policy", entities.OverlapLastWriteWins.String(),
		"Same offset fragments: last-write-wins, first-write-wins or reject-conflict")
	flag.IntVar(&af.listLimit, "list", 20, "Completed datagrams to print at the end")
	flag.StringVar(&af.driverName, "db-driver", view.EmptyString, "Datagram log DB driver name (sqlite3, postgres), empty - no log")
	flag.StringVar(&af.connAttrs.Host, "db-host", view.EmptyString, "DB server host")
	flag.IntVar(&af.connAttrs.Port, "db-port", service.DefaultDbPort, "DB server port")
	flag.StringVar(&af.connAttrs.User, "db-user", view.EmptyString, "DB user name")
	flag.StringVar(&af.connAttrs.Password, "db-password", view.EmptyString, "DB user password")
	flag.StringVar(&af.connAttrs.DbName, "db-name", view.EmptyString, "DB instance name (a file name for sqlite3)")
	flag.Parse()
	if af.action != view.EmptyString {
		setLogLevel(af.logLevel)
		log.Printf("Action %s", af.action)
		if err := runAction(af); err != nil {
			log.Fatalf("action %s failed: %v", af.action, err)
		}
		return
	}
	runService()
}

// runService
// starts the HTTP control API and restarts it on failures
func runService() {
	systemInfoService, mandatoryServiceError := service.NewSystemInfoService()
	if mandatoryServiceError != nil {
		log.Fatalf("unable to prepare service configuration '%v'", mandatoryServiceError)
	}
	productionMode := systemInfoService.GetBool(service.ProductionMode)
	inspectorConfig := systemInfoService.GetInspectorConfig()
	// opening S3 somehow
	s3Config, err := systemInfoService.GetMinioCredentials()
	if err != nil {
		log.Fatalln(err)
	}
	cs3 := cloud_storage.NewCloudStorage(*s3Config, productionMode) // credentials + production mode flag
	defer cs3.Stop()                                                // finish at the end
	recentConfig := systemInfoService.GetRecentCacheConfig()
	sinks := capture.Sinks{
		Recent:  recent_cache.NewRecentCache(recentConfig.Capacity, recentConfig.TTL),
		Storage: cs3,
	}
	if inspectorConfig.ArchiveActive {
		sinks.Archive, err = disk_cache.NewDatagramArchive(inspectorConfig.WorkDirectory)
		if err != nil {
			log.Fatalf("unable to create datagram archive: %v", err)
		}
		defer func() {
			_ = sinks.Archive.Close()
		}()
		log.Println("datagram archive activated")
	}
	if dbConfig := systemInfoService.GetDatagramLogConfig(); dbConfig.Driver != view.EmptyString {
		sinks.Log, err = datagram_log.NewDatagramLog(datagram_log.ConnAttrs{
			Host:     dbConfig.Host,
			Port:     dbConfig.Port,
			User:     dbConfig.User,
			Password: dbConfig.Password,
			DbName:   dbConfig.DbName,
			Driver:   datagram_log.Driver(dbConfig.Driver),
		})
		if err != nil {
			log.Fatalf("unable to open datagram log: %v", err)
		}
		defer func() {
			_ = sinks.Log.Close()
		}()
		log.Println("datagram log activated")
	}
	if notifyConfig := systemInfoService.GetNotificationConfig(); notifyConfig.Enabled() {
		sinks.Notifier = notifier.NewNotificationSender(notifyConfig)
		defer sinks.Notifier.Stop()
		log.Println("webhook notification activated")
	} else {
		log.Warningf("webhook notification was not configured")
	}
	pkt, err := capture.NewCapture(inspectorConfig, sinks) // static configuration + datagram sinks
	if err != nil {
		log.Printf("inspector created with error '%v'", err)
	}
	ws := controllers.NewWebService(pkt, inspectorConfig, sinks, systemInfoService.GetInspectorControllerConfig())
	defer ws.Close()
	failureReportChannel := make(chan string)
	controllerStatus := serviceStatusStart // try to start service
	restartPause := restartServiceInterval // set initial pause
	for {
		if controllerStatus != serviceStatusRunning {
			if controllerStatus == serviceStatusRestart { // when service is restarting
				time.Sleep(restartPause) // make a pause
				restartPause *= 2        // increase interval
			}
			controllerStatus = serviceStatusRunning // mark service as running
			utils.SafeAsync(func() {
				defer func() {
					select {
					case failureReportChannel <- view.EmptyString:
						break // controller failed
					case <-time.After(time.Second * 5): // channel writing timeout
						log.Warnf("unable to notify about controller's failure")
					}
				}()
				srv := makeServer(systemInfoService, controllers.NewRouter(ws, productionMode))
				log.Errorf("Service fatal error:%v", srv.ListenAndServe())
			})
		}
		select {
		case <-failureReportChannel:
			log.Error("controller failed unexpectedly")
			controllerStatus = serviceStatusRestart // when failed - ask for a restart
		case <-time.After(time.Hour * 24):
			log.Print("Controller is healthy")
			restartPause = restartServiceInterval // reset interval when service is running
		}
	}
}

// setLogLevel
// action mode logging level
func setLogLevel(logLevel string) {
	switch strings.ToUpper(logLevel) {
	case "TRACE":
		log.SetLevel(log.TraceLevel)
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARNING":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	case "FATAL":
		log.SetLevel(log.FatalLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}

// runAction
// runs a single command line action
func runAction(af actionFlags) error {
	switch af.action {
	case actionListInterfaces:
		interfaces, err := capture.LocalInterfaces(true)
		if err != nil {
			return err
		}
		for _, name := range interfaces {
			fmt.Println(name)
		}
		return nil
	case actionInspectFile:
		if af.fileName == view.EmptyString {
			return fmt.Errorf("missing capture file name")
		}
		return inspectOnce(af)
	case actionInspectLive:
		return inspectOnce(af)
	}
	return fmt.Errorf("don't know how to handle action %v", af.action)
}

// inspectOnce
// runs a single session in the foreground and prints its datagrams
func inspectOnce(af actionFlags) error {
	unit, err := entities.ParseOffsetUnit(af.offsetUnit)
	if err != nil {
		return err
	}
	policy, err := entities.ParseOverlapPolicy(af.overlapPolicy)
	if err != nil {
		return err
	}
	if af.workDir == view.EmptyString {
		af.workDir = os.TempDir()
	}
	cfg := entities.InspectorServiceConfig{
		NetworkInterface: af.iface,
		WorkDirectory:    af.workDir,
		SnapshotLen:      view.DefaultSnapLenBytes,
		InstanceId:       utils.MakeUniqueId(),
		Reassembly:       entities.DefaultReassemblyConfig(),
	}
	cfg.Reassembly.OffsetUnit = unit
	cfg.Reassembly.OverlapPolicy = policy
	recent := recent_cache.NewRecentCache(af.listLimit, 0)
	sinks := capture.Sinks{Recent: recent}
	if af.driverName != view.EmptyString {
		af.connAttrs.Driver = datagram_log.Driver(af.driverName)
		dl, err := datagram_log.NewDatagramLog(af.connAttrs)
		if err != nil {
			return err
		}
		defer func() {
			_ = dl.Close()
		}()
		sinks.Log = dl
	}
	pkt, err := capture.NewCapture(cfg, sinks)
	if err != nil {
		return err
	}
	req := entities.InspectionInstanceConfig{
		InspectorServiceConfig: cfg,
		Filter:                 af.filter,
		Id:                     utils.MakeUniqueId(),
		FrameCount:             af.frameCount,
		Duration:               af.duration,
		DateAndTime:            time.Now(),
	}
	if af.action == actionInspectFile {
		req.SourceFile = af.fileName
	}
	wsChan := make(chan string, 1)
	if err = pkt.StartCapture(req, wsChan); err != nil {
		return err
	}
	<-wsChan
	report := pkt.GetReport()
	for _, d := range recent.List(af.listLimit) {
		fmt.Printf("%s id=%d %s -> %s %s %d bytes in %d fragments [%s] %s\n", d.Key, d.Id, d.SourceIP,
			d.DestinationIP, d.Protocol, d.Length, d.Fragments, d.ContentType, d.Preview)
	}
	fmt.Printf("frames: %d, ipv4: %d, fragments: %d, datagrams: %d, evicted: %d, discarded: %d\n",
		report.Frames, report.IPv4Frames, report.Fragments, report.Datagrams,
		report.EvictedDatagrams, report.DiscardedDatagrams)
	if sinks.Log != nil {
		fmt.Printf("datagram log contains %d records of the session\n", sinks.Log.GetDatagramCount(req.Id))
	}
	if report.Status == view.RequestStatusFailed {
		return fmt.Errorf("inspection %s failed", req.Id)
	}
	return nil
}
