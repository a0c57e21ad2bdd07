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

// Package capture
// runs inspection sessions over a network interface or a capture file
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/cloud_storage"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/datagram_log"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/disk_cache"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/dump_writer"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/notifier"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/recent_cache"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	log "github.com/sirupsen/logrus"
)

const (
	// startReportTimeOut how long StartCapture waits for the source to open
	startReportTimeOut = time.Second * 5
	// stopTimeOut how long StopCapture waits for the session to finish
	stopTimeOut = time.Second * 30
	// wsReportTimeOut how long a finished session tries to notify the controller
	wsReportTimeOut = time.Second * 5
	// ReportFileSuffix a suffix of the session report file
	ReportFileSuffix = "_report.json"
)

// Capture public interface
type Capture interface {
	StartCapture(req entities.InspectionInstanceConfig, wsChan chan string) error
	StopCapture(id string) (view.CallResult, error)
	GetStatus() view.CallResult
	GetReport() view.InspectionReport
	SaveInspectionMetadata(fileName string, fileBody []byte) error
}

// Sinks
// datagram consumers shared by all sessions, nil members are skipped
type Sinks struct {
	Recent   recent_cache.RecentCache
	Archive  disk_cache.DatagramArchive
	Log      datagram_log.DatagramLog
	Notifier notifier.NotificationSender
	Storage  cloud_storage.CloudStorage // dump files and reports upload
}

// active inspection session
type activeCapture struct {
	config  entities.InspectionInstanceConfig // dynamic part of the configuration, changed from request to request
	state   view.CaptureState
	lock    sync.Mutex
	ins     inspector.Inspector
	dump    dump_writer.DumpWriter
	cancel  context.CancelFunc
	done    <-chan struct{} // closed when the session goroutine ends
	repChan chan error      // start result report channel
	wsChan  chan string     // webservice notification channel
	report  *view.InspectionReport
}

// underlying type for public interface
type captureInternal struct {
	serviceConfig entities.InspectorServiceConfig // static part of the configuration
	sinks         Sinks
	lock          sync.Mutex
	active        *activeCapture
	last          *activeCapture // the most recently finished session
}

// NewCapture
// creates a new inspection service instance
// always returns a new instance with an optional error indicator
func NewCapture(staticConfig entities.InspectorServiceConfig, sinks Sinks) (Capture, error) {
	var returnedError error = nil
	if len(staticConfig.WorkDirectory) > 1 {
		fileName := path.Join(staticConfig.WorkDirectory, "test.tst")
		fh, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			returnedError = fmt.Errorf("directory '%s' is not writable, error: %v",
				staticConfig.WorkDirectory, err)
		} else {
			_ = fh.Close()
			_ = os.Remove(fileName)
		}
	} else {
		returnedError = fmt.Errorf("empty directory is not allowed")
	}
	return &captureInternal{
		serviceConfig: staticConfig,
		sinks:         sinks,
	}, returnedError
}

// MakeReport
// converts session counters to the external report
func MakeReport(summary inspector.InspectionSummary, status view.RequestStatus) view.InspectionReport {
	var errs map[string]int
	if len(summary.Errors) > 0 {
		errs = make(map[string]int, len(summary.Errors))
		for k, v := range summary.Errors {
			errs[k] = v
		}
	}
	pending := summary.Engine.Pending
	if !summary.Finished.IsZero() {
		pending = summary.PendingAtEnd
	}
	return view.InspectionReport{
		Id:                 summary.SessionId,
		Status:             status,
		LinkType:           summary.LinkType,
		Frames:             summary.Frames,
		IPv4Frames:         summary.IPv4Frames,
		Fragments:          summary.Engine.Fragments,
		Datagrams:          summary.Datagrams,
		PendingDatagrams:   pending,
		EvictedDatagrams:   summary.Engine.Evicted,
		DiscardedDatagrams: summary.Engine.Discarded,
		Errors:             errs,
	}
}

// datagramSinks
// builds the ordered sink list of one session
func (cap *captureInternal) datagramSinks(instance *activeCapture) []inspector.DatagramSink {
	var ret []inspector.DatagramSink
	if cap.sinks.Recent != nil {
		ret = append(ret, cap.sinks.Recent)
	}
	if cap.sinks.Archive != nil && instance.config.ArchiveActive {
		ret = append(ret, cap.sinks.Archive)
	}
	if cap.sinks.Log != nil {
		ret = append(ret, cap.sinks.Log)
	}
	if instance.dump != nil {
		ret = append(ret, instance.dump)
	}
	if cap.sinks.Notifier != nil {
		ret = append(ret, cap.sinks.Notifier)
	}
	return ret
}

// Capture interface implementation

// StartCapture
// starts a parallel inspection session or report an error
func (cap *captureInternal) StartCapture(req entities.InspectionInstanceConfig, controllerChan chan string) error {
	if req.Id == view.EmptyString {
		return fmt.Errorf("unable to use empty Id")
	}
	if len(req.Filter) > view.FilterMaxLength {
		return fmt.Errorf("unable to proceed: filter expression is too big")
	}
	if req.SnapshotLen <= 0 {
		req.SnapshotLen = view.DefaultSnapLenBytes
	}
	if req.NetworkInterface == view.EmptyString {
		req.NetworkInterface = cap.serviceConfig.NetworkInterface
	}
	cap.lock.Lock()
	if cap.active != nil {
		state := cap.active.getState()
		cid := cap.active.config.Id
		if state.IsActive() {
			cap.lock.Unlock()
			if cid == req.Id {
				return nil // this inspection id is running
			}
			return fmt.Errorf("another inspection '%s' has already started", cid)
		}
	}
	req.InstanceId = cap.serviceConfig.InstanceId // copy application instance id to the session
	ctx, cancel := context.WithCancel(context.Background())
	instance := &activeCapture{
		config:  req,
		state:   view.CapStateStarting,
		cancel:  cancel,
		repChan: make(chan error, 1),
		wsChan:  controllerChan,
	}
	if req.DumpActive {
		instance.dump = dump_writer.NewDumpWriter(dump_writer.DumpConfig{
			WorkDirectory: req.WorkDirectory,
			SessionId:     req.Id,
			InstanceId:    req.InstanceId,
			Compression:   req.OutputFileCompression,
			MaxFileSize:   view.DefaultDumpFileSize,
		}, cap.sinks.Storage)
	}
	instance.ins = inspector.NewInspector(req.Id, reassembly.NewEngineFromConfig(req.Reassembly),
		cap.datagramSinks(instance)...)
	instance.done = utils.SafeAsyncDone(func() {
		cap.runSession(ctx, instance)
	})
	if cap.active != nil {
		cap.last = cap.active
	}
	cap.active = instance
	cap.lock.Unlock()
	select {
	case err := <-instance.repChan:
		return err
	case <-time.After(startReportTimeOut):
		return fmt.Errorf("inspection start did not confirmed. timeout exceeded")
	}
}

// runSession
// goroutine function
// opens the frame source and runs the inspector until the source ends or the session is stopped
func (cap *captureInternal) runSession(ctx context.Context, instance *activeCapture) {
	defer instance.notifyController()
	runCtx := ctx
	limits := inspector.RunLimits{
		MaxFrames:     instance.config.FrameCount,
		EvictAfter:    instance.config.Reassembly.Timeout,
		SweepInterval: instance.config.Reassembly.SweepInterval,
	}
	if instance.config.SourceFile == view.EmptyString && instance.config.Duration > 0 {
		// a live source sees the deadline through its context
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithTimeout(ctx, instance.config.Duration)
		defer cancelRun()
	}
	src, err := openSource(runCtx, instance.config)
	if err != nil {
		log.Errorf("unable to start inspection %s: %v", instance.config.Id, err)
		instance.setState(view.CapStateFailed)
		cap.finishSession(instance, instance.ins.Summary())
		instance.repChan <- err
		return
	}
	defer src.close()
	instance.setState(view.CapStateRunning)
	instance.repChan <- nil
	captureStart := time.Now()
	summary, err := instance.ins.Run(runCtx, src, limits)
	if err != nil {
		log.Errorf("inspection %s failed: %v", instance.config.Id, err)
	}
	instance.finishState(err)
	cap.finishSession(instance, summary)
	log.Printf("inspection '%s' finished with state: %s, time spent %s",
		instance.config.Id, view.CapStateToReqStatus(instance.getState()), time.Since(captureStart).String())
}

// finishSession
// flushes per-session sinks and publishes the final report
func (cap *captureInternal) finishSession(instance *activeCapture, summary inspector.InspectionSummary) {
	if instance.dump != nil {
		if err := instance.dump.Close(); err != nil {
			log.Errorf("unable to close dump of inspection %s: %v", instance.config.Id, err)
		}
	}
	report := MakeReport(summary, view.CapStateToReqStatus(instance.getState()))
	instance.lock.Lock()
	instance.report = &report
	instance.lock.Unlock()
	if cap.sinks.Notifier != nil {
		cap.sinks.Notifier.NotifySessionEnd(report)
	}
	body, err := json.Marshal(report)
	if err != nil {
		log.Errorf("unable to marshal inspection report. Error: %v", err)
		return
	}
	fileName := fmt.Sprintf("%s_%s%s", instance.config.Id, instance.config.InstanceId, ReportFileSuffix)
	if err = cap.SaveInspectionMetadata(fileName, body); err != nil {
		log.Errorf("unable to save inspection report. Error: %v", err)
	}
}

// StopCapture
// request to stop the inspection session
func (cap *captureInternal) StopCapture(id string) (view.CallResult, error) {
	var err error = nil
	result := view.CallResult{Status: view.RequestStatusNone, Id: view.EmptyString}
	cap.lock.Lock()
	instance := cap.active
	cap.lock.Unlock()
	if instance == nil { // no active session - nothing to stop
		log.Warnln("no active inspection to stop")
		return result, nil
	}
	if instance.config.Id != id {
		err = fmt.Errorf("no inspection '%s' started", id)
		log.Warnln(err.Error())
		return result, err
	}
	result.Id = id
	if instance.markStopping() {
		instance.cancel()
		select {
		case <-instance.done: // confirmed
		case <-time.After(stopTimeOut):
			err = fmt.Errorf("request timeout at state: %s", view.CapStateToReqStatus(instance.getState()))
		}
	}
	result.Status = view.CapStateToReqStatus(instance.getState())
	if err == nil {
		cap.lock.Lock()
		if cap.active == instance {
			cap.last = instance
			cap.active = nil // all things have done - drop active instance
		}
		cap.lock.Unlock()
	}
	return result, err
}

// SaveInspectionMetadata
// create a metadata file and request to store it on S3/Minio
func (cap *captureInternal) SaveInspectionMetadata(fileName string, fileBody []byte) error {
	pathName := path.Join(cap.serviceConfig.WorkDirectory, fileName)
	mdf, err := os.OpenFile(pathName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	written := 0
	written, err = mdf.Write(fileBody)
	closeErr := mdf.Close()
	if err == nil {
		if written != len(fileBody) {
			err = fmt.Errorf("unable to write inspection metadata to file %s, %d bytes written", fileName, written)
		} else {
			if cap.sinks.Storage != nil {
				cap.sinks.Storage.StoreFile(pathName)
			}
			err = closeErr
		}
	}
	return err
}

// GetStatus
// returns the current inspection status
func (cap *captureInternal) GetStatus() view.CallResult {
	cap.lock.Lock()
	instance := cap.active
	cap.lock.Unlock()
	if instance != nil {
		return view.CallResult{Status: view.CapStateToReqStatus(instance.getState()), Id: instance.config.Id}
	}
	return view.CallResult{Status: view.CapStateToReqStatus(view.CapStateNone), Id: view.EmptyString}
}

// GetReport
// counters of the running session, or the final report of the last one
func (cap *captureInternal) GetReport() view.InspectionReport {
	cap.lock.Lock()
	instance := cap.active
	if instance == nil {
		instance = cap.last
	}
	cap.lock.Unlock()
	if instance == nil {
		return view.InspectionReport{Status: view.RequestStatusNone}
	}
	instance.lock.Lock()
	report := instance.report
	instance.lock.Unlock()
	if report != nil {
		return *report
	}
	return MakeReport(instance.ins.Summary(), view.CapStateToReqStatus(instance.getState()))
}

// activeCapture member functions

// notifyController
// reports the session end to the webservice
func (instance *activeCapture) notifyController() {
	if instance.wsChan == nil {
		return
	}
	select {
	case instance.wsChan <- instance.config.Id:
		break // accepted
	case <-time.After(wsReportTimeOut): // channel writing timeout
		log.Warnf("unable to notify webservice about inspection %s end", instance.config.Id)
	}
}

// setState
// internal, locking state setter
func (instance *activeCapture) setState(status view.CaptureState) {
	instance.lock.Lock()
	instance.state = status
	instance.lock.Unlock()
}

// markStopping
// moves an active session to Stopping, false when it has already finished
func (instance *activeCapture) markStopping() bool {
	instance.lock.Lock()
	defer instance.lock.Unlock()
	if !instance.state.IsActive() {
		return false
	}
	instance.state = view.CapStateStopping
	return true
}

// finishState
// final state of a session whose run has returned
func (instance *activeCapture) finishState(runErr error) view.CaptureState {
	instance.lock.Lock()
	defer instance.lock.Unlock()
	switch {
	case runErr != nil:
		instance.state = view.CapStateFailed
	case instance.state == view.CapStateStopping:
		instance.state = view.CapStateStopped
	default:
		instance.state = view.CapStateCompleted
	}
	return instance.state
}

// getState
// internal, locking state getter
func (instance *activeCapture) getState() view.CaptureState {
	instance.lock.Lock()
	defer instance.lock.Unlock()
	return instance.state
}
