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

package notifier

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"
)

const sinkName = "notifier"

// NotificationSender
// posts completed datagrams and session results to a webhook without blocking the inspection
type NotificationSender interface {
	inspector.DatagramSink
	NotifySessionEnd(report view.InspectionReport)
	Stop()
	Delivered() int
	Dropped() int
}

// notifierImpl
// underline NotificationSender interface implementation
type notifierImpl struct {
	entities.NotificationConfig                             // configuration
	queue                       chan view.NotificationEvent // events waiting for delivery
	done                        chan struct{}
	stopOnce                    sync.Once
	lock                        sync.Mutex
	delivered                   int
	dropped                     int
}

// common functions

// NewNotificationSender
// creates an interface instance and starts the delivery goroutine
func NewNotificationSender(configuration entities.NotificationConfig) NotificationSender {
	if configuration.QueueSize <= 0 {
		configuration.QueueSize = entities.DefaultNotifyQueueSize
	}
	if configuration.Timeout <= 0 {
		configuration.Timeout = entities.DefaultNotifyTimeout
	}
	d := &notifierImpl{
		NotificationConfig: configuration,
		queue:              make(chan view.NotificationEvent, configuration.QueueSize),
		done:               make(chan struct{}),
	}
	utils.SafeAsync(func() {
		d.deliveryLoop() // +SafeAsync
	})
	return d
}

// makeRequest
// makes a webhook request
func makeRequest(timeout time.Duration, apiKey string) *resty.Request {
	tr := http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	cl := http.Client{Transport: &tr, Timeout: timeout}

	client := resty.NewWithClient(&cl)
	req := client.R()
	req.SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		req.SetHeader(view.ApiKeyHeader, apiKey)
	}
	return req
}

// notify
// sends a single event
func (d *notifierImpl) notify(event view.NotificationEvent) error {
	req := makeRequest(d.Timeout, d.APIkey)
	var err error
	req.Body, err = json.Marshal(event)
	if err != nil {
		return fmt.Errorf("unable to marshal %s event. Error: %v", event.Event, err)
	}
	resp, errPost := req.Post(d.URL)
	if errPost != nil {
		return fmt.Errorf("error '%v' during %s notification", errPost, event.Event)
	}
	if hStatus := resp.StatusCode(); hStatus < http.StatusOK || hStatus >= http.StatusMultipleChoices {
		return fmt.Errorf("improper status '%v' during %s notification", hStatus, event.Event)
	}
	return nil
}

// deliveryLoop
// goroutine to serve queued events
func (d *notifierImpl) deliveryLoop() {
	defer close(d.done)
	for event := range d.queue {
		if err := d.notify(event); err != nil {
			log.Error(err)
			continue
		}
		d.lock.Lock()
		d.delivered++
		d.lock.Unlock()
	}
}

func (d *notifierImpl) enqueue(event view.NotificationEvent) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.lock.Lock()
		d.dropped++
		d.lock.Unlock()
		log.Warnf("notification queue is full, %s event dropped", event.Event)
		return false
	}
}

// interface implementation functions

func (d *notifierImpl) Name() string {
	return sinkName
}

// Consume
// queues the datagram view, a full queue drops the event
func (d *notifierImpl) Consume(cd inspector.CompletedDatagram) error {
	v := cd.View()
	if !d.enqueue(view.NotificationEvent{Event: view.EventDatagram, Datagram: &v}) {
		return fmt.Errorf("notification for %s dropped", cd.Key())
	}
	return nil
}

func (d *notifierImpl) NotifySessionEnd(report view.InspectionReport) {
	d.enqueue(view.NotificationEvent{Event: view.EventSessionEnd, Report: &report})
}

// Stop
// delivers queued events and stops the delivery goroutine
func (d *notifierImpl) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	<-d.done
}

func (d *notifierImpl) Delivered() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.delivered
}

func (d *notifierImpl) Dropped() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.dropped
}
