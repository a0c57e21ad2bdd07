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
	"net/url"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
)

const (
	DefaultNotifyQueueSize = 256
	DefaultNotifyTimeout   = time.Second * 5
)

type NotificationConfig struct {
	URL       string        // a webhook address to post completed datagrams to
	APIkey    string        // endpoint's API key
	QueueSize int           // datagrams waiting for delivery, newer ones are dropped when the queue is full
	Timeout   time.Duration // single delivery timeout
}

// Enabled
// true when a webhook address is configured
func (c NotificationConfig) Enabled() bool {
	return c.URL != view.EmptyString
}

// ValidateNotifyURL
// accepts an empty value (notifications off) or an absolute http(s) address
func ValidateNotifyURL(notifyURL string) (string, error) {
	if notifyURL == view.EmptyString {
		return notifyURL, nil
	}
	u, err := url.ParseRequestURI(notifyURL)
	if err != nil {
		return view.EmptyString, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return view.EmptyString, url.InvalidHostError(u.Scheme)
	}
	return u.String(), nil
}
