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

package inspector

import (
	"fmt"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
)

const (
	// PreviewLen payload bytes shown in datagram views
	PreviewLen   = 64
	KeySeparator = "_"
)

// CompletedDatagram
// a reassembled datagram numbered within its inspection session
type CompletedDatagram struct {
	SessionId string
	Seq       int
	*reassembly.Datagram
}

// DatagramSink
// receives every completed datagram, an error is counted and logged by the inspector
type DatagramSink interface {
	Name() string
	Consume(d CompletedDatagram) error
}

// Key
// session unique datagram name
func (c CompletedDatagram) Key() string {
	return MakeDatagramKey(c.SessionId, c.Seq)
}

func MakeDatagramKey(sessionId string, seq int) string {
	return fmt.Sprintf("%s%s%06d", sessionId, KeySeparator, seq)
}

// View
// external representation without the payload bytes
func (c CompletedDatagram) View() view.DatagramView {
	return view.DatagramView{
		Key:           c.Key(),
		SessionId:     c.SessionId,
		Id:            c.Header.Id,
		SourceIP:      c.Header.SourceIP.String(),
		DestinationIP: c.Header.DestinationIP.String(),
		Protocol:      c.Header.Protocol.String(),
		Length:        len(c.Payload),
		Fragments:     c.Fragments,
		FirstSeen:     c.FirstSeen,
		CompletedAt:   c.CompletedAt,
		ContentType:   utils.DetectPayloadType(c.Payload).String(),
		Preview:       utils.PayloadPreview(c.Payload, PreviewLen),
	}
}
