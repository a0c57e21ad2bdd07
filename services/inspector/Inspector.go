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
	"context"
	"io"
	"sync"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/frame_decoder"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/Netcracker/qubership-apihub-packet-inspector/utils"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// error counter names
const (
	ErrCountLinkDecode = "link_decode"
	ErrCountIPv4Decode = "ipv4_decode"
	ErrCountConflict   = "conflict"
	ErrCountSinkPrefix = "sink_"
)

// RunLimits
// when Run stops on its own and how pending datagrams are evicted meanwhile
type RunLimits struct {
	MaxFrames     int           // 0 - no limit
	Duration      time.Duration // 0 - no limit
	EvictAfter    time.Duration // 0 - incomplete datagrams are kept until the run ends
	SweepInterval time.Duration
}

// FrameSource
// a frame stream that knows its link-layer framing, pcap handles and pcapgo readers qualify
type FrameSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// FrameReport
// what happened to a single frame
type FrameReport struct {
	Index       int
	Timestamp   time.Time
	Destination string
	Source      string
	Type        frame_decoder.EtherType
	Datagram    *CompletedDatagram // set when the frame completed a datagram
	Err         error
}

// InspectionSummary
// session counters
type InspectionSummary struct {
	SessionId  string                 `json:"session_id"`
	LinkType   string                 `json:"link_type"`
	Frames     int                    `json:"frames"`
	IPv4Frames int                    `json:"ipv4_frames"`
	Datagrams  int                    `json:"datagrams"`
	FrameTypes map[string]int         `json:"frame_types"`
	Errors     map[string]int         `json:"errors"`
	Engine     reassembly.EngineStats `json:"engine"`
	// PendingAtEnd incomplete datagrams dropped when Run returned
	PendingAtEnd int       `json:"pending_at_end"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
}

// Inspector
// pulls frames from a source, feeds IPv4 payloads to the reassembly engine and hands completed datagrams to sinks
type Inspector interface {
	ProcessFrame(data []byte, ci gopacket.CaptureInfo) FrameReport
	Run(ctx context.Context, source FrameSource, limits RunLimits) (InspectionSummary, error)
	Summary() InspectionSummary
}

type inspectorImpl struct {
	sessionId string
	engine    *reassembly.Engine
	sinks     []DatagramSink
	lock      sync.Mutex
	linkType  layers.LinkType
	summary   InspectionSummary
}

// NewInspector
// creates an inspector for one session, sinks receive datagrams in the given order
func NewInspector(sessionId string, engine *reassembly.Engine, sinks ...DatagramSink) Inspector {
	return &inspectorImpl{
		sessionId: sessionId,
		engine:    engine,
		sinks:     sinks,
		linkType:  layers.LinkTypeEthernet,
		summary: InspectionSummary{
			SessionId:  sessionId,
			LinkType:   frame_decoder.LinkTypeName(layers.LinkTypeEthernet),
			FrameTypes: make(map[string]int),
			Errors:     make(map[string]int),
		},
	}
}

func incErrorCount(m map[string]int, name string) {
	m[name]++
}

// ProcessFrame
// handles one link-layer frame framed as the last source passed to Run (ethernet before that),
// decode failures are counted and reported without stopping anything
func (ins *inspectorImpl) ProcessFrame(data []byte, ci gopacket.CaptureInfo) FrameReport {
	ins.lock.Lock()
	ins.summary.Frames++
	report := FrameReport{Index: ins.summary.Frames, Timestamp: ci.Timestamp}
	linkType := ins.linkType
	ins.lock.Unlock()

	frame, err := frame_decoder.DecodeLinkFrame(linkType, data)
	if err != nil {
		log.Debugf("frame %d: %v", report.Index, err)
		ins.countError(ErrCountLinkDecode)
		report.Err = err
		return report
	}
	report.Destination = frame_decoder.FormatLinkAddress(frame.Destination)
	report.Source = frame_decoder.FormatLinkAddress(frame.Source)
	report.Type = frame.Type
	log.Debugf("frame %d: destination %s, source %s, type %s", report.Index, report.Destination, report.Source, report.Type)
	ins.lock.Lock()
	ins.summary.FrameTypes[frame.Type.String()]++
	if frame.Type == frame_decoder.EtherTypeIPv4 {
		ins.summary.IPv4Frames++
	}
	ins.lock.Unlock()
	if frame.Type != frame_decoder.EtherTypeIPv4 {
		return report
	}

	datagram, err := ins.engine.AddAndCheck(frame.Payload)
	if err != nil {
		report.Err = err
		if errors.Cause(err) == reassembly.ErrFragmentConflict {
			log.Warnf("frame %d: %v", report.Index, err)
			ins.countError(ErrCountConflict)
		} else {
			log.Debugf("frame %d: unable to decode IPv4 header: %v", report.Index, err)
			ins.countError(ErrCountIPv4Decode)
		}
		return report
	}
	if datagram == nil {
		return report
	}
	ins.lock.Lock()
	ins.summary.Datagrams++
	completed := CompletedDatagram{SessionId: ins.sessionId, Seq: ins.summary.Datagrams, Datagram: datagram}
	ins.lock.Unlock()
	log.Infof("datagram reassembled: %s, %d bytes from %d fragments", datagram.Header, len(datagram.Payload), datagram.Fragments)
	for _, sink := range ins.sinks {
		if err := sink.Consume(completed); err != nil {
			log.Warnf("sink %s failed on datagram %s: %v", sink.Name(), completed.Key(), err)
			ins.countError(ErrCountSinkPrefix + sink.Name())
		}
	}
	report.Datagram = &completed
	return report
}

// Run
// reads frames until the source is exhausted, ctx is done or a limit is reached.
// io.EOF ends the run normally, any other source error is returned.
// Sources with a link type the frame decoder does not know are refused before reading
func (ins *inspectorImpl) Run(ctx context.Context, source FrameSource, limits RunLimits) (InspectionSummary, error) {
	linkType := source.LinkType()
	if err := frame_decoder.CheckLinkType(linkType); err != nil {
		return ins.Summary(), err
	}
	ins.lock.Lock()
	ins.linkType = linkType
	ins.summary.LinkType = frame_decoder.LinkTypeName(linkType)
	ins.lock.Unlock()
	if limits.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.Duration)
		defer cancel()
	}
	ins.lock.Lock()
	ins.summary.Started = time.Now()
	ins.lock.Unlock()
	if limits.EvictAfter > 0 {
		sweepCtx, stopSweeper := context.WithCancel(ctx)
		defer stopSweeper()
		utils.SafeAsync(func() {
			ins.engine.RunSweeper(sweepCtx, limits.EvictAfter, limits.SweepInterval)
		})
	}
	var runErr error
	frames := 0
	for runErr == nil {
		if limits.MaxFrames > 0 && frames >= limits.MaxFrames {
			log.Debugf("frame limit %d reached", limits.MaxFrames)
			break
		}
		if ctx.Err() != nil {
			log.Debugf("inspection stopped: %v", ctx.Err())
			break
		}
		data, ci, err := source.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			runErr = errors.Wrap(err, "frame source")
			break
		}
		frames++
		ins.ProcessFrame(data, ci)
	}
	pending := ins.engine.Reset()
	if pending > 0 {
		log.Infof("%d incomplete datagrams discarded at the end of inspection", pending)
	}
	ins.lock.Lock()
	ins.summary.PendingAtEnd = pending
	ins.summary.Finished = time.Now()
	ins.lock.Unlock()
	summary := ins.Summary()
	if len(summary.Errors) > 0 {
		log.Warnf("Error counters are:")
		for name, n := range summary.Errors {
			log.Warnf("%s\t%d", name, n)
		}
	}
	log.Printf("Total frames: %d, ipv4: %d, datagrams: %d, evicted: %d, discarded: %d",
		summary.Frames, summary.IPv4Frames, summary.Datagrams, summary.Engine.Evicted, summary.Engine.Discarded)
	return summary, runErr
}

// Summary
// a snapshot of the session counters, safe to call while Run is in progress
func (ins *inspectorImpl) Summary() InspectionSummary {
	ins.lock.Lock()
	defer ins.lock.Unlock()
	ret := ins.summary
	ret.FrameTypes = copyCounters(ins.summary.FrameTypes)
	ret.Errors = copyCounters(ins.summary.Errors)
	ret.Engine = ins.engine.Stats()
	return ret
}

func (ins *inspectorImpl) countError(name string) {
	ins.lock.Lock()
	defer ins.lock.Unlock()
	incErrorCount(ins.summary.Errors, name)
}

func copyCounters(m map[string]int) map[string]int {
	ret := make(map[string]int, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
