package view

import "time"

// DatagramView
// external representation of a reassembled datagram
type DatagramView struct {
	Key           string    `json:"key"`
	SessionId     string    `json:"session_id,omitempty"`
	Id            uint16    `json:"id"`
	SourceIP      string    `json:"source_ip"`
	DestinationIP string    `json:"destination_ip"`
	Protocol      string    `json:"protocol"`
	Length        int       `json:"length"`
	Fragments     int       `json:"fragments"`
	FirstSeen     time.Time `json:"first_seen"`
	CompletedAt   time.Time `json:"completed_at"`
	ContentType   string    `json:"content_type,omitempty"`
	Preview       string    `json:"preview,omitempty"`
}

// DatagramPayload
// archived datagram bytes
type DatagramPayload struct {
	Key     string `json:"key"`
	Payload []byte `json:"payload"`
}

// InspectionReport
// counters of the current or the last finished inspection session
type InspectionReport struct {
	Id                 string         `json:"id,omitempty"`
	Status             RequestStatus  `json:"status,omitempty"`
	LinkType           string         `json:"link_type,omitempty"`
	Frames             int            `json:"frames"`
	IPv4Frames         int            `json:"ipv4_frames"`
	Fragments          int            `json:"fragments"`
	Datagrams          int            `json:"datagrams"`
	PendingDatagrams   int            `json:"pending_datagrams"` // for a finished session, the ones left incomplete at its end
	EvictedDatagrams   int            `json:"evicted_datagrams"`
	DiscardedDatagrams int            `json:"discarded_datagrams"`
	Errors             map[string]int `json:"errors,omitempty"`
}

const (
	EventDatagram   = "datagram"
	EventSessionEnd = "session_end"
)

// NotificationEvent
// webhook message body
type NotificationEvent struct {
	Event    string            `json:"event"`
	Datagram *DatagramView     `json:"datagram,omitempty"`
	Report   *InspectionReport `json:"report,omitempty"`
}
