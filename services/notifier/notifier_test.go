package notifier

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/entities"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/services/reassembly"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completed(seq int) inspector.CompletedDatagram {
	return inspector.CompletedDatagram{
		SessionId: "s1",
		Seq:       seq,
		Datagram: &reassembly.Datagram{
			Header: entities.FragmentHeader{
				Id:            1234,
				SourceIP:      net.IPv4(192, 168, 1, 1),
				DestinationIP: net.IPv4(192, 168, 1, 2),
				Protocol:      entities.ProtocolUDP,
			},
			Payload:   []byte("Hello, World!"),
			Fragments: 1,
		},
	}
}

func TestNotificationSender(t *testing.T) {
	var (
		lock   sync.Mutex
		events []view.NotificationEvent
		keys   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var event view.NotificationEvent
		assert.NoError(t, json.Unmarshal(body, &event))
		lock.Lock()
		events = append(events, event)
		keys = append(keys, r.Header.Get(view.ApiKeyHeader))
		lock.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ns := NewNotificationSender(entities.NotificationConfig{URL: srv.URL, APIkey: "secret", Timeout: time.Second})
	assert.Equal(t, "notifier", ns.Name())
	require.NoError(t, ns.Consume(completed(1)))
	ns.NotifySessionEnd(view.InspectionReport{Id: "s1", Datagrams: 1})
	ns.Stop()

	assert.Equal(t, 2, ns.Delivered())
	require.Len(t, events, 2)
	assert.Equal(t, view.EventDatagram, events[0].Event)
	require.NotNil(t, events[0].Datagram)
	assert.Equal(t, "s1_000001", events[0].Datagram.Key)
	assert.Equal(t, "Hello, World!", events[0].Datagram.Preview)
	assert.Equal(t, view.EventSessionEnd, events[1].Event)
	require.NotNil(t, events[1].Report)
	assert.Equal(t, 1, events[1].Report.Datagrams)
	assert.Equal(t, []string{"secret", "secret"}, keys)
}

func TestNotificationFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	ns := NewNotificationSender(entities.NotificationConfig{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, ns.Consume(completed(1)))
	ns.Stop()
	assert.Equal(t, 0, ns.Delivered())
}

func TestNotificationQueueOverflow(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	ns := NewNotificationSender(entities.NotificationConfig{URL: srv.URL, QueueSize: 1, Timeout: 5 * time.Second})
	var failed int
	for i := 1; i <= 5; i++ {
		if ns.Consume(completed(i)) != nil {
			failed++
		}
	}
	close(release)
	ns.Stop()
	assert.Greater(t, failed, 0)
	assert.Equal(t, failed, ns.Dropped())
	assert.Equal(t, 5-failed, ns.Delivered())
}
