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

package datagram_log

import (
	"database/sql"
	"time"

	"github.com/Netcracker/qubership-apihub-packet-inspector/services/inspector"
	"github.com/Netcracker/qubership-apihub-packet-inspector/view"
)

const (
	sinkName = "log"

	createDatagramsTable = `CREATE TABLE IF NOT EXISTS Datagrams (
	Datagram_Key VARCHAR(128) PRIMARY KEY,
	Session_Id VARCHAR(64) NOT NULL,
	Ip_Id INTEGER NOT NULL,
	Source_Ip VARCHAR(45) NOT NULL,
	Dest_Ip VARCHAR(45) NOT NULL,
	Protocol VARCHAR(16) NOT NULL,
	Length INTEGER NOT NULL,
	Fragments INTEGER NOT NULL,
	First_Seen BIGINT NOT NULL,
	Completed_At BIGINT NOT NULL,
	Content_Type VARCHAR(32),
	Preview TEXT)`
	createSessionIndex = `CREATE INDEX IF NOT EXISTS Datagrams_Session ON Datagrams(Session_Id)`
	insertDatagram     = `INSERT INTO Datagrams(Datagram_Key, Session_Id, Ip_Id, Source_Ip, Dest_Ip, Protocol, Length, Fragments, First_Seen, Completed_At, Content_Type, Preview)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	countDatagrams  = `SELECT count(Datagram_Key) FROM Datagrams where Session_Id=$1`
	selectDatagrams = `SELECT Datagram_Key, Session_Id, Ip_Id, Source_Ip, Dest_Ip, Protocol, Length, Fragments, First_Seen, Completed_At, Content_Type, Preview
	FROM Datagrams where Session_Id=$1 ORDER BY Datagram_Key LIMIT $2`
)

// DatagramLog
// a database table of completed datagrams
type DatagramLog interface {
	inspector.DatagramSink
	EnsureSchema() error
	StoreDatagram(d view.DatagramView) error
	GetDatagramCount(sessionId string) int
	ListDatagrams(sessionId string, limit int) ([]view.DatagramView, error)
	Close() error
}

type datagramLogImpl struct {
	db Connection
}

// NewDatagramLog
// connects and creates the table when missing
func NewDatagramLog(attrs ConnAttrs) (DatagramLog, error) {
	conn, err := MakeConnection(attrs)
	if err != nil {
		return nil, err
	}
	dl := &datagramLogImpl{db: conn}
	if err = dl.EnsureSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return dl, nil
}

func (dl *datagramLogImpl) Name() string {
	return sinkName
}

func (dl *datagramLogImpl) EnsureSchema() error {
	if err := dl.db.Execute(createDatagramsTable, nil); err != nil {
		return err
	}
	return dl.db.Execute(createSessionIndex, nil)
}

func (dl *datagramLogImpl) Consume(d inspector.CompletedDatagram) error {
	return dl.StoreDatagram(d.View())
}

func (dl *datagramLogImpl) StoreDatagram(d view.DatagramView) error {
	params := []interface{}{
		d.Key, d.SessionId, int(d.Id), d.SourceIP, d.DestinationIP, d.Protocol,
		d.Length, d.Fragments, d.FirstSeen.UnixMicro(), d.CompletedAt.UnixMicro(), d.ContentType, d.Preview,
	}
	return dl.db.Execute(insertDatagram, params)
}

// GetDatagramCount
// negative result means a database failure
func (dl *datagramLogImpl) GetDatagramCount(sessionId string) int {
	idv, err := dl.db.GetScalarValue(countDatagrams, []interface{}{sessionId})
	if err != nil {
		return -1
	}
	iVal, err := VarToInt(idv)
	if err != nil {
		return -2
	}
	return iVal
}

func (dl *datagramLogImpl) ListDatagrams(sessionId string, limit int) ([]view.DatagramView, error) {
	if limit <= 0 {
		limit = view.DefaultRecentListLimit
	}
	ret := make([]view.DatagramView, 0)
	err := dl.db.Query(selectDatagrams, []interface{}{sessionId, limit}, func(rows *sql.Rows) error {
		var (
			v                      view.DatagramView
			id                     int
			firstSeen, completedAt int64
			contentType, preview   sql.NullString
		)
		if err := rows.Scan(&v.Key, &v.SessionId, &id, &v.SourceIP, &v.DestinationIP, &v.Protocol,
			&v.Length, &v.Fragments, &firstSeen, &completedAt, &contentType, &preview); err != nil {
			return err
		}
		v.Id = uint16(id)
		v.FirstSeen = time.UnixMicro(firstSeen)
		v.CompletedAt = time.UnixMicro(completedAt)
		v.ContentType = contentType.String
		v.Preview = preview.String
		ret = append(ret, v)
		return nil
	})
	return ret, err
}

func (dl *datagramLogImpl) Close() error {
	return dl.db.Close()
}
