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
	"fmt"
	"strconv"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

type Driver string

const (
	DriverSqlite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

type ConnAttrs struct {
	Host     string
	Port     int
	User     string
	Password string
	DbName   string
	Driver   Driver
}

type Connection interface {
	GetPrepareStatement(stmtSQL string) (*sql.Stmt, error)
	GetScalarValue(sqlStmt string, params []interface{}) (interface{}, error)
	Execute(sqlStmt string, params []interface{}) error
	Query(sqlStmt string, params []interface{}, scan func(rows *sql.Rows) error) error
	Close() error
}

type connection struct {
	db         *sql.DB
	lock       sync.Mutex
	statements map[string]*sql.Stmt
}

// MakeConnection
// opens a database handle for the configured driver
func MakeConnection(conn ConnAttrs) (Connection, error) {
	var (
		connectionString string
		err              error
		db               *sql.DB
	)
	switch conn.Driver {
	case DriverSqlite:
		connectionString = fmt.Sprintf("file:%s", conn.DbName)
	case DriverPostgres:
		connectionString = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			conn.Host, conn.Port, conn.User, conn.Password, conn.DbName)
	default:
		return nil, fmt.Errorf("driver %s not supported", conn.Driver)
	}
	db, err = sql.Open(string(conn.Driver), connectionString)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s database '%s': %v", conn.Driver, conn.DbName, err)
	}
	if conn.Driver == DriverSqlite {
		db.SetMaxOpenConns(1) // sqlite allows a single writer
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to %s database '%s': %v", conn.Driver, conn.DbName, err)
	}
	return &connection{db: db, statements: make(map[string]*sql.Stmt)}, nil
}

func (pg *connection) GetPrepareStatement(stmtSQL string) (*sql.Stmt, error) {
	pg.lock.Lock()
	defer pg.lock.Unlock()
	if val, ok := pg.statements[stmtSQL]; ok {
		return val, nil
	}
	stmt, err := pg.db.Prepare(stmtSQL)
	if err == nil {
		pg.statements[stmtSQL] = stmt
	}
	return stmt, err
}

func (pg *connection) GetScalarValue(sqlStmt string, params []interface{}) (interface{}, error) {
	stmt, err := pg.GetPrepareStatement(sqlStmt)
	if err != nil {
		return -1, err
	}
	var id interface{}
	err = stmt.QueryRow(params...).Scan(&id)
	return id, err
}

func (pg *connection) Execute(sqlStmt string, params []interface{}) error {
	stmt, err := pg.GetPrepareStatement(sqlStmt)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(params...)
	return err
}

// Query
// calls scan for every returned row
func (pg *connection) Query(sqlStmt string, params []interface{}, scan func(rows *sql.Rows) error) error {
	stmt, err := pg.GetPrepareStatement(sqlStmt)
	if err != nil {
		return err
	}
	rows, err := stmt.Query(params...)
	if err != nil {
		return err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)
	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (pg *connection) Close() error {
	pg.lock.Lock()
	defer pg.lock.Unlock()
	for text, stmt := range pg.statements {
		if err := stmt.Close(); err != nil {
			log.Debugf("unable to close statement '%s': %v", text, err)
		}
	}
	pg.statements = make(map[string]*sql.Stmt)
	return pg.db.Close()
}

func VarToInt(idv interface{}) (int, error) {
	s1 := fmt.Sprintf("%v", idv)
	s2, err := strconv.Atoi(s1)
	if err != nil {
		log.Errorf("unable to convert returned value '%v' to int: %v", idv, err)
		return -2, err
	}
	return s2, nil
}
