// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbstore implements a write-once store.Store on top of an SQL
// database. It works with the sqlite3 handles returned by encdb and with
// MySQL.
package dbstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/store"

	_ "github.com/go-sql-driver/mysql" //
)

// ErrClosed is returned if trying to work with a closed DB connection.
var ErrClosed = errors.New("dbstore: DB is closed")

const (
	// CreateQuery creates the blob table. It is exported so it can be passed
	// to encdb.Create.
	CreateQuery = `CREATE TABLE IF NOT EXISTS blobs (
						Address VARCHAR(128),
						Data MEDIUMBLOB,
						CONSTRAINT Address UNIQUE (Address)
					);`
	selectQuery = `SELECT Data FROM blobs WHERE Address=?;`
	insertQuery = `INSERT INTO blobs (Address, Data) VALUES (?, ?);`
	countQuery  = `SELECT COUNT(*) FROM blobs;`
)

// Store is a store.Store kept in an SQL database.
type Store struct {
	db          *sql.DB
	selectQuery *sql.Stmt
	insertQuery *sql.Stmt
	countQuery  *sql.Stmt
	mayClose    bool
}

// NewFromDB returns a Store using an existing database handle. The handle
// is not closed by Close.
func NewFromDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, ErrClosed
	}
	s := &Store{db: db}
	if err := s.initDB(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromURL returns a Store connected to the MySQL database at dburl.
func NewFromURL(dburl string) (*Store, error) {
	db, err := sql.Open("mysql", dburl)
	if err != nil {
		return nil, log.Error(err)
	}
	s := &Store{db: db, mayClose: true}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initDB() error {
	var err error
	if _, err = s.db.Exec(CreateQuery); err != nil {
		return log.Error(err)
	}
	if s.insertQuery, err = s.db.Prepare(insertQuery); err != nil {
		return log.Error(err)
	}
	if s.selectQuery, err = s.db.Prepare(selectQuery); err != nil {
		return log.Error(err)
	}
	if s.countQuery, err = s.db.Prepare(countQuery); err != nil {
		return log.Error(err)
	}
	return nil
}

// Close releases the prepared statements and, if the Store opened the
// database itself, the database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	s.insertQuery.Close()
	s.selectQuery.Close()
	s.countQuery.Close()
	var err error
	if s.mayClose {
		err = s.db.Close()
	}
	s.db = nil
	return err
}

func (s *Store) lookup(ctx context.Context, addr store.Address) ([]byte, error) {
	var data []byte
	err := s.selectQuery.QueryRowContext(ctx, addr.String()).Scan(&data)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Put implements store.Store. Storing identical data twice at the same
// address succeeds, storing different data fails with store.ErrRejected.
func (s *Store) Put(ctx context.Context, addr store.Address, payload []byte) error {
	if s.db == nil {
		return &store.TransportError{Op: "put", Err: ErrClosed}
	}
	_, insertErr := s.insertQuery.ExecContext(ctx, addr.String(), payload)
	if insertErr == nil {
		return nil
	}
	// the insert fails on a duplicate address, find out whether it is one
	existing, err := s.lookup(ctx, addr)
	if err == sql.ErrNoRows {
		return &store.TransportError{Op: "put", Err: insertErr}
	}
	if err != nil {
		return &store.TransportError{Op: "put", Err: err}
	}
	if bytes.Equal(existing, payload) {
		return nil
	}
	log.Warnf("dbstore: rejected overwrite of %s", addr)
	return store.ErrRejected
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, addr store.Address) ([]byte, error) {
	if s.db == nil {
		return nil, &store.TransportError{Op: "get", Err: ErrClosed}
	}
	data, err := s.lookup(ctx, addr)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.TransportError{Op: "get", Err: err}
	}
	return data, nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int64
	if err := s.countQuery.QueryRow().Scan(&n); err != nil {
		return 0, log.Error(err)
	}
	return n, nil
}
