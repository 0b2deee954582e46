// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memstore implements an in-memory store.Store. Addresses are write
// once. It is used in tests and for local loops.
package memstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/mutecomm/mutechan/store"
)

// Op is the operation passed to a failure hook.
type Op string

// Operations.
const (
	OpPut Op = "put"
	OpGet Op = "get"
)

// Store is an in-memory store.
type Store struct {
	mutex sync.Mutex
	blobs map[string][]byte
	fail  func(op Op, addr store.Address) error
	puts  int
	gets  int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// SetFailHook installs fn, which is called before every operation. A non-nil
// result aborts the operation and is returned to the caller.
func (s *Store) SetFailHook(fn func(op Op, addr store.Address) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.fail = fn
}

// Put implements store.Store. Publishing identical data twice at the same
// address is accepted, different data is rejected.
func (s *Store) Put(ctx context.Context, addr store.Address, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return &store.TransportError{Op: string(OpPut), Err: err}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fail != nil {
		if err := s.fail(OpPut, addr); err != nil {
			return err
		}
	}
	s.puts++
	if old, ok := s.blobs[string(addr)]; ok {
		if bytes.Equal(old, payload) {
			return nil
		}
		return store.ErrRejected
	}
	s.blobs[string(addr)] = append([]byte(nil), payload...)
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, addr store.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &store.TransportError{Op: string(OpGet), Err: err}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fail != nil {
		if err := s.fail(OpGet, addr); err != nil {
			return nil, err
		}
	}
	s.gets++
	b, ok := s.blobs[string(addr)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Len returns the number of published blobs.
func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.blobs)
}

// Counts returns the number of successful puts and gets so far.
func (s *Store) Counts() (puts, gets int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.puts, s.gets
}

// Overwrite replaces the blob at addr regardless of the write-once rule.
// Used to simulate corrupted store entries.
func (s *Store) Overwrite(addr store.Address, payload []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.blobs[string(addr)] = append([]byte(nil), payload...)
}
