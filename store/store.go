// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store defines the interface to the content-addressed store
// channels publish to and fetch from.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mutecomm/mutechan/encode/base64"
)

// ErrNotFound is returned by Get if nothing has been published at an
// address (yet). It is expected and not a failure.
var ErrNotFound = errors.New("store: not found")

// ErrRejected is returned by Put if the store refuses the payload.
var ErrRejected = errors.New("store: rejected")

// TransportError wraps any failure to reach the store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store: %s: transport failure: %v", e.Op, e.Err)
}

// Unwrap returns the cause of e.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport returns true, if err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Address is an opaque store address.
type Address []byte

// String returns the unpadded base64url encoding of a.
func (a Address) String() string {
	return base64.EncodeURL(a)
}

// ParseAddress parses the result of Address.String.
func ParseAddress(s string) (Address, error) {
	a, err := base64.DecodeURL(s)
	if err != nil {
		return nil, err
	}
	return Address(a), nil
}

// The Store interface defines the operations channels need from a
// content-addressed store. Implementations must be safe for concurrent use.
type Store interface {
	// Put publishes payload at addr. It returns ErrRejected or a
	// *TransportError on failure.
	Put(ctx context.Context, addr Address, payload []byte) error
	// Get fetches the payload at addr. It returns ErrNotFound if nothing has
	// been published there, or a *TransportError.
	Get(ctx context.Context, addr Address) ([]byte, error)
}
