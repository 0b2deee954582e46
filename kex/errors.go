// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kex

import (
	"errors"
)

// ErrNoMatchingKey is returned by Complete if the local public key matches
// neither side of an answer.
var ErrNoMatchingKey = errors.New("kex: no matching key")

// ErrAlgorithmMismatch is returned if the public keys of an exchange use
// different algorithms.
var ErrAlgorithmMismatch = errors.New("kex: algorithm mismatch")

// ErrConsumed is returned if a completed exchange is derived a second time.
var ErrConsumed = errors.New("kex: exchange already consumed")

// ErrInvalidKey is returned for public or private keys of the wrong size.
var ErrInvalidKey = errors.New("kex: invalid key")
