// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chandb

import (
	"errors"
)

// ErrUnknownChannel is returned if a channel name is not in the database.
var ErrUnknownChannel = errors.New("chandb: unknown channel")

// ErrChannelExists is returned if a channel name is already taken.
var ErrChannelExists = errors.New("chandb: channel already exists")

// ErrUnknownHandshake is returned if no pending handshake exists for a name.
var ErrUnknownHandshake = errors.New("chandb: unknown handshake")

// ErrEmptyName is returned if a channel or handshake name is empty.
var ErrEmptyName = errors.New("chandb: name must be defined")
