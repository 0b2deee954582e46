// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chatmsg

import (
	"errors"
)

// ErrInvalidKind is returned for unknown message kinds.
var ErrInvalidKind = errors.New("chatmsg: invalid kind")

// ErrEmptyText is returned for standard messages and replies without text.
var ErrEmptyText = errors.New("chatmsg: empty text")

// ErrEmptyIndicator is returned for reactions without an indicator.
var ErrEmptyIndicator = errors.New("chatmsg: empty reaction indicator")

// ErrMissingThread is returned for replies without thread.
var ErrMissingThread = errors.New("chatmsg: missing thread reference")

// ErrMissingTarget is returned for reactions without target.
var ErrMissingTarget = errors.New("chatmsg: missing reaction target")

// ErrInvalidUTF8 is returned if text or indicator are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("chatmsg: invalid UTF-8")

// ErrInvalidID is returned by ParseID for malformed IDs.
var ErrInvalidID = errors.New("chatmsg: invalid message ID")
