// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"errors"
)

// ErrUnexpectedMessage is returned if a message arrives out of sequence, for
// example a chat message before the peer's initial message.
var ErrUnexpectedMessage = errors.New("channel: unexpected message")

// ErrFailedRekey is returned if a rekey message matches none of the
// outstanding key exchange offers. The channel cannot recover from this.
var ErrFailedRekey = errors.New("channel: failed rekey")

// ErrMalformed is returned for messages that cannot be decoded.
var ErrMalformed = errors.New("channel: malformed message")

// ErrInvalidConfig is returned for configurations with unsupported
// algorithms.
var ErrInvalidConfig = errors.New("channel: invalid config")
