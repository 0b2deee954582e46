// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package box

import (
	"errors"
)

// ErrDecryptionFailed is the single failure of Open.
var ErrDecryptionFailed = errors.New("box: decryption failed")

// ErrInvalidSignature is returned if a signed box does not verify.
var ErrInvalidSignature = errors.New("box: invalid signature")
