// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package algo

import (
	"errors"
)

// ErrUnsupportedAlgorithm is returned if an algorithm tag is unknown.
var ErrUnsupportedAlgorithm = errors.New("algo: unsupported algorithm")

// ErrNoAcceptableAlgorithm is returned if no candidate has a non-negative
// priority.
var ErrNoAcceptableAlgorithm = errors.New("algo: no acceptable algorithm")
