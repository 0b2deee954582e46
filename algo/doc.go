// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package algo defines the algorithm tags that every primitive exchanged over
// the wire carries, together with a deterministic preference order used to
// select among acceptable algorithms.
//
// Receivers dispatch on the tag and fail with ErrUnsupportedAlgorithm for
// tags they do not know, before any attempt is made to decode the payload.
package algo
