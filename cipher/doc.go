// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cipher defines the thin wrappers around the cryptographic
// primitives used in mutechan. Algorithm selection happens in the callers
// (see package algo); the functions here only implement a single primitive
// each and never decide between alternatives.
package cipher
