// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratchet

import (
	"bytes"
	"testing"

	"github.com/mutecomm/mutechan/algo"
)

var seed = []byte("0123456789abcdef0123456789abcdef")

func TestNew(t *testing.T) {
	if _, err := New(seed, algo.KDF(0)); err != algo.ErrUnsupportedAlgorithm {
		t.Error("err != algo.ErrUnsupportedAlgorithm")
	}
	if _, err := New(nil, algo.HKDFSHA512); err != ErrInvalidMaterial {
		t.Error("err != ErrInvalidMaterial")
	}
	if _, err := New(bytes.Repeat([]byte{1}, 100), algo.BLAKE2b); err != ErrInvalidMaterial {
		t.Error("err != ErrInvalidMaterial")
	}
	if _, err := FromState(State{KDF: algo.BLAKE2b, Material: make([]byte, 65)}); err != ErrInvalidMaterial {
		t.Error("err != ErrInvalidMaterial")
	}
	if _, err := New(bytes.Repeat([]byte{1}, 64), algo.BLAKE2b); err != nil {
		t.Error(err)
	}
	r, err := New(seed, algo.HKDFSHA512)
	if err != nil {
		t.Fatal(err)
	}
	if r.Iteration() != 0 {
		t.Error("r.Iteration() != 0")
	}
}

func TestAdvance(t *testing.T) {
	r, err := New(seed, algo.BLAKE2b)
	if err != nil {
		t.Fatal(err)
	}
	k0 := r.CurrentKey("x")
	if !bytes.Equal(k0, r.CurrentKey("x")) {
		t.Error("CurrentKey must not mutate")
	}
	if bytes.Equal(k0, r.CurrentKey("y")) {
		t.Error("purposes must separate keys")
	}
	r.Advance()
	if r.Iteration() != 1 {
		t.Error("r.Iteration() != 1")
	}
	if bytes.Equal(k0, r.CurrentKey("x")) {
		t.Error("advance must change keys")
	}
}

func TestFastForward(t *testing.T) {
	for _, kdf := range []algo.KDF{algo.HKDFSHA512, algo.BLAKE2b} {
		for i := uint64(0); i < 5; i++ {
			for j := i; j < 8; j++ {
				r, err := New(seed, kdf)
				if err != nil {
					t.Fatal(err)
				}
				for n := uint64(0); n < i; n++ {
					r.Advance()
				}
				got, err := r.GetKey(j, "purpose")
				if err != nil {
					t.Fatal(err)
				}
				if r.Iteration() != i {
					t.Fatal("GetKey must not mutate the ratchet")
				}
				c := r.Clone()
				for c.Iteration() < j {
					c.Advance()
				}
				if !bytes.Equal(got, c.CurrentKey("purpose")) {
					t.Errorf("%s: GetKey(%d) after %d advances differs", kdf, j, i)
				}
			}
		}
	}
}

func TestNoRewind(t *testing.T) {
	r, err := New(seed, algo.HKDFSHA512)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AdvanceTo(3); err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < 3; i++ {
		if _, err := r.GetKey(i, "x"); err != ErrIterationInPast {
			t.Errorf("GetKey(%d): err != ErrIterationInPast", i)
		}
	}
	if err := r.AdvanceTo(2); err != ErrIterationInPast {
		t.Error("err != ErrIterationInPast")
	}
	if _, err := r.GetKey(3, "x"); err != nil {
		t.Error(err)
	}
}

func TestState(t *testing.T) {
	r, err := New(seed, algo.BLAKE2b)
	if err != nil {
		t.Fatal(err)
	}
	r.Advance()
	r.Advance()
	s := r.State()
	restored, err := FromState(s)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Iteration() != 2 || restored.KDF() != algo.BLAKE2b {
		t.Error("restored ratchet differs")
	}
	if !bytes.Equal(r.CurrentKey("x"), restored.CurrentKey("x")) {
		t.Error("restored keys differ")
	}
	r.Advance()
	if bytes.Equal(r.CurrentKey("x"), restored.CurrentKey("x")) {
		t.Error("snapshot must be independent")
	}
}
