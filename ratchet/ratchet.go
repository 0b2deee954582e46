// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ratchet implements a one-way hash ratchet. Each step replaces the
// state with KDF(state, "ratchet-advance"), purpose-bound keys are derived as
// KDF(state, purpose). Past states cannot be recovered.
package ratchet

import (
	"errors"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
)

const advanceLabel = "ratchet-advance"

// ErrIterationInPast is returned if a key for an iteration before the current
// one is requested.
var ErrIterationInPast = errors.New("ratchet: iteration in the past")

// ErrInvalidMaterial is returned if the seed material cannot be used with the
// requested KDF.
var ErrInvalidMaterial = errors.New("ratchet: invalid material")

// Ratchet is a hash ratchet. The zero value is not usable, use New.
type Ratchet struct {
	kdf       algo.KDF
	iteration uint64
	state     []byte
}

// State is a snapshot of a Ratchet for persistence.
type State struct {
	KDF       algo.KDF `cbor:"1,keyasint"`
	Iteration uint64   `cbor:"2,keyasint"`
	Material  []byte   `cbor:"3,keyasint"`
}

// New returns a ratchet at iteration 0 seeded with material. The material is
// copied.
func New(material []byte, kdf algo.KDF) (*Ratchet, error) {
	if !kdf.Supported() {
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	if len(material) == 0 {
		return nil, log.Error(ErrInvalidMaterial)
	}
	// every later step derives from a KDF output, only the seed can be rejected
	trial, err := kdf.Derive(material, advanceLabel)
	if err != nil {
		return nil, log.Error(ErrInvalidMaterial)
	}
	bzero.Bytes(trial)
	return &Ratchet{
		kdf:   kdf,
		state: append([]byte(nil), material...),
	}, nil
}

// FromState restores a ratchet from a snapshot.
func FromState(s State) (*Ratchet, error) {
	r, err := New(s.Material, s.KDF)
	if err != nil {
		return nil, err
	}
	r.iteration = s.Iteration
	return r, nil
}

// State returns a snapshot of r.
func (r *Ratchet) State() State {
	return State{
		KDF:       r.kdf,
		Iteration: r.iteration,
		Material:  append([]byte(nil), r.state...),
	}
}

// KDF returns the key derivation function of r.
func (r *Ratchet) KDF() algo.KDF {
	return r.kdf
}

// Iteration returns the current iteration of r.
func (r *Ratchet) Iteration() uint64 {
	return r.iteration
}

// Clone returns an independent copy of r.
func (r *Ratchet) Clone() *Ratchet {
	return &Ratchet{
		kdf:       r.kdf,
		iteration: r.iteration,
		state:     append([]byte(nil), r.state...),
	}
}

func (r *Ratchet) derive(info string) []byte {
	key, err := r.kdf.Derive(r.state, info)
	if err != nil {
		// New and FromState reject unusable KDFs and seeds
		panic(log.Critical(err))
	}
	return key
}

// Advance moves r one step forward and wipes the previous state.
func (r *Ratchet) Advance() {
	next := r.derive(advanceLabel)
	bzero.Bytes(r.state)
	r.state = next
	r.iteration++
}

// AdvanceTo fast-forwards r to iteration.
func (r *Ratchet) AdvanceTo(iteration uint64) error {
	if iteration < r.iteration {
		return log.Error(ErrIterationInPast)
	}
	for r.iteration < iteration {
		r.Advance()
	}
	return nil
}

// CurrentKey derives the key for purpose at the current iteration. r is not
// modified.
func (r *Ratchet) CurrentKey(purpose string) []byte {
	return r.derive(purpose)
}

// GetKey derives the key for purpose at iteration without modifying r.
func (r *Ratchet) GetKey(iteration uint64, purpose string) ([]byte, error) {
	if iteration < r.iteration {
		return nil, log.Error(ErrIterationInPast)
	}
	if iteration == r.iteration {
		return r.CurrentKey(purpose), nil
	}
	c := r.Clone()
	defer c.Wipe()
	if err := c.AdvanceTo(iteration); err != nil {
		return nil, err
	}
	return c.CurrentKey(purpose), nil
}

// Wipe zeroes the state of r. r must not be used afterwards.
func (r *Ratchet) Wipe() {
	bzero.Bytes(r.state)
}
