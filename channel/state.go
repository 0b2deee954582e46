// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/ratchet"
	"github.com/mutecomm/mutechan/store"
)

const stateVersion = 1

// state is the persistent form of a Channel. It contains private keys.
type state struct {
	Version         uint8            `cbor:"1,keyasint"`
	Send            ratchet.State    `cbor:"2,keyasint"`
	Recv            ratchet.State    `cbor:"3,keyasint"`
	ReceivedInitial bool             `cbor:"4,keyasint"`
	InitialSent     bool             `cbor:"5,keyasint"`
	Initial         []kex.Initiation `cbor:"6,keyasint,omitempty"`
	Pending         []kex.Initiation `cbor:"7,keyasint,omitempty"`
	Outstanding     [][]kex.Keypair  `cbor:"8,keyasint,omitempty"`
}

// MarshalBinary returns the state of c as an opaque blob. The blob contains
// the ratchet states and private keys and must be stored encrypted.
func (c *Channel) MarshalBinary() ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	s := state{
		Version:         stateVersion,
		Send:            c.send.State(),
		Recv:            c.recv.State(),
		ReceivedInitial: c.receivedInitial,
		InitialSent:     c.initialSent,
		Initial:         c.initial,
		Pending:         c.pending,
		Outstanding:     c.outstanding,
	}
	blob, err := cbor.Marshal(&s)
	if err != nil {
		return nil, log.Error(err)
	}
	return blob, nil
}

// Restore recreates a channel from a blob returned by MarshalBinary.
func Restore(blob []byte, st store.Store, cfg *Config) (*Channel, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	var s state
	if err := cbor.Unmarshal(blob, &s); err != nil {
		return nil, log.Error(ErrMalformed)
	}
	if s.Version != stateVersion {
		return nil, log.Errorf("channel: unknown state version %d", s.Version)
	}
	send, err := ratchet.FromState(s.Send)
	if err != nil {
		return nil, log.Error(ErrMalformed)
	}
	recv, err := ratchet.FromState(s.Recv)
	if err != nil {
		send.Wipe()
		return nil, log.Error(ErrMalformed)
	}
	return &Channel{
		st:              st,
		cfg:             cfg,
		send:            send,
		recv:            recv,
		receivedInitial: s.ReceivedInitial,
		initialSent:     s.InitialSent,
		initial:         s.Initial,
		pending:         s.Pending,
		outstanding:     s.Outstanding,
	}, nil
}
