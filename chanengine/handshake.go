// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"fmt"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/chandb"
	"github.com/mutecomm/mutechan/channel"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/handshake"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
)

// invite creates an invite for the channel name and keeps its keypair until
// finish is called with the reply.
func (ce *ChanEngine) invite(name, kexName string) error {
	alg, err := algo.ParseKeyExchange(kexName)
	if err != nil {
		return err
	}
	own, signer, err := ce.identity()
	if err != nil {
		return err
	}
	if _, err := ce.chanDB.GetChannel(name); err != chandb.ErrUnknownChannel {
		if err == nil {
			return log.Error(chandb.ErrChannelExists)
		}
		return err
	}
	inv, kp, err := handshake.NewInvite(own, alg, signer, cipher.RandReader)
	if err != nil {
		return err
	}
	defer kp.Wipe()
	if err := ce.chanDB.AddHandshake(name, kp); err != nil {
		return err
	}
	fmt.Fprintln(ce.out, inv.String())
	return nil
}

// accept answers an invite and opens the channel name.
func (ce *ChanEngine) accept(name, text string) error {
	own, signer, err := ce.identity()
	if err != nil {
		return err
	}
	reply, completed, peer, err := handshake.Accept(text, own, signer, cipher.RandReader)
	if err != nil {
		return err
	}
	if err := ce.open(name, completed, peer); err != nil {
		return err
	}
	fmt.Fprintln(ce.out, reply)
	return nil
}

// finish opens the channel name with the reply to an earlier invite.
func (ce *ChanEngine) finish(name, text string) error {
	if err := ce.openDB(); err != nil {
		return err
	}
	kp, err := ce.chanDB.GetHandshake(name)
	if err != nil {
		return err
	}
	defer kp.Wipe()
	completed, peer, err := handshake.Finish(text, kp)
	if err != nil {
		return err
	}
	if err := ce.open(name, completed, peer); err != nil {
		return err
	}
	return ce.chanDB.DelHandshake(name)
}

// open creates the channel name from a completed exchange and stores it.
func (ce *ChanEngine) open(name string, completed *kex.Completed, peer *handshake.Peer) error {
	st, err := ce.store()
	if err != nil {
		return err
	}
	ch, err := channel.OpenExchange(ce.ctx, st, completed, ce.chanCfg)
	if ch == nil {
		return err
	}
	if err != nil {
		log.Warnf("chanengine: initial message of '%s' not published: %s", name, err)
	}
	state, err := ch.MarshalBinary()
	if err != nil {
		return err
	}
	defer wipe(state)
	if err := ce.chanDB.AddChannel(name, peer.SigningKey, state, ce.chanCfg.Now()); err != nil {
		return err
	}
	fmt.Fprintf(ce.out, "opened channel '%s' with %s (fingerprint %s)\n",
		name, peer.Name, peer.Fingerprint())
	return nil
}
