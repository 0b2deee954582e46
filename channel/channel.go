// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel implements forward-secure two-party channels on top of a
// content-addressed store.
//
// A channel owns a send and a receive hash ratchet derived from a shared
// secret. Every message is sealed with a key derived from the current ratchet
// state and published at an address that is a one-way function of the same
// state. The first message in each direction offers fresh key exchanges;
// whenever such an offer is pending, the next outgoing chat message answers
// it and the sending ratchet restarts from the new shared secret (rekey).
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/box"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/ratchet"
	"github.com/mutecomm/mutechan/store"
	"github.com/mutecomm/mutechan/util/bzero"
)

// Derivation labels.
const (
	openLabel      = "open-channel:"
	encryptPurpose = "message-encrypt"
	addressPurpose = "upload-address"
)

// Channel is one side of a two-party channel. All methods are safe for
// concurrent use; send and receive operations are serialized per channel.
type Channel struct {
	mutex           sync.Mutex
	st              store.Store
	cfg             *Config
	send            *ratchet.Ratchet
	recv            *ratchet.Ratchet
	receivedInitial bool
	initialSent     bool
	initial         []kex.Initiation // offers of the unpublished initial message
	pending         []kex.Initiation // peer offers not yet answered
	outstanding     [][]kex.Keypair  // own offers not yet answered, oldest first
}

func offer(cfg *Config) ([]kex.Initiation, []kex.Keypair, error) {
	inits := make([]kex.Initiation, 0, len(cfg.Offer))
	kps := make([]kex.Keypair, 0, len(cfg.Offer))
	for _, alg := range cfg.Offer {
		init, kp, err := kex.Initiate(alg, cfg.Rand)
		if err != nil {
			wipeKeypairs(kps)
			return nil, nil, err
		}
		inits = append(inits, *init)
		kps = append(kps, *kp)
	}
	return inits, kps, nil
}

func wipeKeypairs(kps []kex.Keypair) {
	for i := range kps {
		kps[i].Wipe()
	}
}

// New creates a channel from secret, the result of a key exchange between own
// and peer. The secret is wiped. The initial message is prepared but not
// published, call Flush (or use Open) to publish it.
func New(st store.Store, secret kex.SharedSecret, own, peer kex.PublicKey, cfg *Config) (*Channel, error) {
	defer secret.Wipe()
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if own.Equal(peer) {
		return nil, log.Error("channel: own and peer key are equal")
	}
	sendKey, err := cfg.KDF.Derive(secret, openLabel+string(own.Bytes()))
	if err != nil {
		return nil, log.Error(err)
	}
	defer bzero.Bytes(sendKey)
	recvKey, err := cfg.KDF.Derive(secret, openLabel+string(peer.Bytes()))
	if err != nil {
		return nil, log.Error(err)
	}
	defer bzero.Bytes(recvKey)
	send, err := ratchet.New(sendKey, cfg.KDF)
	if err != nil {
		return nil, err
	}
	recv, err := ratchet.New(recvKey, cfg.KDF)
	if err != nil {
		return nil, err
	}
	inits, kps, err := offer(cfg)
	if err != nil {
		return nil, err
	}
	log.Debugf("channel: new, offering %d key exchange(s)", len(inits))
	return &Channel{
		st:          st,
		cfg:         cfg,
		send:        send,
		recv:        recv,
		initial:     inits,
		outstanding: [][]kex.Keypair{kps},
	}, nil
}

// Open creates a channel with New and publishes the initial message. If the
// publication fails the channel is returned together with the error, so the
// caller can keep it and retry with Flush.
func Open(ctx context.Context, st store.Store, secret kex.SharedSecret, own, peer kex.PublicKey, cfg *Config) (*Channel, error) {
	c, err := New(st, secret, own, peer, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Flush(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// OpenExchange derives the shared secret from completed and opens a channel
// with it.
func OpenExchange(ctx context.Context, st store.Store, completed *kex.Completed, cfg *Config) (*Channel, error) {
	secret, err := completed.Derive()
	if err != nil {
		return nil, err
	}
	return Open(ctx, st, secret, completed.Own(), completed.Peer(), cfg)
}

// Flush publishes the initial message, if that has not happened yet.
func (c *Channel) Flush(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.flush(ctx)
}

func (c *Channel) flush(ctx context.Context) error {
	if c.initialSent {
		return nil
	}
	env := &envelope{
		Type:    typeInitial,
		Initial: &initialMessage{Available: c.initial},
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}
	c.initialSent = true
	c.initial = nil
	log.Debug("channel: initial message published")
	return nil
}

func address(r *ratchet.Ratchet) store.Address {
	key := r.CurrentKey(addressPurpose)
	defer bzero.Bytes(key)
	return store.Address(cipher.SHA256(key))
}

// publish seals env with the current send key and puts it at the current
// send address. The send ratchet is advanced only if the put succeeded.
func (c *Channel) publish(ctx context.Context, env *envelope) error {
	frame, err := encodeFrame(env, env.compressionHint())
	if err != nil {
		return err
	}
	key := c.send.CurrentKey(encryptPurpose)
	defer bzero.Bytes(key)
	b, err := box.Seal(c.cfg.AEAD, key, frame, c.cfg.Rand)
	bzero.Bytes(frame)
	if err != nil {
		return err
	}
	data, err := b.Marshal()
	if err != nil {
		return err
	}
	addr := address(c.send)
	if err := c.st.Put(ctx, addr, data); err != nil {
		return log.Error(fmt.Errorf("channel: put %s: %w", addr, err))
	}
	log.Debugf("channel: sent message type %d at send iteration %d",
		env.Type, c.send.Iteration())
	c.send.Advance()
	return nil
}

// SendChatMessage sends a chat message with the given body and returns its
// ID. The initial message is published first, if necessary. If the peer has
// offered a key exchange, the message is sent inside a rekey message and the
// send ratchet restarts from the new shared secret.
func (c *Channel) SendChatMessage(ctx context.Context, body chatmsg.Body) (chatmsg.ID, error) {
	msg, err := chatmsg.New(body, c.cfg.Now(), c.cfg.Rand)
	if err != nil {
		return chatmsg.ID{}, err
	}
	if err := c.SendMessage(ctx, msg); err != nil {
		return chatmsg.ID{}, err
	}
	return msg.ID, nil
}

// SendMessage sends the already constructed chat message msg, like
// SendChatMessage.
func (c *Channel) SendMessage(ctx context.Context, msg *chatmsg.Message) error {
	if err := msg.Validate(); err != nil {
		return log.Error(err)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.flush(ctx); err != nil {
		return err
	}
	if len(c.pending) > 0 {
		if err := c.sendRekey(ctx, msg); err != errNoRekey {
			return err
		}
	}
	return c.publish(ctx, &envelope{Type: typeChat, Chat: msg})
}

var errNoRekey = errors.New("channel: no acceptable rekey offer")

func (c *Channel) sendRekey(ctx context.Context, msg *chatmsg.Message) error {
	algs := make([]algo.KeyExchange, len(c.pending))
	for i := range c.pending {
		algs[i] = c.pending[i].Public.Alg
	}
	idx, err := algo.PreferredKeyExchange(algs)
	if err != nil {
		log.Debugf("channel: no acceptable offer among %d pending", len(algs))
		return errNoRekey
	}
	ans, completed, err := kex.Respond(&c.pending[idx], c.cfg.Rand)
	if err != nil {
		return err
	}
	secret, err := completed.Derive()
	if err != nil {
		// drop the offending offer, the next send tries the others
		c.pending = append(c.pending[:idx:idx], c.pending[idx+1:]...)
		return err
	}
	defer secret.Wipe()
	inits, kps, err := offer(c.cfg)
	if err != nil {
		return err
	}
	env := &envelope{
		Type: typeRekey,
		Rekey: &rekeyMessage{
			NewKey:        *ans,
			NewKDF:        c.cfg.KDF,
			NextAvailable: inits,
			Attached:      msg,
		},
	}
	if err := c.publish(ctx, env); err != nil {
		wipeKeypairs(kps)
		return err
	}
	send, err := ratchet.New(secret, c.cfg.KDF)
	if err != nil {
		return err
	}
	c.send.Wipe()
	c.send = send
	c.pending = nil
	c.outstanding = append(c.outstanding, kps)
	log.Debugf("channel: rekeyed send ratchet with %s", ans.Responder.Alg)
	return nil
}

// usableOffers filters offers with unknown algorithms or malformed keys.
func usableOffers(inits []kex.Initiation) []kex.Initiation {
	var usable []kex.Initiation
	for _, init := range inits {
		if init.Public.Alg.Supported() && len(init.Public.Key) == kex.KeySize {
			usable = append(usable, init)
		}
	}
	return usable
}

// receive fetches the box at the current receive address and decodes it.
// It returns nil, nil if nothing has been published there yet. Once data was
// fetched the receive ratchet is advanced, even if decoding fails.
func (c *Channel) receive(ctx context.Context) (*envelope, error) {
	addr := address(c.recv)
	data, err := c.st.Get(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		log.Tracef("channel: nothing at receive iteration %d", c.recv.Iteration())
		return nil, nil
	}
	if err != nil {
		return nil, log.Error(fmt.Errorf("channel: get %s: %w", addr, err))
	}
	key := c.recv.CurrentKey(encryptPurpose)
	defer bzero.Bytes(key)
	log.Debugf("channel: received message at receive iteration %d", c.recv.Iteration())
	c.recv.Advance()
	b, err := box.UnmarshalAuthenticated(data)
	if err != nil {
		if err == algo.ErrUnsupportedAlgorithm {
			return nil, err
		}
		return nil, log.Error(ErrMalformed)
	}
	frame, err := box.Open(b, key)
	if err != nil {
		return nil, err
	}
	defer bzero.Bytes(frame)
	return decodeFrame(frame)
}

// TryReceiveMessage returns the next chat message from the peer or nil, if
// there is none yet. The peer's initial message is consumed implicitly.
func (c *Channel) TryReceiveMessage(ctx context.Context) (*chatmsg.Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.receivedInitial {
		env, err := c.receive(ctx)
		if err != nil || env == nil {
			return nil, err
		}
		if env.Type != typeInitial {
			return nil, log.Error(ErrUnexpectedMessage)
		}
		c.receivedInitial = true
		c.pending = usableOffers(env.Initial.Available)
		log.Debugf("channel: established, peer offers %d key exchange(s)", len(c.pending))
	}
	env, err := c.receive(ctx)
	if err != nil || env == nil {
		return nil, err
	}
	var msg *chatmsg.Message
	switch env.Type {
	case typeChat:
		msg = env.Chat
	case typeRekey:
		msg, err = c.completeRekey(env.Rekey)
		if err != nil {
			return nil, err
		}
	default:
		return nil, log.Error(ErrUnexpectedMessage)
	}
	if err := msg.Validate(); err != nil {
		return nil, log.Error(fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return msg, nil
}

func (c *Channel) completeRekey(rk *rekeyMessage) (*chatmsg.Message, error) {
	if !rk.NewKDF.Supported() {
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	for i, kps := range c.outstanding {
		for j := range kps {
			if !kex.Matches(&rk.NewKey, &kps[j]) {
				continue
			}
			completed, err := kex.Complete(&rk.NewKey, &kps[j])
			if err != nil {
				return nil, err
			}
			secret, err := completed.Derive()
			if err != nil {
				return nil, err
			}
			recv, err := ratchet.New(secret, rk.NewKDF)
			secret.Wipe()
			if err != nil {
				return nil, err
			}
			c.recv.Wipe()
			c.recv = recv
			c.pending = usableOffers(rk.NextAvailable)
			for _, drained := range c.outstanding[:i+1] {
				wipeKeypairs(drained)
			}
			c.outstanding = c.outstanding[i+1:]
			log.Debugf("channel: rekeyed receive ratchet, matched offer set %d", i)
			return rk.Attached, nil
		}
	}
	return nil, log.Error(ErrFailedRekey)
}

// Established returns true, if the peer's initial message has been received.
func (c *Channel) Established() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.receivedInitial
}

// Status describes the state of a channel.
type Status struct {
	Established      bool
	InitialSent      bool
	SendIteration    uint64
	ReceiveIteration uint64
	PendingOffers    int
	OutstandingSets  int
	KDF              string
	AEAD             string
}

// Status returns a description of the state of c without secrets.
func (c *Channel) Status() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return Status{
		Established:      c.receivedInitial,
		InitialSent:      c.initialSent,
		SendIteration:    c.send.Iteration(),
		ReceiveIteration: c.recv.Iteration(),
		PendingOffers:    len(c.pending),
		OutstandingSets:  len(c.outstanding),
		KDF:              c.send.KDF().String(),
		AEAD:             c.cfg.AEAD.String(),
	}
}
