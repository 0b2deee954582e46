// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kex implements the three message Diffie-Hellman key exchange used
// to establish and rekey channels: Initiate, Respond and Complete. Every key
// carries its algorithm tag.
package kex

import (
	"bytes"
	"crypto/subtle"
	"io"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
)

// KeySize is the size of public keys, private keys and shared secrets for
// all supported algorithms.
const KeySize = 32

// PublicKey is an algorithm-tagged public key.
type PublicKey struct {
	Alg algo.KeyExchange `cbor:"1,keyasint"`
	Key []byte           `cbor:"2,keyasint"`
}

// Bytes returns the tag byte followed by the key. Used to bind derivations to
// a key.
func (pk PublicKey) Bytes() []byte {
	return append([]byte{byte(pk.Alg)}, pk.Key...)
}

// Equal returns true, if pk and other are the same key for the same algorithm.
func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.Alg == other.Alg && bytes.Equal(pk.Key, other.Key)
}

func (pk PublicKey) check() error {
	if !pk.Alg.Supported() {
		return algo.ErrUnsupportedAlgorithm
	}
	if len(pk.Key) != KeySize {
		return ErrInvalidKey
	}
	return nil
}

// Keypair is an ephemeral key pair. The private key must never leave the
// local party unencrypted.
type Keypair struct {
	Public  PublicKey `cbor:"1,keyasint"`
	Private []byte    `cbor:"2,keyasint"`
}

// Wipe zeroes the private key.
func (kp *Keypair) Wipe() {
	bzero.Bytes(kp.Private)
}

// Initiation is the first message of an exchange.
type Initiation struct {
	Public PublicKey `cbor:"1,keyasint"`
}

// Answer is the responder's reply. It echoes the initiator's key so the
// initiator can find the matching keypair.
type Answer struct {
	Initiator PublicKey `cbor:"1,keyasint"`
	Responder PublicKey `cbor:"2,keyasint"`
}

// SharedSecret is the output of a completed exchange.
type SharedSecret []byte

// Wipe zeroes the secret.
func (s SharedSecret) Wipe() {
	bzero.Bytes(s)
}

// Completed is an exchange ready for derivation. It holds the peer's public
// key and the own key pair and is never serialized.
type Completed struct {
	peer     PublicKey
	own      Keypair
	consumed bool
}

// Own returns the own public key of the exchange.
func (c *Completed) Own() PublicKey {
	return c.own.Public
}

// Peer returns the peer's public key of the exchange.
func (c *Completed) Peer() PublicKey {
	return c.peer
}

func generate(alg algo.KeyExchange, rand io.Reader) (*Keypair, error) {
	switch alg {
	case algo.X25519:
		k, err := cipher.Curve25519Generate(rand)
		if err != nil {
			return nil, err
		}
		return &Keypair{
			Public:  PublicKey{Alg: alg, Key: append([]byte(nil), k.PublicKey()[:]...)},
			Private: append([]byte(nil), k.PrivateKey()[:]...),
		}, nil
	case algo.Ristretto255:
		k, err := cipher.Ristretto255Generate(rand)
		if err != nil {
			return nil, err
		}
		return &Keypair{
			Public:  PublicKey{Alg: alg, Key: k.PublicKey()},
			Private: k.PrivateKey(),
		}, nil
	default:
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
}

// Initiate generates a fresh ephemeral key pair for alg and returns the
// initiation to transmit together with the key pair to keep.
func Initiate(alg algo.KeyExchange, rand io.Reader) (*Initiation, *Keypair, error) {
	kp, err := generate(alg, rand)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("kex: initiate %s", alg)
	return &Initiation{Public: kp.Public}, kp, nil
}

// Respond answers the initiation init with a fresh key pair of the same
// algorithm.
func Respond(init *Initiation, rand io.Reader) (*Answer, *Completed, error) {
	if err := init.Public.check(); err != nil {
		return nil, nil, log.Error(err)
	}
	kp, err := generate(init.Public.Alg, rand)
	if err != nil {
		return nil, nil, err
	}
	ans := &Answer{Initiator: init.Public, Responder: kp.Public}
	return ans, &Completed{peer: init.Public, own: *kp}, nil
}

// Complete matches local.Public against either side of ans to determine the
// peer's public key.
func Complete(ans *Answer, local *Keypair) (*Completed, error) {
	if err := ans.Initiator.check(); err != nil {
		return nil, log.Error(err)
	}
	if err := ans.Responder.check(); err != nil {
		return nil, log.Error(err)
	}
	if ans.Initiator.Alg != ans.Responder.Alg {
		return nil, log.Error(ErrAlgorithmMismatch)
	}
	own := Keypair{
		Public:  local.Public,
		Private: append([]byte(nil), local.Private...),
	}
	switch {
	case local.Public.Equal(ans.Initiator):
		return &Completed{peer: ans.Responder, own: own}, nil
	case local.Public.Equal(ans.Responder):
		return &Completed{peer: ans.Initiator, own: own}, nil
	}
	return nil, ErrNoMatchingKey
}

// Matches returns true, if local is one side of ans. It does not log.
func Matches(ans *Answer, local *Keypair) bool {
	return local.Public.Equal(ans.Initiator) || local.Public.Equal(ans.Responder)
}

// Derive performs the Diffie-Hellman computation and returns the shared
// secret. The private key is wiped afterwards, a second call fails with
// ErrConsumed.
func (c *Completed) Derive() (SharedSecret, error) {
	if c.consumed {
		return nil, log.Error(ErrConsumed)
	}
	c.consumed = true
	defer c.own.Wipe()
	if c.own.Public.Alg != c.peer.Alg {
		return nil, log.Error(ErrAlgorithmMismatch)
	}
	if len(c.own.Private) != KeySize {
		return nil, log.Error(ErrInvalidKey)
	}
	var shared *[32]byte
	var err error
	switch c.peer.Alg {
	case algo.X25519:
		var priv, peer, own [32]byte
		copy(priv[:], c.own.Private)
		copy(peer[:], c.peer.Key)
		copy(own[:], c.own.Public.Key)
		shared, err = cipher.ECDH(&priv, &peer, &own)
		bzero.Bytes32(&priv)
	case algo.Ristretto255:
		shared, err = cipher.Ristretto255DH(c.own.Private, c.peer.Key, c.own.Public.Key)
	default:
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(shared[:], make([]byte, KeySize)) == 1 {
		return nil, log.Error("kex: all-zero shared secret")
	}
	secret := SharedSecret(append([]byte(nil), shared[:]...))
	bzero.Bytes32(shared)
	return secret, nil
}
