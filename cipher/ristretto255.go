// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"io"

	"github.com/gtank/ristretto255"
	"github.com/mutecomm/mutechan/log"
)

// Ristretto255Key holds a key pair in the ristretto255 prime-order group.
type Ristretto255Key struct {
	publicKey  *ristretto255.Element
	privateKey *ristretto255.Scalar
}

// Ristretto255Generate generates a new ristretto255 key pair.
func Ristretto255Generate(rand io.Reader) (*Ristretto255Key, error) {
	var uniform [64]byte
	if _, err := io.ReadFull(rand, uniform[:]); err != nil {
		return nil, log.Error(err)
	}
	priv, err := ristretto255.NewScalar().SetUniformBytes(uniform[:])
	if err != nil {
		return nil, log.Error(err)
	}
	return &Ristretto255Key{
		publicKey:  ristretto255.NewIdentityElement().ScalarBaseMult(priv),
		privateKey: priv,
	}, nil
}

// PublicKey returns the canonical encoding of the public key.
func (r *Ristretto255Key) PublicKey() []byte {
	return r.publicKey.Bytes()
}

// PrivateKey returns the canonical encoding of the private scalar.
func (r *Ristretto255Key) PrivateKey() []byte {
	return r.privateKey.Bytes()
}

// SetPrivateKey sets the private scalar to key and recomputes the public key.
func (r *Ristretto255Key) SetPrivateKey(key []byte) error {
	priv, err := ristretto255.NewScalar().SetCanonicalBytes(key)
	if err != nil {
		return log.Errorf("cipher: Ristretto255Key.SetPrivateKey(): %s", err)
	}
	r.privateKey = priv
	r.publicKey = ristretto255.NewIdentityElement().ScalarBaseMult(priv)
	return nil
}

// Ristretto255DH computes a Diffie-Hellman key exchange in the ristretto255
// group. The peer key must be a canonical, non-identity element different
// from the own public key.
func Ristretto255DH(privateKey, peersPublicKey, ownPublicKey []byte) (*[32]byte, error) {
	priv, err := ristretto255.NewScalar().SetCanonicalBytes(privateKey)
	if err != nil {
		return nil, log.Errorf("cipher: Ristretto255DH(): private key: %s", err)
	}
	peer, err := ristretto255.NewIdentityElement().SetCanonicalBytes(peersPublicKey)
	if err != nil {
		return nil, log.Errorf("cipher: Ristretto255DH(): peer key: %s", err)
	}
	if peer.Equal(ristretto255.NewIdentityElement()) == 1 {
		return nil, log.Error("cipher: Ristretto255DH(): peer key is the identity element")
	}
	own := ristretto255.NewIdentityElement().ScalarBaseMult(priv)
	if ownPublicKey != nil {
		own, err = ristretto255.NewIdentityElement().SetCanonicalBytes(ownPublicKey)
		if err != nil {
			return nil, log.Errorf("cipher: Ristretto255DH(): own key: %s", err)
		}
	}
	if own.Equal(peer) == 1 {
		return nil, log.Error("cipher: Ristretto255DH(): publicKey == peersPublicKey")
	}
	var sharedKey [32]byte
	copy(sharedKey[:], ristretto255.NewIdentityElement().ScalarMult(priv, peer).Bytes())
	return &sharedKey, nil
}
