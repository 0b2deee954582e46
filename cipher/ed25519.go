// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"crypto/ed25519"
	"io"

	"github.com/mutecomm/mutechan/log"
)

// Ed25519Key holds an Ed25519 key pair. The public key may be set on its own
// to verify signatures.
type Ed25519Key struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// Ed25519Generate generates a new Ed25519 key pair.
func Ed25519Generate(rand io.Reader) (*Ed25519Key, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, log.Error(err)
	}
	return &Ed25519Key{publicKey, privateKey}, nil
}

// PublicKey returns the public key of an Ed25519Key.
func (ed25519Key *Ed25519Key) PublicKey() *[32]byte {
	var pk [32]byte
	copy(pk[:], ed25519Key.publicKey)
	return &pk
}

// PrivateKey returns the private key of an Ed25519Key.
func (ed25519Key *Ed25519Key) PrivateKey() *[64]byte {
	var pk [64]byte
	copy(pk[:], ed25519Key.privateKey)
	return &pk
}

// SetPublicKey sets the public key of ed25519Key to key.
// SetPublicKey returns an error, if len(key) != ed25519.PublicKeySize.
func (ed25519Key *Ed25519Key) SetPublicKey(key []byte) error {
	if len(key) != ed25519.PublicKeySize {
		return log.Errorf("cipher: Ed25519Key.SetPublicKey(): len(key) = %d != %d = ed25519.PublicKeySize",
			len(key), ed25519.PublicKeySize)
	}
	ed25519Key.publicKey = append(ed25519.PublicKey(nil), key...)
	return nil
}

// SetPrivateKey sets the private key of ed25519Key to key and derives the
// matching public key.
// SetPrivateKey returns an error, if len(key) != ed25519.PrivateKeySize.
func (ed25519Key *Ed25519Key) SetPrivateKey(key []byte) error {
	if len(key) != ed25519.PrivateKeySize {
		return log.Errorf("cipher: Ed25519Key.SetPrivateKey(): len(key) = %d != %d = ed25519.PrivateKeySize",
			len(key), ed25519.PrivateKeySize)
	}
	ed25519Key.privateKey = append(ed25519.PrivateKey(nil), key...)
	ed25519Key.publicKey = ed25519Key.privateKey.Public().(ed25519.PublicKey)
	return nil
}

// Sign signs the given message with ed25519Key and returns the signature.
func (ed25519Key *Ed25519Key) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519Key.privateKey, message)
}

// Verify verifies that the signature sig for message is valid for ed25519Key.
func (ed25519Key *Ed25519Key) Verify(message []byte, sig []byte) bool {
	if len(ed25519Key.publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519Key.publicKey, message, sig)
}
