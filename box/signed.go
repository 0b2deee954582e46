// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package box

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
)

// Signed is a payload signed by the embedded public key.
type Signed struct {
	Alg       algo.Signature `cbor:"1,keyasint"`
	PublicKey []byte         `cbor:"2,keyasint"`
	Signature []byte         `cbor:"3,keyasint"`
	Payload   []byte         `cbor:"4,keyasint"`
}

// Sign signs the SHA-512 hash of payload with key and embeds the public key.
func Sign(payload []byte, key *cipher.Ed25519Key) *Signed {
	pub := key.PublicKey()
	return &Signed{
		Alg:       algo.Ed25519,
		PublicKey: append([]byte(nil), pub[:]...),
		Signature: key.Sign(cipher.SHA512(payload)),
		Payload:   append([]byte(nil), payload...),
	}
}

// Verify checks the signature of s and returns the payload and the signer's
// public key.
func Verify(s *Signed) (payload, publicKey []byte, err error) {
	if !s.Alg.Supported() {
		return nil, nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	var key cipher.Ed25519Key
	if err := key.SetPublicKey(s.PublicKey); err != nil {
		return nil, nil, log.Error(ErrInvalidSignature)
	}
	if !key.Verify(cipher.SHA512(s.Payload), s.Signature) {
		return nil, nil, log.Error(ErrInvalidSignature)
	}
	return s.Payload, s.PublicKey, nil
}

// Marshal encodes s as CBOR.
func (s *Signed) Marshal() ([]byte, error) {
	enc, err := cbor.Marshal(s)
	if err != nil {
		return nil, log.Error(err)
	}
	return enc, nil
}

// UnmarshalSigned decodes a CBOR encoded signed box.
func UnmarshalSigned(data []byte) (*Signed, error) {
	var s Signed
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, log.Error(err)
	}
	if !s.Alg.Supported() {
		return nil, log.Error(algo.ErrUnsupportedAlgorithm)
	}
	return &s, nil
}
