// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handshake implements the out-of-band artifacts used to set up a
// channel: a signed invite carrying a key exchange initiation and a signed
// reply carrying the answer. Artifacts are exchanged as text of the form
// "mutechan:" followed by the base64url encoding of a CBOR signed box.
package handshake

import (
	"errors"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/box"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/encode/base64"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
)

// Prefix starts every artifact in text form.
const Prefix = "mutechan:"

// ErrInvalidArtifact is returned for text that is not a well formed artifact.
var ErrInvalidArtifact = errors.New("handshake: invalid artifact")

// ErrWrongType is returned if an invite is passed where a reply is expected
// or vice versa.
var ErrWrongType = errors.New("handshake: wrong artifact type")

// ErrKeyMismatch is returned by Finish if the reply does not answer the
// invite the keypair belongs to.
var ErrKeyMismatch = errors.New("handshake: reply does not answer invite")

type artifactType uint8

const (
	typeInvite artifactType = 1
	typeReply  artifactType = 2
)

type artifact struct {
	Type       artifactType    `cbor:"1,keyasint"`
	Name       string          `cbor:"2,keyasint"`
	Initiation *kex.Initiation `cbor:"3,keyasint,omitempty"`
	Answer     *kex.Answer     `cbor:"4,keyasint,omitempty"`
}

// Peer is the other party of a handshake as claimed by its artifact.
type Peer struct {
	Name       string
	SigningKey []byte // Ed25519 public key the artifact was signed with
}

// Fingerprint returns the base64url encoded SHA-256 of the peer's signing key.
func (p *Peer) Fingerprint() string {
	return base64.EncodeURL(cipher.SHA256(p.SigningKey))
}

// Invite is a signed key exchange initiation.
type Invite struct {
	Name   string
	signed *box.Signed
}

// String returns the text form of the invite.
func (i *Invite) String() string {
	text, err := encode(i.signed)
	if err != nil {
		return ""
	}
	return text
}

func encode(s *box.Signed) (string, error) {
	enc, err := s.Marshal()
	if err != nil {
		return "", err
	}
	return Prefix + base64.EncodeURL(enc), nil
}

func sign(a *artifact, signer *cipher.Ed25519Key) (*box.Signed, error) {
	payload, err := cbor.Marshal(a)
	if err != nil {
		return nil, log.Error(err)
	}
	return box.Sign(payload, signer), nil
}

// decode parses and verifies text and checks it has type t.
func decode(text string, t artifactType) (*artifact, *Peer, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, Prefix) {
		return nil, nil, log.Error(ErrInvalidArtifact)
	}
	enc, err := base64.DecodeURL(strings.TrimPrefix(text, Prefix))
	if err != nil {
		return nil, nil, log.Error(ErrInvalidArtifact)
	}
	s, err := box.UnmarshalSigned(enc)
	if err != nil {
		return nil, nil, log.Error(ErrInvalidArtifact)
	}
	payload, pub, err := box.Verify(s)
	if err != nil {
		return nil, nil, err
	}
	var a artifact
	if err := cbor.Unmarshal(payload, &a); err != nil {
		return nil, nil, log.Error(ErrInvalidArtifact)
	}
	if a.Type != t {
		return nil, nil, log.Error(ErrWrongType)
	}
	switch {
	case t == typeInvite && a.Initiation == nil:
		return nil, nil, log.Error(ErrInvalidArtifact)
	case t == typeReply && a.Answer == nil:
		return nil, nil, log.Error(ErrInvalidArtifact)
	}
	return &a, &Peer{Name: a.Name, SigningKey: pub}, nil
}

// NewInvite creates an invite for a key exchange with alg, signed by signer.
// The returned keypair must be kept (encrypted) until Finish.
func NewInvite(name string, alg algo.KeyExchange, signer *cipher.Ed25519Key, rand io.Reader) (*Invite, *kex.Keypair, error) {
	init, kp, err := kex.Initiate(alg, rand)
	if err != nil {
		return nil, nil, err
	}
	s, err := sign(&artifact{Type: typeInvite, Name: name, Initiation: init}, signer)
	if err != nil {
		return nil, nil, err
	}
	return &Invite{Name: name, signed: s}, kp, nil
}

// Accept answers the invite in text form. It returns the reply in text form,
// the completed exchange and the inviting peer.
func Accept(text, name string, signer *cipher.Ed25519Key, rand io.Reader) (string, *kex.Completed, *Peer, error) {
	a, peer, err := decode(text, typeInvite)
	if err != nil {
		return "", nil, nil, err
	}
	ans, completed, err := kex.Respond(a.Initiation, rand)
	if err != nil {
		return "", nil, nil, err
	}
	s, err := sign(&artifact{Type: typeReply, Name: name, Answer: ans}, signer)
	if err != nil {
		return "", nil, nil, err
	}
	reply, err := encode(s)
	if err != nil {
		return "", nil, nil, err
	}
	return reply, completed, peer, nil
}

// Finish completes the exchange started with NewInvite from the reply in text
// form.
func Finish(text string, kp *kex.Keypair) (*kex.Completed, *Peer, error) {
	a, peer, err := decode(text, typeReply)
	if err != nil {
		return nil, nil, err
	}
	if !a.Answer.Initiator.Equal(kp.Public) {
		return nil, nil, log.Error(ErrKeyMismatch)
	}
	completed, err := kex.Complete(a.Answer, kp)
	if err != nil {
		return nil, nil, err
	}
	return completed, peer, nil
}
