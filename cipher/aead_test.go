// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"bytes"
	"testing"
)

func TestChaCha20Poly1305(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 32)
	nonce := make([]byte, 12)
	msg := []byte("Cypherpunks write code!")
	ct, tag, err := ChaCha20Poly1305Seal(key, nonce, msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(tag) != TagSize || len(ct) != len(msg) {
		t.Fatal("wrong sizes")
	}
	pt, err := ChaCha20Poly1305Open(key, nonce, ct, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, msg) {
		t.Error("pt != msg")
	}
	tag[0] ^= 1
	if _, err := ChaCha20Poly1305Open(key, nonce, ct, tag); err != ErrAuthentication {
		t.Error("err != ErrAuthentication")
	}
	if _, _, err := ChaCha20Poly1305Seal(key, nonce[:4], msg); err == nil {
		t.Error("short nonce should fail")
	}
	if _, _, err := ChaCha20Poly1305Seal(key[:4], nonce, msg); err == nil {
		t.Error("short key should fail")
	}
}

func TestXSalsa20Poly1305(t *testing.T) {
	key := bytes.Repeat([]byte{2}, 32)
	nonce := make([]byte, 24)
	msg := []byte("Cypherpunks write code!")
	ct, tag, err := XSalsa20Poly1305Seal(key, nonce, msg)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := XSalsa20Poly1305Open(key, nonce, ct, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, msg) {
		t.Error("pt != msg")
	}
	wrong := bytes.Repeat([]byte{3}, 32)
	if _, err := XSalsa20Poly1305Open(wrong, nonce, ct, tag); err != ErrAuthentication {
		t.Error("err != ErrAuthentication")
	}
	if _, _, err := XSalsa20Poly1305Seal(key, nonce[:12], msg); err == nil {
		t.Error("short nonce should fail")
	}
}
