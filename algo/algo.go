// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package algo

import (
	"fmt"
	"sync"

	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
)

// KeyExchange tags a Diffie-Hellman style key exchange.
type KeyExchange uint8

// KDF tags a key derivation function.
type KDF uint8

// AEAD tags an authenticated encryption construction.
type AEAD uint8

// Signature tags a signature scheme.
type Signature uint8

// Known algorithm tags. Zero is never a valid tag.
const (
	X25519       KeyExchange = 1
	Ristretto255 KeyExchange = 2

	HKDFSHA512 KDF = 1
	BLAKE2b    KDF = 2

	ChaCha20Poly1305 AEAD = 1
	XSalsa20Poly1305 AEAD = 2

	Ed25519 Signature = 1
)

// priorities of key exchange algorithms, higher is preferred.
var (
	mutex      sync.RWMutex
	kexPrio    = map[KeyExchange]int{X25519: 2, Ristretto255: 1}
	kexNames   = map[KeyExchange]string{X25519: "x25519", Ristretto255: "ristretto255"}
	kdfNames   = map[KDF]string{HKDFSHA512: "hkdf-sha512", BLAKE2b: "blake2b"}
	aeadNames  = map[AEAD]string{ChaCha20Poly1305: "chacha20poly1305", XSalsa20Poly1305: "xsalsa20poly1305"}
	aeadNonces = map[AEAD]int{ChaCha20Poly1305: 12, XSalsa20Poly1305: 24}
)

// Supported returns true, if k is a known key exchange tag.
func (k KeyExchange) Supported() bool {
	_, ok := kexNames[k]
	return ok
}

// Priority returns the preference of k. Unknown tags have priority -1,
// deprecated tags have a negative priority.
func (k KeyExchange) Priority() int {
	mutex.RLock()
	defer mutex.RUnlock()
	p, ok := kexPrio[k]
	if !ok {
		return -1
	}
	return p
}

func (k KeyExchange) String() string {
	if name, ok := kexNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kex(%d)", uint8(k))
}

// Deprecate marks the key exchange algorithm k as deprecated. Deprecated
// algorithms are never selected by PreferredKeyExchange but can still be
// completed when a peer uses them.
func Deprecate(k KeyExchange) {
	mutex.Lock()
	defer mutex.Unlock()
	if p, ok := kexPrio[k]; ok && p >= 0 {
		kexPrio[k] = -p - 1
	}
}

// Undeprecate reverts Deprecate.
func Undeprecate(k KeyExchange) {
	mutex.Lock()
	defer mutex.Unlock()
	if p, ok := kexPrio[k]; ok && p < 0 {
		kexPrio[k] = -p - 1
	}
}

// PreferredKeyExchange returns the index of the candidate with the highest
// priority. Ties are broken by the lowest index. Candidates with a negative
// priority are never selected.
func PreferredKeyExchange(candidates []KeyExchange) (int, error) {
	best := -1
	bestPrio := -1
	for i, c := range candidates {
		p := c.Priority()
		if p < 0 {
			continue
		}
		if p > bestPrio {
			best = i
			bestPrio = p
		}
	}
	if best < 0 {
		return -1, ErrNoAcceptableAlgorithm
	}
	return best, nil
}

// ParseKeyExchange returns the key exchange tag for the given name.
func ParseKeyExchange(name string) (KeyExchange, error) {
	for k, n := range kexNames {
		if n == name {
			return k, nil
		}
	}
	return 0, log.Errorf("algo: unknown key exchange %q", name)
}

// Supported returns true, if k is a known KDF tag.
func (k KDF) Supported() bool {
	_, ok := kdfNames[k]
	return ok
}

func (k KDF) String() string {
	if name, ok := kdfNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kdf(%d)", uint8(k))
}

// Derive derives a cipher.KeySize long key from secret bound to info.
func (k KDF) Derive(secret []byte, info string) ([]byte, error) {
	switch k {
	case HKDFSHA512:
		return cipher.HKDFSHA512(secret, info), nil
	case BLAKE2b:
		if len(secret) > 64 {
			return nil, log.Errorf("algo: BLAKE2b secret too long (%d bytes)", len(secret))
		}
		return cipher.BLAKE2bMAC(secret, info), nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// ParseKDF returns the KDF tag for the given name.
func ParseKDF(name string) (KDF, error) {
	for k, n := range kdfNames {
		if n == name {
			return k, nil
		}
	}
	return 0, log.Errorf("algo: unknown kdf %q", name)
}

// Supported returns true, if a is a known AEAD tag.
func (a AEAD) Supported() bool {
	_, ok := aeadNames[a]
	return ok
}

func (a AEAD) String() string {
	if name, ok := aeadNames[a]; ok {
		return name
	}
	return fmt.Sprintf("aead(%d)", uint8(a))
}

// NonceSize returns the nonce size of a in bytes, or 0 for unknown tags.
func (a AEAD) NonceSize() int {
	return aeadNonces[a]
}

// ParseAEAD returns the AEAD tag for the given name.
func ParseAEAD(name string) (AEAD, error) {
	for a, n := range aeadNames {
		if n == name {
			return a, nil
		}
	}
	return 0, log.Errorf("algo: unknown aead %q", name)
}

// Supported returns true, if s is a known signature tag.
func (s Signature) Supported() bool {
	return s == Ed25519
}
