// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"io"
	"time"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
)

// Config holds the algorithms and the sources of randomness and time used
// by a channel. Zero fields are filled from DefaultConfig.
type Config struct {
	KDF   algo.KDF           // KDF for new ratchets
	AEAD  algo.AEAD          // AEAD for outgoing boxes
	Offer []algo.KeyExchange // one rekey offer is generated per algorithm
	Rand  io.Reader
	Now   func() time.Time
}

// DefaultConfig returns the default channel configuration.
func DefaultConfig() *Config {
	return &Config{
		KDF:   algo.HKDFSHA512,
		AEAD:  algo.ChaCha20Poly1305,
		Offer: []algo.KeyExchange{algo.X25519},
		Rand:  cipher.RandReader,
		Now:   time.Now,
	}
}

func (c *Config) withDefaults() (*Config, error) {
	def := DefaultConfig()
	if c == nil {
		return def, nil
	}
	cfg := *c
	if cfg.KDF == 0 {
		cfg.KDF = def.KDF
	}
	if cfg.AEAD == 0 {
		cfg.AEAD = def.AEAD
	}
	if len(cfg.Offer) == 0 {
		cfg.Offer = def.Offer
	}
	if cfg.Rand == nil {
		cfg.Rand = def.Rand
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if !cfg.KDF.Supported() || !cfg.AEAD.Supported() {
		return nil, log.Error(ErrInvalidConfig)
	}
	for _, alg := range cfg.Offer {
		if !alg.Supported() {
			return nil, log.Error(ErrInvalidConfig)
		}
	}
	return &cfg, nil
}
