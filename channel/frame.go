// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
)

// maxFrameSize limits decompressed frames.
const maxFrameSize = 1 << 20

// codec flags, first byte of every frame
const (
	codecRaw  byte = 0
	codecZstd byte = 1
)

type msgType uint8

const (
	typeInitial msgType = 1
	typeRekey   msgType = 2
	typeChat    msgType = 3
)

// envelope is the plaintext of every box published by a channel.
type envelope struct {
	Type    msgType          `cbor:"1,keyasint"`
	Initial *initialMessage  `cbor:"2,keyasint,omitempty"`
	Rekey   *rekeyMessage    `cbor:"3,keyasint,omitempty"`
	Chat    *chatmsg.Message `cbor:"4,keyasint,omitempty"`
}

// initialMessage is the first message on a channel, it offers key exchanges
// for the first rekey.
type initialMessage struct {
	Available []kex.Initiation `cbor:"1,keyasint"`
}

// rekeyMessage answers one of the peer's offers, makes new offers and
// carries the actual chat message.
type rekeyMessage struct {
	NewKey        kex.Answer       `cbor:"1,keyasint"`
	NewKDF        algo.KDF         `cbor:"2,keyasint"`
	NextAvailable []kex.Initiation `cbor:"3,keyasint"`
	Attached      *chatmsg.Message `cbor:"4,keyasint"`
}

func (e *envelope) valid() bool {
	switch e.Type {
	case typeInitial:
		return e.Initial != nil && e.Rekey == nil && e.Chat == nil
	case typeRekey:
		return e.Rekey != nil && e.Rekey.Attached != nil && e.Initial == nil && e.Chat == nil
	case typeChat:
		return e.Chat != nil && e.Initial == nil && e.Rekey == nil
	default:
		return false
	}
}

// compressionHint returns true, if the chat message carried by e is worth
// compressing.
func (e *envelope) compressionHint() bool {
	switch e.Type {
	case typeChat:
		return e.Chat.CompressionHint()
	case typeRekey:
		return e.Rekey.Attached.CompressionHint()
	default:
		return false
	}
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func initZstd() error {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil,
			zstd.WithDecoderMaxMemory(maxFrameSize),
			zstd.WithDecoderConcurrency(1))
	})
	return zstdErr
}

// encodeFrame serializes e. If hint is set the compressed encoding is used,
// but only if it is strictly smaller.
func encodeFrame(e *envelope, hint bool) ([]byte, error) {
	enc, err := cbor.Marshal(e)
	if err != nil {
		return nil, log.Error(err)
	}
	if hint {
		if err := initZstd(); err != nil {
			return nil, log.Error(err)
		}
		compressed := zstdEncoder.EncodeAll(enc, []byte{codecZstd})
		if len(compressed) < len(enc)+1 {
			return compressed, nil
		}
	}
	return append([]byte{codecRaw}, enc...), nil
}

// decodeFrame is the inverse of encodeFrame. All failures are ErrMalformed.
func decodeFrame(frame []byte) (*envelope, error) {
	if len(frame) < 1 {
		return nil, log.Error(ErrMalformed)
	}
	data := frame[1:]
	switch frame[0] {
	case codecRaw:
	case codecZstd:
		if err := initZstd(); err != nil {
			return nil, log.Error(err)
		}
		dec, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil || len(dec) > maxFrameSize {
			return nil, log.Error(ErrMalformed)
		}
		data = dec
	default:
		return nil, log.Error(ErrMalformed)
	}
	var e envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, log.Error(ErrMalformed)
	}
	if !e.valid() {
		return nil, log.Error(ErrMalformed)
	}
	return &e, nil
}
