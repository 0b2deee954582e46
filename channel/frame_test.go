// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"strings"
	"testing"
	"time"

	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatEnvelope(t *testing.T, text string) *envelope {
	m, err := chatmsg.New(chatmsg.Text(text), time.Now(), cipher.RandReader)
	require.NoError(t, err)
	return &envelope{Type: typeChat, Chat: m}
}

func TestFrameCompression(t *testing.T) {
	e := chatEnvelope(t, strings.Repeat("Hello World ", 100))
	assert.True(t, e.compressionHint())
	frame, err := encodeFrame(e, e.compressionHint())
	require.NoError(t, err)
	assert.Equal(t, codecZstd, frame[0])
	assert.True(t, len(frame) < len(e.Chat.Text))
	dec, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, e.Chat.Text, dec.Chat.Text)
	assert.Equal(t, e.Chat.ID, dec.Chat.ID)
}

func TestFrameRaw(t *testing.T) {
	e := chatEnvelope(t, "hi")
	assert.False(t, e.compressionHint())
	frame, err := encodeFrame(e, false)
	require.NoError(t, err)
	assert.Equal(t, codecRaw, frame[0])
	dec, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, "hi", dec.Chat.Text)
}

func TestFrameMalformed(t *testing.T) {
	for _, frame := range [][]byte{
		nil,
		{7, 0xa0},
		{codecRaw, 0xff},
		{codecZstd, 1, 2, 3},
		{codecRaw, 0xa1, 0x01, 0x03}, // chat type without message
	} {
		_, err := decodeFrame(frame)
		assert.Equal(t, ErrMalformed, err)
	}
}
