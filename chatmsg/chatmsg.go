// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chatmsg defines the chat messages carried inside a channel:
// standard text messages, replies to a thread and reactions to a message.
package chatmsg

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/mutecomm/mutechan/log"
)

// IDSize is the size of a message ID in bytes.
const IDSize = 16

// CompressionThreshold is the minimum text length (in bytes) for which
// compression is attempted.
const CompressionThreshold = 128

// ID is a random locally unique message ID.
type ID [IDSize]byte

// NewID returns a random ID read from rand.
func NewID(rand io.Reader) (ID, error) {
	var id ID
	if _, err := io.ReadFull(rand, id[:]); err != nil {
		return id, log.Error(err)
	}
	return id, nil
}

// String returns the hex encoding of id.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero returns true, if id is unset.
func (id ID) IsZero() bool {
	return id == ID{}
}

// ParseID parses the hex encoding of an ID.
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != IDSize {
		return id, ErrInvalidID
	}
	copy(id[:], b)
	return id, nil
}

// Kind is the type of a chat message.
type Kind uint8

// Message kinds.
const (
	Standard Kind = 1
	Reply    Kind = 2
	Reaction Kind = 3
)

func (k Kind) String() string {
	switch k {
	case Standard:
		return "standard"
	case Reply:
		return "reply"
	case Reaction:
		return "reaction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Body is the content of a message before it gets an ID and a timestamp.
type Body struct {
	kind      Kind
	text      string
	ref       ID
	indicator string
}

// Text returns a standard message body.
func Text(text string) Body {
	return Body{kind: Standard, text: text}
}

// ReplyTo returns a reply to the message thread.
func ReplyTo(thread ID, text string) Body {
	return Body{kind: Reply, text: text, ref: thread}
}

// ReactTo returns a reaction with indicator (usually an emoji) to the
// message target.
func ReactTo(target ID, indicator string) Body {
	return Body{kind: Reaction, ref: target, indicator: indicator}
}

// Message is a chat message.
type Message struct {
	Timestamp int64  `cbor:"1,keyasint"` // unix milliseconds
	ID        ID     `cbor:"2,keyasint"`
	Kind      Kind   `cbor:"3,keyasint"`
	Text      string `cbor:"4,keyasint,omitempty"`
	Thread    *ID    `cbor:"5,keyasint,omitempty"`
	Target    *ID    `cbor:"6,keyasint,omitempty"`
	Indicator string `cbor:"7,keyasint,omitempty"`
}

// New creates a message from body with a random ID read from rand.
func New(body Body, now time.Time, rand io.Reader) (*Message, error) {
	id, err := NewID(rand)
	if err != nil {
		return nil, err
	}
	m := &Message{
		Timestamp: now.UnixNano() / int64(time.Millisecond),
		ID:        id,
		Kind:      body.kind,
		Text:      body.text,
		Indicator: body.indicator,
	}
	ref := body.ref
	switch body.kind {
	case Reply:
		m.Thread = &ref
	case Reaction:
		m.Target = &ref
	}
	if err := m.Validate(); err != nil {
		return nil, log.Error(err)
	}
	return m, nil
}

// Time returns the timestamp of m.
func (m *Message) Time() time.Time {
	return time.Unix(0, m.Timestamp*int64(time.Millisecond))
}

// Validate checks that m is well formed for its kind.
func (m *Message) Validate() error {
	switch m.Kind {
	case Standard:
		if m.Text == "" {
			return ErrEmptyText
		}
	case Reply:
		if m.Text == "" {
			return ErrEmptyText
		}
		if m.Thread == nil || m.Thread.IsZero() {
			return ErrMissingThread
		}
	case Reaction:
		if m.Indicator == "" {
			return ErrEmptyIndicator
		}
		if m.Target == nil || m.Target.IsZero() {
			return ErrMissingTarget
		}
	default:
		return ErrInvalidKind
	}
	if !utf8.ValidString(m.Text) || !utf8.ValidString(m.Indicator) {
		return ErrInvalidUTF8
	}
	return nil
}

// CompressionHint returns true, if m is worth compressing: text messages and
// replies of at least CompressionThreshold bytes. Reactions never are.
func (m *Message) CompressionHint() bool {
	switch m.Kind {
	case Standard, Reply:
		return len(m.Text) >= CompressionThreshold
	default:
		return false
	}
}

// Summary returns a single line describing m for logs and listings.
func (m *Message) Summary() string {
	switch m.Kind {
	case Reply:
		return fmt.Sprintf("[re %s] %s", m.Thread, m.Text)
	case Reaction:
		return fmt.Sprintf("[%s %s]", m.Indicator, m.Target)
	default:
		return m.Text
	}
}
