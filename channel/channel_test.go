// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/box"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/ratchet"
	"github.com/mutecomm/mutechan/store"
	"github.com/mutecomm/mutechan/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T) (initiator, responder *kex.Completed) {
	t.Helper()
	init, kp, err := kex.Initiate(algo.X25519, cipher.RandReader)
	require.NoError(t, err)
	ans, responder, err := kex.Respond(init, cipher.RandReader)
	require.NoError(t, err)
	initiator, err = kex.Complete(ans, kp)
	require.NoError(t, err)
	return initiator, responder
}

// newPair returns two opened channels (initial messages published).
func newPair(t *testing.T, st store.Store, cfgA, cfgB *Config) (*Channel, *Channel) {
	t.Helper()
	ctx := context.Background()
	initiator, responder := exchange(t)
	a, err := OpenExchange(ctx, st, initiator, cfgA)
	require.NoError(t, err)
	b, err := OpenExchange(ctx, st, responder, cfgB)
	require.NoError(t, err)
	return a, b
}

// newUnflushed returns two channels whose initial messages are unpublished.
func newUnflushed(t *testing.T, st store.Store) (*Channel, *Channel) {
	t.Helper()
	initiator, responder := exchange(t)
	s1, err := initiator.Derive()
	require.NoError(t, err)
	s2, err := responder.Derive()
	require.NoError(t, err)
	a, err := New(st, s1, initiator.Own(), initiator.Peer(), nil)
	require.NoError(t, err)
	b, err := New(st, s2, responder.Own(), responder.Peer(), nil)
	require.NoError(t, err)
	return a, b
}

func send(t *testing.T, c *Channel, text string) chatmsg.ID {
	t.Helper()
	id, err := c.SendChatMessage(context.Background(), chatmsg.Text(text))
	require.NoError(t, err)
	return id
}

func recv(t *testing.T, c *Channel) *chatmsg.Message {
	t.Helper()
	m, err := c.TryReceiveMessage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func recvNothing(t *testing.T, c *Channel) {
	t.Helper()
	m, err := c.TryReceiveMessage(context.Background())
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestBasicExchange(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	recvNothing(t, b)
	assert.True(t, a.Established())
	assert.True(t, b.Established())
	assert.Equal(t, a.send.CurrentKey("x"), b.recv.CurrentKey("x"))
	assert.Equal(t, b.send.CurrentKey("x"), a.recv.CurrentKey("x"))
	assert.NotEqual(t, a.send.CurrentKey("x"), a.recv.CurrentKey("x"))
	assert.Equal(t, 2, st.Len())
}

func TestOrderedDelivery(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a) // consume the initial message of b

	id1 := send(t, a, "Hello World")
	assert.Equal(t, uint64(0), a.send.Iteration(), "first send rekeys")
	assert.Empty(t, a.pending)
	assert.Len(t, a.outstanding, 2)
	id2 := send(t, a, "Hello World 2")
	assert.Equal(t, uint64(1), a.send.Iteration())

	m := recv(t, b)
	assert.Equal(t, "Hello World", m.Text)
	assert.Equal(t, id1, m.ID)
	assert.Equal(t, uint64(0), b.recv.Iteration(), "receive ratchet restarted")
	m = recv(t, b)
	assert.Equal(t, "Hello World 2", m.Text)
	assert.Equal(t, id2, m.ID)
	recvNothing(t, b)
	assert.Empty(t, b.outstanding)
	assert.Len(t, b.pending, 1)
}

func TestStallOnNotFound(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, b := newUnflushed(t, st)
	recvNothing(t, b)
	assert.Equal(t, uint64(0), b.recv.Iteration())
	assert.False(t, b.Established())

	require.NoError(t, a.Flush(ctx))
	require.NoError(t, a.Flush(ctx)) // no-op
	assert.Equal(t, uint64(1), a.send.Iteration())
	recvNothing(t, b)
	assert.True(t, b.Established())
	assert.Equal(t, uint64(1), b.recv.Iteration())
	recvNothing(t, b)
	assert.Equal(t, uint64(1), b.recv.Iteration())
}

func TestSendFlushesInitial(t *testing.T) {
	st := memstore.New()
	a, b := newUnflushed(t, st)
	send(t, a, "first")
	assert.True(t, a.initialSent)
	assert.Equal(t, "first", recv(t, b).Text)
}

func TestRekeyCrossMatch(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	recvNothing(t, b)

	// both rekey before seeing the other's rekey
	send(t, a, "a1")
	send(t, b, "b1")
	require.Len(t, a.outstanding, 2)
	require.Len(t, b.outstanding, 2)

	// b answered the older offer of a
	assert.Equal(t, "b1", recv(t, a).Text)
	assert.Len(t, a.outstanding, 1)
	assert.Equal(t, "a1", recv(t, b).Text)
	assert.Len(t, b.outstanding, 1)

	send(t, a, "a2")
	assert.Equal(t, "a2", recv(t, b).Text)
	assert.Empty(t, b.outstanding)

	// b answers the newest offer of a, older ones are drained
	send(t, b, "b2")
	require.Len(t, a.outstanding, 2)
	assert.Equal(t, "b2", recv(t, a).Text)
	assert.Empty(t, a.outstanding)

	for i := 0; i < 3; i++ {
		send(t, a, fmt.Sprintf("a%d", i+3))
		send(t, b, fmt.Sprintf("b%d", i+3))
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("b%d", i+3), recv(t, a).Text)
		assert.Equal(t, fmt.Sprintf("a%d", i+3), recv(t, b).Text)
	}
	recvNothing(t, a)
	recvNothing(t, b)
}

func TestSendTransportFailure(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	st.SetFailHook(func(op memstore.Op, addr store.Address) error {
		if op == memstore.OpPut {
			return &store.TransportError{Op: string(op), Err: errors.New("connection refused")}
		}
		return nil
	})
	_, err := a.SendChatMessage(context.Background(), chatmsg.Text("retry me"))
	require.Error(t, err)
	assert.True(t, store.IsTransport(err))
	assert.Equal(t, uint64(1), a.send.Iteration())
	assert.Len(t, a.pending, 1)
	assert.Len(t, a.outstanding, 1)

	st.SetFailHook(nil)
	send(t, a, "retry me")
	assert.Equal(t, uint64(0), a.send.Iteration())
	assert.Equal(t, "retry me", recv(t, b).Text)
}

func TestSendRejected(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, _ := newPair(t, st, nil, nil)
	require.NoError(t, st.Put(ctx, address(a.send), []byte("squatter")))
	_, err := a.SendChatMessage(ctx, chatmsg.Text("hello"))
	assert.True(t, errors.Is(err, store.ErrRejected))
	assert.Equal(t, uint64(1), a.send.Iteration())
}

func TestSendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := memstore.New()
	a, _ := newPair(t, st, nil, nil)
	_, err := a.SendChatMessage(ctx, chatmsg.Text("hello"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, uint64(1), a.send.Iteration())
	_, err = a.TryReceiveMessage(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, uint64(0), a.recv.Iteration())
}

func TestReceiveTransportFailure(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	send(t, a, "hello")
	st.SetFailHook(func(op memstore.Op, addr store.Address) error {
		if op == memstore.OpGet {
			return &store.TransportError{Op: string(op), Err: errors.New("timeout")}
		}
		return nil
	})
	_, err := b.TryReceiveMessage(context.Background())
	assert.True(t, store.IsTransport(err))
	assert.Equal(t, uint64(0), b.recv.Iteration())
	st.SetFailHook(nil)
	assert.Equal(t, "hello", recv(t, b).Text)
}

func TestUnexpectedMessage(t *testing.T) {
	st := memstore.New()
	a, b := newUnflushed(t, st)
	a.initialSent = true // skip the initial message
	a.initial = nil
	send(t, a, "too early")
	_, err := b.TryReceiveMessage(context.Background())
	assert.Equal(t, ErrUnexpectedMessage, err)
	assert.Equal(t, uint64(1), b.recv.Iteration(), "receipt consumes the step")
	assert.False(t, b.Established())
}

func TestFailedRekey(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	send(t, a, "rekey")
	b.outstanding = nil
	_, err := b.TryReceiveMessage(context.Background())
	assert.Equal(t, ErrFailedRekey, err)
}

func TestCorruptedEntry(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	send(t, a, "m1")
	addr := address(a.send)
	send(t, a, "m2")
	st.Overwrite(addr, []byte{0xff})
	send(t, a, "m3")

	assert.Equal(t, "m1", recv(t, b).Text)
	_, err := b.TryReceiveMessage(context.Background())
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Equal(t, "m3", recv(t, b).Text)
}

func TestDecryptionFailure(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, b)
	wrong, err := box.Seal(algo.ChaCha20Poly1305, bytes.Repeat([]byte{1}, 32), []byte{0}, cipher.RandReader)
	require.NoError(t, err)
	data, err := wrong.Marshal()
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, address(a.send), data))
	_, err = b.TryReceiveMessage(ctx)
	assert.Equal(t, box.ErrDecryptionFailed, err)
	assert.Equal(t, uint64(2), b.recv.Iteration())
}

func TestMixedAlgorithms(t *testing.T) {
	st := memstore.New()
	cfgA := &Config{
		KDF:   algo.BLAKE2b,
		AEAD:  algo.XSalsa20Poly1305,
		Offer: []algo.KeyExchange{algo.Ristretto255, algo.X25519},
	}
	cfgB := &Config{
		KDF:   algo.BLAKE2b,
		Offer: []algo.KeyExchange{algo.Ristretto255},
	}
	a, b := newPair(t, st, cfgA, cfgB)
	recvNothing(t, a)
	recvNothing(t, b)
	send(t, a, "ristretto")
	send(t, b, "x25519")
	assert.Equal(t, "ristretto", recv(t, b).Text)
	assert.Equal(t, "x25519", recv(t, a).Text)
	send(t, a, "again")
	assert.Equal(t, "again", recv(t, b).Text)
	assert.Equal(t, algo.BLAKE2b, b.recv.KDF())
	assert.Equal(t, "xsalsa20poly1305", a.Status().AEAD)
}

func TestDeprecatedOffer(t *testing.T) {
	defer algo.Undeprecate(algo.X25519)
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	algo.Deprecate(algo.X25519)
	send(t, a, "plain")
	assert.Equal(t, uint64(2), a.send.Iteration(), "no rekey with deprecated offer")
	assert.Len(t, a.pending, 1)
	assert.Equal(t, "plain", recv(t, b).Text)
}

func TestMarshalRestore(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	recvNothing(t, a)
	send(t, a, "before")

	blob, err := b.MarshalBinary()
	require.NoError(t, err)
	b2, err := Restore(blob, st, nil)
	require.NoError(t, err)
	assert.Equal(t, "before", recv(t, b2).Text)

	blob, err = a.MarshalBinary()
	require.NoError(t, err)
	a2, err := Restore(blob, st, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Status(), a2.Status())
	send(t, a2, "after")
	assert.Equal(t, "after", recv(t, b2).Text)

	// unpublished initial message survives
	c, _ := newUnflushed(t, st)
	blob, err = c.MarshalBinary()
	require.NoError(t, err)
	c2, err := Restore(blob, st, nil)
	require.NoError(t, err)
	assert.Len(t, c2.initial, 1)
	assert.False(t, c2.initialSent)

	_, err = Restore([]byte{0xff}, st, nil)
	assert.Equal(t, ErrMalformed, err)
}

func TestRestoreUnusableRatchet(t *testing.T) {
	st := memstore.New()
	long := ratchet.State{KDF: algo.BLAKE2b, Material: bytes.Repeat([]byte{7}, 100)}
	good := ratchet.State{KDF: algo.HKDFSHA512, Material: bytes.Repeat([]byte{7}, 32)}
	for _, s := range []state{
		{Version: stateVersion, Send: long, Recv: long},
		{Version: stateVersion, Send: good, Recv: long},
		{Version: stateVersion, Send: good, Recv: ratchet.State{KDF: algo.HKDFSHA512}},
	} {
		blob, err := cbor.Marshal(&s)
		require.NoError(t, err)
		c, err := Restore(blob, st, nil)
		assert.Equal(t, ErrMalformed, err)
		assert.Nil(t, c)
	}
}

func TestConcurrentSend(t *testing.T) {
	st := memstore.New()
	a, b := newPair(t, st, nil, nil)
	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.SendChatMessage(context.Background(), chatmsg.Text(fmt.Sprintf("msg %d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		seen[recv(t, b).Text] = true
	}
	assert.Len(t, seen, n)
	recvNothing(t, b)
}

func TestInvalidConfig(t *testing.T) {
	initiator, _ := exchange(t)
	_, err := OpenExchange(context.Background(), memstore.New(), initiator, &Config{AEAD: algo.AEAD(9)})
	assert.Equal(t, ErrInvalidConfig, err)
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	a, b := newPair(t, memstore.New(), nil, nil)
	msg, err := chatmsg.New(chatmsg.Text("prebuilt"), time.Now(), cipher.RandReader)
	require.NoError(t, err)
	require.NoError(t, a.SendMessage(ctx, msg))
	got := recv(t, b)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, msg.Timestamp, got.Timestamp)

	invalid := &chatmsg.Message{Kind: chatmsg.Standard}
	assert.Equal(t, chatmsg.ErrEmptyText, a.SendMessage(ctx, invalid))
}
