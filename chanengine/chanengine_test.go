// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cihub/seelog"
	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/def"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/store"
	"github.com/mutecomm/mutechan/store/memstore"
	"github.com/mutecomm/mutechan/store/rpcstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEngine struct {
	t       *testing.T
	ce      *ChanEngine
	out     *bytes.Buffer
	homedir string
	url     string
}

// closeEngine must be called after t.TempDir, the log file has to be closed
// before the directory is removed.
func closeEngine(t *testing.T, ce *ChanEngine) {
	t.Cleanup(func() {
		ce.Close()
		log.UseLogger(seelog.Disabled)
	})
}

func newTestEngine(t *testing.T, url string) *testEngine {
	homedir := t.TempDir()
	ce := New()
	out := new(bytes.Buffer)
	ce.out = out
	ce.app.Writer = out
	closeEngine(t, ce)
	return &testEngine{t: t, ce: ce, out: out, homedir: homedir, url: url}
}

// run executes a command and returns its trimmed output.
func (te *testEngine) run(args ...string) (string, error) {
	te.out.Reset()
	all := []string{"mutechan", "--homedir", te.homedir, "--store", te.url,
		"--loglevel", "error"}
	err := te.ce.app.Run(append(all, args...))
	return strings.TrimSpace(te.out.String()), err
}

func (te *testEngine) mustRun(args ...string) string {
	te.t.Helper()
	out, err := te.run(args...)
	require.NoError(te.t, err)
	return out
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

func newStoreServer(t *testing.T, backend store.Store) string {
	h, err := rpcstore.NewHandler(backend)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func connect(t *testing.T) (alice, bob *testEngine) {
	url := newStoreServer(t, memstore.New())
	alice = newTestEngine(t, url)
	bob = newTestEngine(t, url)
	alice.ce.passphrases = [][]byte{[]byte("alice passphrase")}
	bob.ce.passphrases = [][]byte{[]byte("bob passphrase")}
	out := alice.mustRun("create", "--iterations", "4096", "alice")
	assert.Contains(t, out, "fingerprint:")
	bob.mustRun("create", "--iterations", "4096", "bob")

	invite := lastLine(alice.mustRun("invite", "bob"))
	require.True(t, strings.HasPrefix(invite, "mutechan:"))
	out = bob.mustRun("accept", "alice", invite)
	assert.Contains(t, out, "opened channel 'alice' with alice")
	reply := lastLine(out)
	out = alice.mustRun("finish", "bob", reply)
	assert.Contains(t, out, "opened channel 'bob' with bob")
	return alice, bob
}

func TestConversation(t *testing.T) {
	alice, bob := connect(t)

	id := alice.mustRun("send", "bob", "hello", "world")
	_, err := chatmsg.ParseID(id)
	require.NoError(t, err)
	out := bob.mustRun("recv", "alice")
	assert.Contains(t, out, "peer")
	assert.Contains(t, out, "hello world")

	replyID := bob.mustRun("reply", "alice", id, "hi", "alice")
	out = alice.mustRun("recv", "bob")
	assert.Contains(t, out, "[re "+id+"] hi alice")

	alice.mustRun("react", "bob", replyID, "+1")
	out = bob.mustRun("recv", "alice")
	assert.Contains(t, out, "[+1 "+replyID+"]")

	// nothing more to receive
	assert.Equal(t, "", bob.mustRun("recv", "alice"))

	out = alice.mustRun("log", "bob")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "me")
	assert.Contains(t, lines[1], "peer")
	assert.Contains(t, lines[2], "+1")
	out = alice.mustRun("log", "--limit", "1", "bob")
	assert.NotContains(t, out, "\n")

	out = alice.mustRun("list")
	assert.True(t, strings.HasPrefix(out, "bob\testablished\t"))

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(alice.mustRun("show", "bob")), &status))
	assert.Equal(t, "bob", status["Name"])
	assert.Equal(t, true, status["Established"])
	assert.Equal(t, algo.HKDFSHA512.String(), status["KDF"])
}

func TestFinishWithoutInvite(t *testing.T) {
	alice, bob := connect(t)
	invite := lastLine(bob.mustRun("invite", "carol"))
	_, err := alice.run("finish", "carol", invite)
	assert.Error(t, err)
	_, err = alice.run("invite", "bob")
	assert.Error(t, err, "channel name already taken")
}

func TestUnknownChannel(t *testing.T) {
	alice, _ := connect(t)
	_, err := alice.run("send", "carol", "hello")
	assert.Error(t, err)
	_, err = alice.run("send", "bob")
	assert.Error(t, err, "missing text")
}

func TestRekeyDB(t *testing.T) {
	te := newTestEngine(t, def.StoreURL)
	te.ce.passphrases = [][]byte{[]byte("old")}
	te.mustRun("create", "--iterations", "4096", "alice")
	te.ce.passphrases = [][]byte{[]byte("old"), []byte("new")}
	te.mustRun("rekey", "--iterations", "4096")
	te.ce.passphrases = [][]byte{[]byte("old")}
	_, err := te.run("list")
	assert.Error(t, err)
	te.ce.passphrases = [][]byte{[]byte("new")}
	assert.Equal(t, "", te.mustRun("list"))
}

func TestCreateGenerated(t *testing.T) {
	te := newTestEngine(t, def.StoreURL)
	out := te.mustRun("create", "--iterations", "4096", "--generate", "alice")
	var pass string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "passphrase: ") {
			pass = strings.TrimPrefix(line, "passphrase: ")
		}
	}
	require.NotEmpty(t, pass)

	reopen := newTestEngine(t, def.StoreURL)
	reopen.homedir = te.homedir
	reopen.ce.passphrases = [][]byte{[]byte("wrong")}
	_, err := reopen.run("list")
	assert.Error(t, err)
	reopen.ce.passphrases = [][]byte{[]byte(pass)}
	assert.Equal(t, "", reopen.mustRun("list"))
}

func TestParseChatLine(t *testing.T) {
	id := chatmsg.ID{1, 2, 3}
	_, quit, err := parseChatLine("/quit")
	require.NoError(t, err)
	assert.True(t, quit)
	_, quit, err = parseChatLine("hello")
	require.NoError(t, err)
	assert.False(t, quit)
	_, _, err = parseChatLine("/reply " + id.String() + " some text")
	assert.NoError(t, err)
	_, _, err = parseChatLine("/react " + id.String())
	assert.Error(t, err)
	_, _, err = parseChatLine("/react nonsense +1")
	assert.Error(t, err)
	_, _, err = parseChatLine("/unknown")
	assert.Error(t, err)
}

func TestChannelConfig(t *testing.T) {
	cfg := def.Defaults()
	chanCfg, err := channelConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, algo.HKDFSHA512, chanCfg.KDF)
	cfg.KDF = "blake2b"
	cfg.AEAD = "xsalsa20poly1305"
	cfg.Offer = []string{"ristretto255", "x25519"}
	chanCfg, err = channelConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, algo.BLAKE2b, chanCfg.KDF)
	assert.Equal(t, algo.XSalsa20Poly1305, chanCfg.AEAD)
	assert.Equal(t, []algo.KeyExchange{algo.Ristretto255, algo.X25519}, chanCfg.Offer)
	cfg.Offer = []string{"rsa"}
	_, err = channelConfig(cfg)
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	_, _, err := openStore("ftp://example.com")
	assert.Error(t, err)
	st, closer, err := openStore(def.StoreURL)
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.NoError(t, closer())
}

func TestSqliteBackend(t *testing.T) {
	ce := New()
	ce.homedir = t.TempDir()
	closeEngine(t, ce)
	ce.passphrases = [][]byte{[]byte("store"), []byte("store")}
	ctx := context.Background()
	addr := store.Address("address")
	st, closer, err := ce.backend("sqlite", 4096)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, addr, []byte("data")))
	require.NoError(t, closer())
	// reopen existing database
	st, closer, err = ce.backend("sqlite", 4096)
	require.NoError(t, err)
	defer closer()
	data, err := st.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
	_, _, err = ce.backend("floppy", 0)
	assert.Error(t, err)
}

func TestServeShutdown(t *testing.T) {
	ce := New()
	ce.out = new(bytes.Buffer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ce.ctx = ctx
	assert.NoError(t, ce.serve("127.0.0.1:0", "memory", 0))
}
