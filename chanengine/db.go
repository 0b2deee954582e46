// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/mutecomm/mutechan/chandb"
	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/encode/base64"
	"github.com/mutecomm/mutechan/handshake"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
	"golang.org/x/crypto/ssh/terminal"
)

func isTerminal(fp *os.File) bool {
	return terminal.IsTerminal(int(fp.Fd()))
}

// readLines reads n lines from a non-terminal r with a single scanner.
func readLines(r io.Reader, n int) ([][]byte, error) {
	scanner := bufio.NewScanner(r)
	lines := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, log.Error(err)
			}
			return nil, log.Errorf("chanengine: expected %d line(s), got %d", n, i)
		}
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	return lines, nil
}

// create a new chanDB with a fresh signing key for the display name.
func (ce *ChanEngine) create(name string, iterations int, generate bool) error {
	var pps [][]byte
	var err error
	if generate {
		var pass []byte
		pass, err = cipher.RandPass(cipher.RandReader)
		pps = [][]byte{pass}
	} else if ce.passphrases == nil && ce.passphraseFD == 0 && isTerminal(os.Stdin) {
		pps, err = ce.readPassphrases("passphrase: ", "passphrase (again): ")
		if err == nil && !bytes.Equal(pps[0], pps[1]) {
			err = log.Error("chanengine: passphrases differ")
		}
	} else {
		pps, err = ce.readPassphrases("passphrase: ")
	}
	if err != nil {
		return err
	}
	defer bzero.Slices(pps...)
	log.Infof("create chanDB '%s'", ce.dbname())
	if err := chandb.Create(ce.dbname(), pps[0], iterations); err != nil {
		return err
	}
	chanDB, err := chandb.Open(ce.dbname(), pps[0])
	if err != nil {
		return err
	}
	ce.chanDB = chanDB
	key, err := cipher.Ed25519Generate(cipher.RandReader)
	if err != nil {
		return err
	}
	priv := key.PrivateKey()
	defer bzero.Bytes(priv[:])
	if err := chanDB.AddValue(chandb.SigningKey, base64.Encode(priv[:])); err != nil {
		return err
	}
	if err := chanDB.AddValue(chandb.OwnName, name); err != nil {
		return err
	}
	self := handshake.Peer{Name: name, SigningKey: key.PublicKey()[:]}
	fmt.Fprintf(ce.out, "created %s\n", ce.dbname())
	fmt.Fprintf(ce.out, "fingerprint: %s\n", self.Fingerprint())
	if generate {
		fmt.Fprintf(ce.out, "passphrase: %s\n", pps[0])
	}
	return nil
}

// rekey the chanDB: reads the old passphrase and the new one.
func (ce *ChanEngine) rekey(iterations int) error {
	if ce.chanDB != nil {
		if err := ce.chanDB.Close(); err != nil {
			return log.Error(err)
		}
		ce.chanDB = nil
	}
	pps, err := ce.readPassphrases("old passphrase: ", "new passphrase: ")
	if err != nil {
		return err
	}
	defer bzero.Slices(pps...)
	log.Infof("rekey chanDB '%s'", ce.dbname())
	return chandb.Rekey(ce.dbname(), pps[0], pps[1], iterations)
}

// identity returns the own display name and signing key.
func (ce *ChanEngine) identity() (string, *cipher.Ed25519Key, error) {
	if err := ce.openDB(); err != nil {
		return "", nil, err
	}
	name, err := ce.chanDB.GetValue(chandb.OwnName)
	if err != nil {
		return "", nil, err
	}
	enc, err := ce.chanDB.GetValue(chandb.SigningKey)
	if err != nil {
		return "", nil, err
	}
	if enc == "" {
		return "", nil, log.Error("chanengine: no signing key in database")
	}
	priv, err := base64.Decode(enc)
	if err != nil {
		return "", nil, log.Error(err)
	}
	defer bzero.Bytes(priv)
	var key cipher.Ed25519Key
	if err := key.SetPrivateKey(priv); err != nil {
		return "", nil, err
	}
	return name, &key, nil
}
