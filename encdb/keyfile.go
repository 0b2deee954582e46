// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encdb

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"os"

	"github.com/mutecomm/mutechan/cipher"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
	"golang.org/x/crypto/pbkdf2"
)

/*
Format of keyfile (all offsets in bytes):

   0  number of iterations for PBKDF2 (uint64, little endian)
   8  salt for PBKDF2 (32)
  40  ChaCha20-Poly1305 nonce (12)
  52  encrypted database key (32)
  84  Poly1305 tag (16)
 100
*/

const (
	maxIter     = 2147483647
	saltSize    = 32
	nonceSize   = 12
	keySize     = 32
	keyfileSize = 8 + saltSize + nonceSize + keySize + cipher.TagSize
)

func deriveKey(passphrase, salt []byte, iter int) []byte {
	return pbkdf2.Key(passphrase, salt, iter, 32, sha256.New)
}

// writeKeyfile writes a key file with the given filename that contains the
// supplied key in encrypted form.
func writeKeyfile(filename string, passphrase []byte, iter int, key []byte) error {
	if err := mustNotExist(filename); err != nil {
		return err
	}
	if iter < 1 || iter > maxIter {
		return log.Errorf("encdb: writeKeyfile: invalid iter value")
	}
	if len(key) != keySize {
		return log.Errorf("encdb: writeKeyfile: len(key) != %d", keySize)
	}
	salt, err := cipher.RandBytes(cipher.RandReader, saltSize)
	if err != nil {
		return err
	}
	nonce, err := cipher.RandBytes(cipher.RandReader, nonceSize)
	if err != nil {
		return err
	}
	dk := deriveKey(passphrase, salt, iter)
	defer bzero.Bytes(dk)
	encKey, tag, err := cipher.ChaCha20Poly1305Seal(dk, nonce, key)
	if err != nil {
		return err
	}
	buf := make([]byte, 8, keyfileSize)
	binary.LittleEndian.PutUint64(buf, uint64(iter))
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, encKey...)
	buf = append(buf, tag...)
	if err := os.WriteFile(filename, buf, 0600); err != nil {
		return log.Error(err)
	}
	return nil
}

// generateKeyfile generates a key file with the given filename that contains
// a randomly generated and encrypted key. The function returns the generated
// key in unencrypted form.
func generateKeyfile(filename string, passphrase []byte, iter int) ([]byte, error) {
	rawKey, err := cipher.RandBytes(cipher.RandReader, keySize)
	if err != nil {
		return nil, err
	}
	if err := writeKeyfile(filename, passphrase, iter, rawKey); err != nil {
		return nil, err
	}
	return rawKey, nil
}

// readKeyfile reads an encrypted key from the file with the given filename
// and returns it in unencrypted form. A wrong passphrase is detected.
func readKeyfile(filename string, passphrase []byte) ([]byte, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, log.Error(err)
	}
	defer fp.Close()
	buf := make([]byte, keyfileSize)
	if _, err := io.ReadFull(fp, buf); err != nil {
		return nil, log.Errorf("encdb: readKeyfile: %s", err)
	}
	uiter := binary.LittleEndian.Uint64(buf[:8])
	if uiter < 1 || uiter > maxIter {
		return nil, log.Errorf("encdb: readKeyfile: invalid iter value")
	}
	buf = buf[8:]
	salt := buf[:saltSize]
	buf = buf[saltSize:]
	nonce := buf[:nonceSize]
	buf = buf[nonceSize:]
	encKey := buf[:keySize]
	tag := buf[keySize:]
	dk := deriveKey(passphrase, salt, int(uiter))
	defer bzero.Bytes(dk)
	key, err := cipher.ChaCha20Poly1305Open(dk, nonce, encKey, tag)
	if err != nil {
		return nil, log.Error("encdb: readKeyfile: wrong passphrase or corrupt keyfile")
	}
	return key, nil
}

func replaceKeyfile(filename string, oldPassphrase, newPassphrase []byte, newIter int) error {
	key, err := readKeyfile(filename, oldPassphrase)
	if err != nil {
		return err
	}
	defer bzero.Bytes(key)
	tmpfile := filename + ".new"
	os.Remove(tmpfile) // ignore error
	if err := writeKeyfile(tmpfile, newPassphrase, newIter, key); err != nil {
		return err
	}
	if err := os.Rename(tmpfile, filename); err != nil {
		return log.Error(err)
	}
	return nil
}
