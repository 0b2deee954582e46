// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chandb

import (
	"database/sql"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/kex"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util/bzero"
)

// AddHandshake stores the private keypair of an invite sent for the channel
// name until the reply arrives.
func (chanDB *ChanDB) AddHandshake(name string, kp *kex.Keypair) error {
	if name == "" {
		return log.Error(ErrEmptyName)
	}
	enc, err := cbor.Marshal(kp)
	if err != nil {
		return log.Error(err)
	}
	defer bzero.Bytes(enc)
	if _, err := chanDB.addHandshakeQuery.Exec(name, enc, time.Now().Unix()); err != nil {
		return log.Error(err)
	}
	return nil
}

// GetHandshake returns the keypair stored for the channel name.
func (chanDB *ChanDB) GetHandshake(name string) (*kex.Keypair, error) {
	var enc []byte
	err := chanDB.getHandshakeQuery.QueryRow(name).Scan(&enc)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrUnknownHandshake
	case err != nil:
		return nil, log.Error(err)
	}
	defer bzero.Bytes(enc)
	var kp kex.Keypair
	if err := cbor.Unmarshal(enc, &kp); err != nil {
		return nil, log.Error(err)
	}
	return &kp, nil
}

// DelHandshake removes the handshake for the channel name.
func (chanDB *ChanDB) DelHandshake(name string) error {
	res, err := chanDB.delHandshakeQuery.Exec(name)
	if err != nil {
		return log.Error(err)
	}
	nRows, err := res.RowsAffected()
	if err != nil {
		return log.Error(err)
	}
	if nRows == 0 {
		return ErrUnknownHandshake
	}
	return nil
}
