// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chandb defines an encrypted database used to store channel state,
// pending handshakes, and the message log.
package chandb

import (
	"database/sql"

	"github.com/mutecomm/mutechan/encdb"
)

// Version is the current chandb version.
const Version = "1"

// Entries in KeyValueTable.
const (
	DBVersion  = "Version"    // version string of chandb
	SigningKey = "SigningKey" // 64-byte private Ed25519 key, base64 encoded
	OwnName    = "OwnName"    // display name put into invites and replies
)

const (
	createQueryKeyValue = `
CREATE TABLE KeyValueStore (
  KeyEntry   TEXT NOT NULL UNIQUE,
  ValueEntry TEXT NOT NULL
);`
	createQueryChannels = `
CREATE TABLE Channels (
  ChanID  INTEGER PRIMARY KEY,
  Name    TEXT    NOT NULL UNIQUE, -- local name of the channel
  PeerKey TEXT    NOT NULL,        -- Ed25519 signing key of peer, base64 encoded
  State   BLOB    NOT NULL,        -- serialized channel (contains secrets)
  Created INTEGER NOT NULL         -- unix time
);`
	createQueryHandshakes = `
CREATE TABLE Handshakes (
  HSID    INTEGER PRIMARY KEY,
  Name    TEXT    NOT NULL UNIQUE, -- channel name the handshake is for
  Keypair BLOB    NOT NULL,        -- CBOR encoded kex.Keypair
  Created INTEGER NOT NULL
);`
	createQueryMessages = `
CREATE TABLE Messages (
  MsgIdx    INTEGER PRIMARY KEY,
  Channel   INTEGER NOT NULL, -- foreign key to Channels table
  MsgID     TEXT    NOT NULL, -- hex encoded chat message ID
  Direction INTEGER NOT NULL, -- 0: received message, 1: sent message
  Timestamp INTEGER NOT NULL, -- unix milliseconds set by the sender
  Kind      INTEGER NOT NULL,
  Body      BLOB    NOT NULL, -- CBOR encoded chat message
  FOREIGN KEY(Channel) REFERENCES Channels(ChanID) ON DELETE CASCADE
);`
	updateValueQuery    = "UPDATE KeyValueStore SET ValueEntry=? WHERE KeyEntry=?;"
	insertValueQuery    = "INSERT INTO KeyValueStore (KeyEntry, ValueEntry) VALUES (?, ?);"
	getValueQuery       = "SELECT ValueEntry FROM KeyValueStore WHERE KeyEntry=?;"
	addChannelQuery     = "INSERT INTO Channels (Name, PeerKey, State, Created) VALUES (?, ?, ?, ?);"
	getChannelQuery     = "SELECT ChanID, PeerKey, State, Created FROM Channels WHERE Name=?;"
	getChannelIDQuery   = "SELECT ChanID FROM Channels WHERE Name=?;"
	updateChannelQuery  = "UPDATE Channels SET State=? WHERE Name=?;"
	listChannelsQuery   = "SELECT Name FROM Channels ORDER BY Name ASC;"
	addHandshakeQuery   = "INSERT INTO Handshakes (Name, Keypair, Created) VALUES (?, ?, ?);"
	getHandshakeQuery   = "SELECT Keypair FROM Handshakes WHERE Name=?;"
	delHandshakeQuery   = "DELETE FROM Handshakes WHERE Name=?;"
	addMessageQuery     = "INSERT INTO Messages (Channel, MsgID, Direction, Timestamp, Kind, Body) VALUES (?, ?, ?, ?, ?, ?);"
	getMessagesQuery    = "SELECT Direction, Body FROM Messages WHERE Channel=? ORDER BY MsgIdx DESC LIMIT ?;"
	getMessageByIDQuery = "SELECT Direction, Body FROM Messages WHERE Channel=? AND MsgID=?;"
)

// ChanDB is a handle for an encrypted database to store channels.
type ChanDB struct {
	encDB               *sql.DB
	updateValueQuery    *sql.Stmt
	insertValueQuery    *sql.Stmt
	getValueQuery       *sql.Stmt
	addChannelQuery     *sql.Stmt
	getChannelQuery     *sql.Stmt
	getChannelIDQuery   *sql.Stmt
	updateChannelQuery  *sql.Stmt
	listChannelsQuery   *sql.Stmt
	addHandshakeQuery   *sql.Stmt
	getHandshakeQuery   *sql.Stmt
	delHandshakeQuery   *sql.Stmt
	addMessageQuery     *sql.Stmt
	getMessagesQuery    *sql.Stmt
	getMessageByIDQuery *sql.Stmt
}

// Create returns a new channel database with the given dbname.
// It is encrypted by passphrase (processed by a KDF with iter many iterations).
func Create(dbname string, passphrase []byte, iter int) error {
	err := encdb.Create(dbname, passphrase, iter, []string{
		createQueryKeyValue,
		createQueryChannels,
		createQueryHandshakes,
		createQueryMessages,
	})
	if err != nil {
		return err
	}
	chanDB, err := Open(dbname, passphrase)
	if err != nil {
		return err
	}
	defer chanDB.Close()
	return chanDB.AddValue(DBVersion, Version)
}

// Open opens the channel database with dbname and passphrase.
func Open(dbname string, passphrase []byte) (*ChanDB, error) {
	var chanDB ChanDB
	var err error
	chanDB.encDB, err = encdb.Open(dbname, passphrase)
	if err != nil {
		return nil, err
	}
	stmts := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&chanDB.updateValueQuery, updateValueQuery},
		{&chanDB.insertValueQuery, insertValueQuery},
		{&chanDB.getValueQuery, getValueQuery},
		{&chanDB.addChannelQuery, addChannelQuery},
		{&chanDB.getChannelQuery, getChannelQuery},
		{&chanDB.getChannelIDQuery, getChannelIDQuery},
		{&chanDB.updateChannelQuery, updateChannelQuery},
		{&chanDB.listChannelsQuery, listChannelsQuery},
		{&chanDB.addHandshakeQuery, addHandshakeQuery},
		{&chanDB.getHandshakeQuery, getHandshakeQuery},
		{&chanDB.delHandshakeQuery, delHandshakeQuery},
		{&chanDB.addMessageQuery, addMessageQuery},
		{&chanDB.getMessagesQuery, getMessagesQuery},
		{&chanDB.getMessageByIDQuery, getMessageByIDQuery},
	}
	for _, s := range stmts {
		if *s.stmt, err = chanDB.encDB.Prepare(s.query); err != nil {
			chanDB.encDB.Close()
			return nil, err
		}
	}
	return &chanDB, nil
}

// Version returns the current version of chanDB.
func (chanDB *ChanDB) Version() (string, error) {
	return chanDB.GetValue(DBVersion)
}

// DB returns the internal database handle for the channel database.
// Usually this method should not be used!
func (chanDB *ChanDB) DB() *sql.DB {
	return chanDB.encDB
}

// Close the channel database.
func (chanDB *ChanDB) Close() error {
	return chanDB.encDB.Close()
}

// Rekey tries to rekey the channel database dbname with the newPassphrase
// (processed by a KDF with iter many iterations). The supplied oldPassphrase
// must be correct, otherwise an error is returned.
func Rekey(dbname string, oldPassphrase, newPassphrase []byte, newIter int) error {
	return encdb.Rekey(dbname, oldPassphrase, newPassphrase, newIter)
}

// Status returns the autoVacuum mode and freelistCount of chanDB.
func (chanDB *ChanDB) Status() (autoVacuum string, freelistCount int64, err error) {
	return encdb.Status(chanDB.encDB)
}

// Vacuum executes VACUUM command in chanDB.
func (chanDB *ChanDB) Vacuum(autoVacuumMode string) error {
	return encdb.Vacuum(chanDB.encDB, autoVacuumMode)
}
