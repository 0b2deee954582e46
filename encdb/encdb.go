// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package encdb defines an encrypted database used within mutechan.
Such an encrypted database consists of two files for a given database file with
name "dbname":

	dbname.db
	dbname.key

The file "dbname.db" is an encrypted sqlite3 file managed by the package
"github.com/mutecomm/go-sqlcipher". The file named "dbname.key" contains the
(randomly generated) raw encryption key for "dbname.db", sealed with
ChaCha20-Poly1305. The key file is opened with a key derived from a
passphrase by PBKDF2 (with a configurable number of iterations).

A rekey of the database only replaces the key file, the database file itself
is not modified.
*/
package encdb

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/frankbraun/codechain/util/file"
	"github.com/mutecomm/go-sqlcipher"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util"
	"github.com/mutecomm/mutechan/util/bzero"
)

// DBSuffix defines the suffix for database files.
const DBSuffix = ".db"

// KeySuffix defines the suffix for key files.
const KeySuffix = ".key"

func createTables(db *sql.DB, createStmts []string) error {
	for _, stmt := range createStmts {
		if _, err := db.Exec(stmt); err != nil {
			return log.Errorf("encdb: %q: %s", err, stmt)
		}
	}
	return nil
}

func dsn(dbfile string, key []byte) string {
	return dbfile +
		fmt.Sprintf("?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
			hex.EncodeToString(key))
}

func mustNotExist(filenames ...string) error {
	for _, filename := range filenames {
		exists, err := file.Exists(filename)
		if err != nil {
			return log.Error(err)
		}
		if exists {
			return log.Errorf("encdb: file '%s' exists already", filename)
		}
	}
	return nil
}

func mustExist(filenames ...string) error {
	for _, filename := range filenames {
		exists, err := file.Exists(filename)
		if err != nil {
			return log.Error(err)
		}
		if !exists {
			return log.Errorf("encdb: file '%s' does not exist", filename)
		}
	}
	return nil
}

// Create tries to create an encrypted database with the given passphrase and
// iter many KDF iterations. Thereby, dbname is the prefix of the following
// two database files which will be created and must not exist already:
//
//	dbname.db
//	dbname.key
//
// The SQL database is initialized with the statements given in createStmts.
func Create(dbname string, passphrase []byte, iter int, createStmts []string) error {
	dbfile := dbname + DBSuffix
	keyfile := dbname + KeySuffix
	if err := mustNotExist(dbfile, keyfile); err != nil {
		return err
	}
	key, err := generateKeyfile(keyfile, passphrase, iter)
	if err != nil {
		return err
	}
	defer bzero.Bytes(key)
	db, err := sql.Open("sqlite3", dsn(dbfile, key))
	if err != nil {
		return log.Error(err)
	}
	if _, err := db.Exec("PRAGMA auto_vacuum = full;"); err != nil {
		db.Close()
		return log.Error(err)
	}
	if err := createTables(db, createStmts); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return log.Error(err)
	}
	encrypted, err := sqlite3.IsEncrypted(dbfile)
	if err != nil {
		return log.Error(err)
	}
	if !encrypted {
		return log.Errorf("encdb: created dbfile '%s' is not encrypted", dbfile)
	}
	return nil
}

// Open tries to open an encrypted database with the given passphrase.
// Thereby, dbname is the prefix of the following two database files (which
// must already exist):
//
//	dbname.db
//	dbname.key
func Open(dbname string, passphrase []byte) (*sql.DB, error) {
	dbfile := dbname + DBSuffix
	keyfile := dbname + KeySuffix
	if err := mustExist(dbfile, keyfile); err != nil {
		return nil, err
	}
	encrypted, err := sqlite3.IsEncrypted(dbfile)
	if err != nil {
		return nil, log.Error(err)
	}
	if !encrypted {
		return nil, log.Errorf("encdb: dbfile '%s' is not encrypted", dbfile)
	}
	key, err := readKeyfile(keyfile, passphrase)
	if err != nil {
		return nil, err
	}
	defer bzero.Bytes(key)
	db, err := sql.Open("sqlite3", dsn(dbfile, key)+"&_foreign_keys=1")
	if err != nil {
		return nil, log.Error(err)
	}
	// test key
	if _, err := db.Exec("SELECT count(*) FROM sqlite_master;"); err != nil {
		db.Close()
		return nil, log.Error(err)
	}
	return db, nil
}

// Rekey tries to rekey an encrypted database with the given newPassphrase and
// newIter many KDF iterations. The correct oldPassphrase must be supplied.
// Rekey replaces the dbname.key file and leaves the dbname.db file unmodified.
func Rekey(dbname string, oldPassphrase, newPassphrase []byte, newIter int) error {
	encdb, err := Open(dbname, oldPassphrase)
	if err != nil {
		return err
	}
	defer encdb.Close()
	return replaceKeyfile(dbname+KeySuffix, oldPassphrase, newPassphrase, newIter)
}

var autoVacuumModes = []string{
	"NONE",
	"FULL",
	"INCREMENTAL",
}

// Status returns the autoVacuum and freelistCount of db.
func Status(db *sql.DB) (autoVacuum string, freelistCount int64, err error) {
	var av int64
	err = db.QueryRow("PRAGMA auto_vacuum;").Scan(&av)
	if err != nil {
		return "", 0, log.Error(err)
	}
	autoVacuum = autoVacuumModes[av]
	err = db.QueryRow("PRAGMA freelist_count;").Scan(&freelistCount)
	if err != nil {
		return "", 0, log.Error(err)
	}
	return
}

// Vacuum executes VACUUM command in db. If autoVacuumMode is not empty and
// different from the current one, the auto_vacuum mode is changed before
// VACUUM is executed.
func Vacuum(db *sql.DB, autoVacuumMode string) error {
	if autoVacuumMode != "" {
		if !util.ContainsString(autoVacuumModes, autoVacuumMode) {
			return log.Errorf("encdb: unknown auto_vacuum mode: %s", autoVacuumMode)
		}
		var av int64
		if err := db.QueryRow("PRAGMA auto_vacuum;").Scan(&av); err != nil {
			return log.Error(err)
		}
		if autoVacuumModes[av] != autoVacuumMode {
			_, err := db.Exec(fmt.Sprintf("PRAGMA auto_vacuum = %s;", autoVacuumMode))
			if err != nil {
				return log.Error(err)
			}
		}
	}
	if _, err := db.Exec("VACUUM;"); err != nil {
		return log.Error(err)
	}
	return nil
}

// Incremental executes incremental_vacuum to free up to pages many pages. If
// pages is 0, all pages are freed. If the current auto_vacuum mode is not
// INCREMENTAL, an error is returned.
func Incremental(db *sql.DB, pages int64) error {
	var av int64
	if err := db.QueryRow("PRAGMA auto_vacuum;").Scan(&av); err != nil {
		return log.Error(err)
	}
	if autoVacuumModes[av] != "INCREMENTAL" {
		return log.Error("encdb: current auto_vacuum mode is not INCREMENTAL")
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA incremental_vacuum(%d);", pages)); err != nil {
		return log.Error(err)
	}
	return nil
}
