// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chandb

import (
	"database/sql"

	"github.com/mutecomm/mutechan/log"
)

// AddValue adds a key-value pair to chanDB. An existing value is replaced.
func (chanDB *ChanDB) AddValue(key, value string) error {
	if key == "" {
		return log.Error("chandb: key must be defined")
	}
	if value == "" {
		return log.Error("chandb: value must be defined")
	}
	res, err := chanDB.updateValueQuery.Exec(value, key)
	if err != nil {
		return log.Error(err)
	}
	nRows, err := res.RowsAffected()
	if err != nil {
		return log.Error(err)
	}
	if nRows == 0 {
		if _, err := chanDB.insertValueQuery.Exec(key, value); err != nil {
			return log.Error(err)
		}
	}
	return nil
}

// GetValue gets the value for the given key from chanDB. An undefined key
// yields the empty string.
func (chanDB *ChanDB) GetValue(key string) (string, error) {
	if key == "" {
		return "", log.Error("chandb: key must be defined")
	}
	var value string
	err := chanDB.getValueQuery.QueryRow(key).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return "", nil
	case err != nil:
		return "", log.Error(err)
	default:
		return value, nil
	}
}
