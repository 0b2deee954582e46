// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chandb

import (
	"database/sql"
	"time"

	"github.com/mutecomm/mutechan/encode/base64"
	"github.com/mutecomm/mutechan/log"
)

// Channel is a channel entry.
type Channel struct {
	Name    string
	PeerKey []byte // Ed25519 signing key of the peer
	State   []byte // see channel.Restore
	Created time.Time
}

// AddChannel adds a new channel with the given name and serialized state.
func (chanDB *ChanDB) AddChannel(name string, peerKey, state []byte, created time.Time) error {
	if name == "" {
		return log.Error(ErrEmptyName)
	}
	var id int64
	err := chanDB.getChannelIDQuery.QueryRow(name).Scan(&id)
	switch {
	case err == nil:
		return log.Error(ErrChannelExists)
	case err != sql.ErrNoRows:
		return log.Error(err)
	}
	_, err = chanDB.addChannelQuery.Exec(name, base64.Encode(peerKey), state, created.Unix())
	if err != nil {
		return log.Error(err)
	}
	return nil
}

// GetChannel returns the channel with the given name.
func (chanDB *ChanDB) GetChannel(name string) (*Channel, error) {
	var (
		id      int64
		peerKey string
		created int64
		c       = Channel{Name: name}
	)
	err := chanDB.getChannelQuery.QueryRow(name).Scan(&id, &peerKey, &c.State, &created)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrUnknownChannel
	case err != nil:
		return nil, log.Error(err)
	}
	c.PeerKey, err = base64.Decode(peerKey)
	if err != nil {
		return nil, log.Error(err)
	}
	c.Created = time.Unix(created, 0)
	return &c, nil
}

// UpdateChannel replaces the serialized state of the channel name.
func (chanDB *ChanDB) UpdateChannel(name string, state []byte) error {
	res, err := chanDB.updateChannelQuery.Exec(state, name)
	if err != nil {
		return log.Error(err)
	}
	nRows, err := res.RowsAffected()
	if err != nil {
		return log.Error(err)
	}
	if nRows == 0 {
		return log.Error(ErrUnknownChannel)
	}
	return nil
}

// ListChannels returns the names of all channels, sorted.
func (chanDB *ChanDB) ListChannels() ([]string, error) {
	rows, err := chanDB.listChannelsQuery.Query()
	if err != nil {
		return nil, log.Error(err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, log.Error(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, log.Error(err)
	}
	return names, nil
}

func (chanDB *ChanDB) channelID(name string) (int64, error) {
	var id int64
	err := chanDB.getChannelIDQuery.QueryRow(name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return 0, ErrUnknownChannel
	case err != nil:
		return 0, log.Error(err)
	}
	return id, nil
}
