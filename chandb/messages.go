// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chandb

import (
	"database/sql"

	"github.com/fxamacker/cbor/v2"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/log"
)

// Direction of a logged message.
type Direction int

// Message directions.
const (
	Received Direction = 0
	Sent     Direction = 1
)

func (d Direction) String() string {
	if d == Sent {
		return "sent"
	}
	return "received"
}

// Entry is a message log entry.
type Entry struct {
	Direction Direction
	Message   *chatmsg.Message
}

// AddMessage appends msg to the log of the channel name.
func (chanDB *ChanDB) AddMessage(name string, dir Direction, msg *chatmsg.Message) error {
	id, err := chanDB.channelID(name)
	if err != nil {
		return err
	}
	body, err := cbor.Marshal(msg)
	if err != nil {
		return log.Error(err)
	}
	_, err = chanDB.addMessageQuery.Exec(id, msg.ID.String(), int(dir),
		msg.Timestamp, int(msg.Kind), body)
	if err != nil {
		return log.Error(err)
	}
	return nil
}

func scanEntry(scan func(dest ...interface{}) error) (*Entry, error) {
	var (
		dir  int
		body []byte
	)
	if err := scan(&dir, &body); err != nil {
		return nil, err
	}
	var msg chatmsg.Message
	if err := cbor.Unmarshal(body, &msg); err != nil {
		return nil, log.Error(err)
	}
	return &Entry{Direction: Direction(dir), Message: &msg}, nil
}

// GetMessages returns the last limit messages of the channel name, oldest
// first. If limit is 0, all messages are returned.
func (chanDB *ChanDB) GetMessages(name string, limit int) ([]*Entry, error) {
	id, err := chanDB.channelID(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := chanDB.getMessagesQuery.Query(id, limit)
	if err != nil {
		return nil, log.Error(err)
	}
	defer rows.Close()
	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, log.Error(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, log.Error(err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// GetMessage returns the logged message with the given ID from the channel
// name, or nil if there is none.
func (chanDB *ChanDB) GetMessage(name string, msgID chatmsg.ID) (*Entry, error) {
	id, err := chanDB.channelID(name)
	if err != nil {
		return nil, err
	}
	e, err := scanEntry(chanDB.getMessageByIDQuery.QueryRow(id, msgID.String()).Scan)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, log.Error(err)
	}
	return e, nil
}
