// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/structs"
	"github.com/mutecomm/mutechan/channel"
	"github.com/mutecomm/mutechan/handshake"
	"github.com/mutecomm/mutechan/log"
)

// marshalSorted encodes strct as indented JSON with sorted keys, extended by
// the given extra entries.
func marshalSorted(strct interface{}, extra map[string]interface{}) ([]byte, error) {
	// maps are encoded sorted, structs are not
	m := structs.Map(strct)
	for k, v := range extra {
		m[k] = v
	}
	jsn, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, log.Error(err)
	}
	return jsn, nil
}

func (ce *ChanEngine) list() error {
	if err := ce.openDB(); err != nil {
		return err
	}
	names, err := ce.chanDB.ListChannels()
	if err != nil {
		return err
	}
	for _, name := range names {
		entry, err := ce.chanDB.GetChannel(name)
		if err != nil {
			return err
		}
		// no store needed to inspect the state
		ch, err := channel.Restore(entry.State, nil, ce.chanCfg)
		wipe(entry.State)
		if err != nil {
			return err
		}
		status := "pending"
		if ch.Established() {
			status = "established"
		}
		peer := handshake.Peer{SigningKey: entry.PeerKey}
		fmt.Fprintf(ce.out, "%s\t%s\t%s\n", name, status, peer.Fingerprint())
	}
	return nil
}

func (ce *ChanEngine) show(name string) error {
	if err := ce.openDB(); err != nil {
		return err
	}
	entry, err := ce.chanDB.GetChannel(name)
	if err != nil {
		return err
	}
	ch, err := channel.Restore(entry.State, nil, ce.chanCfg)
	wipe(entry.State)
	if err != nil {
		return err
	}
	peer := handshake.Peer{SigningKey: entry.PeerKey}
	jsn, err := marshalSorted(ch.Status(), map[string]interface{}{
		"Name":            name,
		"PeerFingerprint": peer.Fingerprint(),
		"Created":         entry.Created.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(ce.out, string(jsn))
	return nil
}
