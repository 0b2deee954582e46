// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mutecomm/mutechan/chandb"
	"github.com/mutecomm/mutechan/channel"
	"github.com/mutecomm/mutechan/chatmsg"
	"github.com/mutecomm/mutechan/def"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/util"
	"github.com/mutecomm/mutechan/util/bzero"
	"github.com/peterh/liner"
)

func wipe(state []byte) {
	bzero.Bytes(state)
}

func textBody(text string) chatmsg.Body {
	return chatmsg.Text(text)
}

func replyBody(msgID, text string) (chatmsg.Body, error) {
	id, err := chatmsg.ParseID(msgID)
	if err != nil {
		return chatmsg.Body{}, err
	}
	return chatmsg.ReplyTo(id, text), nil
}

func reactBody(msgID, indicator string) (chatmsg.Body, error) {
	id, err := chatmsg.ParseID(msgID)
	if err != nil {
		return chatmsg.Body{}, err
	}
	return chatmsg.ReactTo(id, indicator), nil
}

// loadChannel restores the channel name from chanDB.
func (ce *ChanEngine) loadChannel(name string) (*channel.Channel, error) {
	if err := ce.openDB(); err != nil {
		return nil, err
	}
	entry, err := ce.chanDB.GetChannel(name)
	if err != nil {
		return nil, err
	}
	defer wipe(entry.State)
	st, err := ce.store()
	if err != nil {
		return nil, err
	}
	return channel.Restore(entry.State, st, ce.chanCfg)
}

// saveChannel writes the state of ch back to chanDB.
func (ce *ChanEngine) saveChannel(name string, ch *channel.Channel) error {
	state, err := ch.MarshalBinary()
	if err != nil {
		return err
	}
	defer wipe(state)
	return ce.chanDB.UpdateChannel(name, state)
}

func (ce *ChanEngine) printMessage(dir chandb.Direction, msg *chatmsg.Message) {
	who := "peer"
	if dir == chandb.Sent {
		who = "me"
	}
	fmt.Fprintf(ce.out, "%s %-4s %s %s\n", msg.Time().Format("2006-01-02 15:04:05"),
		who, msg.ID, msg.Summary())
}

// sendOn sends body on the already loaded channel ch and logs the message.
func (ce *ChanEngine) sendOn(name string, ch *channel.Channel, body chatmsg.Body) (*chatmsg.Message, error) {
	msg, err := chatmsg.New(body, ce.chanCfg.Now(), ce.chanCfg.Rand)
	if err != nil {
		return nil, err
	}
	sendErr := ch.SendMessage(ce.ctx, msg)
	// the state changes even if sending failed (initial message, rekey)
	if err := ce.saveChannel(name, ch); err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, sendErr
	}
	if err := ce.chanDB.AddMessage(name, chandb.Sent, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (ce *ChanEngine) send(name string, body chatmsg.Body) error {
	ch, err := ce.loadChannel(name)
	if err != nil {
		return err
	}
	msg, err := ce.sendOn(name, ch, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(ce.out, msg.ID)
	return nil
}

// receiveAll receives messages on ch until there are no more and returns
// their number.
func (ce *ChanEngine) receiveAll(name string, ch *channel.Channel) (int, error) {
	n := 0
	for {
		msg, err := ch.TryReceiveMessage(ce.ctx)
		if err != nil {
			if saveErr := ce.saveChannel(name, ch); saveErr != nil {
				return n, saveErr
			}
			return n, err
		}
		if err := ce.saveChannel(name, ch); err != nil {
			return n, err
		}
		if msg == nil {
			return n, nil
		}
		if err := ce.chanDB.AddMessage(name, chandb.Received, msg); err != nil {
			return n, err
		}
		ce.printMessage(chandb.Received, msg)
		n++
	}
}

// recv receives the pending messages of channel name. With follow it keeps
// polling until timeout passes without new messages (forever if 0).
func (ce *ChanEngine) recv(name string, follow bool, timeout time.Duration) error {
	ch, err := ce.loadChannel(name)
	if err != nil {
		return err
	}
	if err := ch.Flush(ce.ctx); err != nil {
		return err
	}
	cfg := util.PollConfig{
		Min:    def.PollMin,
		Max:    def.PollMax,
		Factor: def.PollFactor,
		Total:  timeout,
	}
	err = util.Poll(ce.ctx, cfg, func() (bool, bool, error) {
		n, err := ce.receiveAll(name, ch)
		return n > 0, !follow, err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// parseChatLine parses a line entered in chat mode.
func parseChatLine(ln string) (body chatmsg.Body, quit bool, err error) {
	if !strings.HasPrefix(ln, "/") {
		return textBody(ln), false, nil
	}
	fields := strings.Fields(ln)
	switch fields[0] {
	case "/quit", "/exit":
		return chatmsg.Body{}, true, nil
	case "/reply":
		if len(fields) < 3 {
			return chatmsg.Body{}, false, errors.New("usage: /reply msgid text")
		}
		body, err = replyBody(fields[1], strings.Join(fields[2:], " "))
		return body, false, err
	case "/react":
		if len(fields) != 3 {
			return chatmsg.Body{}, false, errors.New("usage: /react msgid indicator")
		}
		body, err = reactBody(fields[1], fields[2])
		return body, false, err
	default:
		return chatmsg.Body{}, false, fmt.Errorf("unknown command '%s'", fields[0])
	}
}

// chat runs an interactive session on the channel name. Pending messages
// are received before every prompt.
func (ce *ChanEngine) chat(name string) error {
	ch, err := ce.loadChannel(name)
	if err != nil {
		return err
	}
	if err := ch.Flush(ce.ctx); err != nil {
		return err
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(ln string) (c []string) {
		for _, cmd := range []string{"/quit", "/reply ", "/react "} {
			if strings.HasPrefix(cmd, ln) {
				c = append(c, cmd)
			}
		}
		return
	})
	fmt.Fprintln(ce.out, "empty line to receive, /reply, /react, /quit")
	for {
		if _, err := ce.receiveAll(name, ch); err != nil {
			fmt.Fprintf(ce.out, "receive failed: %s\n", err)
		}
		ln, err := line.Prompt(name + "> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		} else if err != nil {
			return log.Error(err)
		}
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		line.AppendHistory(ln)
		body, quit, err := parseChatLine(ln)
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(ce.out, err)
			continue
		}
		msg, err := ce.sendOn(name, ch, body)
		if err != nil {
			fmt.Fprintf(ce.out, "send failed: %s\n", err)
			continue
		}
		ce.printMessage(chandb.Sent, msg)
	}
}

func (ce *ChanEngine) showLog(name string, limit int) error {
	if err := ce.openDB(); err != nil {
		return err
	}
	entries, err := ce.chanDB.GetMessages(name, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		ce.printMessage(e.Direction, e.Message)
	}
	return nil
}
