// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chanengine implements the command engine for mutechan.
package chanengine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mutecomm/mutechan/algo"
	"github.com/mutecomm/mutechan/chandb"
	"github.com/mutecomm/mutechan/channel"
	"github.com/mutecomm/mutechan/def"
	"github.com/mutecomm/mutechan/def/version"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/store"
	"github.com/mutecomm/mutechan/util"
	"github.com/mutecomm/mutechan/util/bzero"
	"github.com/mutecomm/mutechan/util/interrupt"
	"github.com/urfave/cli"
)

// ChanEngine abstracts a mutechan command engine.
type ChanEngine struct {
	prepared     bool
	homedir      string
	passphraseFD int
	passphrases  [][]byte // used instead of reading passphrase-fd, if set
	cfg          *def.Config
	storeURL     string
	chanCfg      *channel.Config

	chanDB     *chandb.ChanDB
	st         store.Store
	closeStore func() error

	ctx context.Context
	out io.Writer
	app *cli.App
}

func (ce *ChanEngine) prepare(c *cli.Context) error {
	if ce.prepared {
		return nil
	}
	ce.homedir = c.GlobalString("homedir")
	ce.passphraseFD = c.GlobalInt("passphrase-fd")

	logdir := c.GlobalString("logdir")
	if logdir == "" {
		logdir = filepath.Join(ce.homedir, def.LogDir)
	}

	// create the necessary directories if they don't already exist
	if err := util.CreateDirs(ce.homedir, logdir); err != nil {
		return err
	}

	// initialize logging framework
	err := log.Init(c.GlobalString("loglevel"), "mchan", logdir,
		c.GlobalBool("logconsole"))
	if err != nil {
		return err
	}

	// configure
	ce.cfg, err = def.LoadConfig(ce.homedir)
	if err != nil {
		return err
	}
	ce.storeURL = ce.cfg.StoreURL
	if c.GlobalIsSet("store") {
		ce.storeURL = c.GlobalString("store")
	}
	ce.chanCfg, err = channelConfig(ce.cfg)
	if err != nil {
		return err
	}

	ce.prepared = true
	return nil
}

// channelConfig translates the algorithm names of cfg.
func channelConfig(cfg *def.Config) (*channel.Config, error) {
	chanCfg := channel.DefaultConfig()
	var err error
	if cfg.KDF != "" {
		if chanCfg.KDF, err = algo.ParseKDF(cfg.KDF); err != nil {
			return nil, err
		}
	}
	if cfg.AEAD != "" {
		if chanCfg.AEAD, err = algo.ParseAEAD(cfg.AEAD); err != nil {
			return nil, err
		}
	}
	if len(cfg.Offer) > 0 {
		chanCfg.Offer = nil
		for _, name := range cfg.Offer {
			alg, err := algo.ParseKeyExchange(name)
			if err != nil {
				return nil, err
			}
			chanCfg.Offer = append(chanCfg.Offer, alg)
		}
	}
	return chanCfg, nil
}

func (ce *ChanEngine) dbname() string {
	return filepath.Join(ce.homedir, def.DBName)
}

// readPassphrases returns n passphrases. They are read from passphrase-fd,
// with a prompt each if it is a terminal.
func (ce *ChanEngine) readPassphrases(prompts ...string) ([][]byte, error) {
	if ce.passphrases != nil {
		if len(ce.passphrases) < len(prompts) {
			return nil, log.Error("chanengine: not enough passphrases")
		}
		pps := ce.passphrases[:len(prompts)]
		ce.passphrases = ce.passphrases[len(prompts):]
		return pps, nil
	}
	fp := os.Stdin
	if ce.passphraseFD != 0 {
		fp = os.NewFile(uintptr(ce.passphraseFD), "passphrase-fd")
		defer fp.Close()
	}
	log.Infof("read passphrase from fd %d", ce.passphraseFD)
	if !isTerminal(fp) {
		return readLines(fp, len(prompts))
	}
	pps := make([][]byte, 0, len(prompts))
	for _, prompt := range prompts {
		fmt.Fprint(os.Stderr, prompt)
		pp, err := util.Readline(fp)
		if err != nil {
			return nil, err
		}
		pps = append(pps, pp)
	}
	return pps, nil
}

func (ce *ChanEngine) openDB() error {
	if ce.chanDB != nil {
		return nil
	}
	pps, err := ce.readPassphrases("passphrase: ")
	if err != nil {
		return err
	}
	defer bzero.Bytes(pps[0])
	log.Infof("open chanDB '%s'", ce.dbname())
	ce.chanDB, err = chandb.Open(ce.dbname(), pps[0])
	return err
}

// store returns the channel store, connecting to it on first use.
func (ce *ChanEngine) store() (store.Store, error) {
	if ce.st == nil {
		st, closer, err := openStore(ce.storeURL)
		if err != nil {
			return nil, err
		}
		ce.st = st
		ce.closeStore = closer
	}
	return ce.st, nil
}

// New returns a new mutechan engine.
func New() *ChanEngine {
	ce := &ChanEngine{
		ctx: context.Background(),
		out: os.Stdout,
	}
	ce.app = cli.NewApp()
	ce.app.Name = "mutechan"
	ce.app.Usage = "forward-secure chat channels over a content-addressed store"
	ce.app.Version = version.Number
	ce.app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "homedir",
			Value:  def.HomeDir(),
			Usage:  "set home directory",
			EnvVar: "MUTECHAN_HOMEDIR",
		},
		cli.StringFlag{
			Name:   "store",
			Value:  def.StoreURL,
			Usage:  "store service URL or mysql:<DSN>",
			EnvVar: "MUTECHAN_STORE",
		},
		cli.IntFlag{
			Name:  "passphrase-fd",
			Value: 0,
			Usage: "passphrase file descriptor",
		},
		cli.StringFlag{
			Name:  "loglevel",
			Value: "info",
			Usage: "logging level {trace, debug, info, warn, error, critical}",
		},
		cli.StringFlag{
			Name:  "logdir",
			Usage: "directory to log output (default: <homedir>/log)",
		},
		cli.BoolFlag{
			Name:  "logconsole",
			Usage: "enable logging to console",
		},
	}
	ce.app.Before = ce.prepare
	ce.app.Commands = ce.commands()
	return ce
}

func nargs(min, max int) cli.BeforeFunc {
	return func(c *cli.Context) error {
		switch {
		case c.NArg() < min:
			return log.Errorf("missing argument(s), expected at least %d", min)
		case max >= 0 && c.NArg() > max:
			return log.Errorf("superfluous argument(s): %s",
				strings.Join(c.Args()[max:], " "))
		}
		return nil
	}
}

func (ce *ChanEngine) commands() []cli.Command {
	return []cli.Command{
		{
			Name:      "create",
			Usage:     "Create channel database and signing key",
			ArgsUsage: "name",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "iterations",
					Value: def.KDFIterations,
					Usage: "number of KDF iterations used for database creation",
				},
				cli.BoolFlag{
					Name:  "generate",
					Usage: "generate a random passphrase and print it",
				},
			},
			Before: nargs(1, 1),
			Action: func(c *cli.Context) error {
				iter := ce.cfg.KDFIterations
				if c.IsSet("iterations") {
					iter = c.Int("iterations")
				}
				return ce.create(c.Args().First(), iter, c.Bool("generate"))
			},
		},
		{
			Name:  "rekey",
			Usage: "Change passphrase of channel database",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "iterations",
					Value: def.KDFIterations,
					Usage: "number of KDF iterations used for database rekeying",
				},
			},
			Before: nargs(0, 0),
			Action: func(c *cli.Context) error {
				return ce.rekey(c.Int("iterations"))
			},
		},
		{
			Name:      "invite",
			Usage:     "Create invite for a new channel",
			ArgsUsage: "channel",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "kex",
					Value: algo.X25519.String(),
					Usage: "key exchange algorithm {x25519, ristretto255}",
				},
			},
			Before: nargs(1, 1),
			Action: func(c *cli.Context) error {
				return ce.invite(c.Args().First(), c.String("kex"))
			},
		},
		{
			Name:      "accept",
			Usage:     "Accept invite and open channel",
			ArgsUsage: "channel invite",
			Before:    nargs(2, 2),
			Action: func(c *cli.Context) error {
				return ce.accept(c.Args().Get(0), c.Args().Get(1))
			},
		},
		{
			Name:      "finish",
			Usage:     "Open channel with reply to invite",
			ArgsUsage: "channel reply",
			Before:    nargs(2, 2),
			Action: func(c *cli.Context) error {
				return ce.finish(c.Args().Get(0), c.Args().Get(1))
			},
		},
		{
			Name:      "send",
			Usage:     "Send message on channel",
			ArgsUsage: "channel text...",
			Before:    nargs(2, -1),
			Action: func(c *cli.Context) error {
				text := strings.Join(c.Args().Tail(), " ")
				return ce.send(c.Args().First(), textBody(text))
			},
		},
		{
			Name:      "reply",
			Usage:     "Reply to message on channel",
			ArgsUsage: "channel msgid text...",
			Before:    nargs(3, -1),
			Action: func(c *cli.Context) error {
				body, err := replyBody(c.Args().Get(1), strings.Join(c.Args()[2:], " "))
				if err != nil {
					return err
				}
				return ce.send(c.Args().First(), body)
			},
		},
		{
			Name:      "react",
			Usage:     "React to message on channel",
			ArgsUsage: "channel msgid indicator",
			Before:    nargs(3, 3),
			Action: func(c *cli.Context) error {
				body, err := reactBody(c.Args().Get(1), c.Args().Get(2))
				if err != nil {
					return err
				}
				return ce.send(c.Args().First(), body)
			},
		},
		{
			Name:      "recv",
			Usage:     "Receive messages from channel",
			ArgsUsage: "channel",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "follow",
					Usage: "keep polling for new messages",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "stop following after this long without messages",
				},
			},
			Before: nargs(1, 1),
			Action: func(c *cli.Context) error {
				return ce.recv(c.Args().First(), c.Bool("follow"), c.Duration("timeout"))
			},
		},
		{
			Name:      "chat",
			Usage:     "Interactive chat on channel",
			ArgsUsage: "channel",
			Before:    nargs(1, 1),
			Action: func(c *cli.Context) error {
				return ce.chat(c.Args().First())
			},
		},
		{
			Name:   "list",
			Usage:  "List channels",
			Before: nargs(0, 0),
			Action: func(c *cli.Context) error {
				return ce.list()
			},
		},
		{
			Name:      "show",
			Usage:     "Show channel status as JSON",
			ArgsUsage: "channel",
			Before:    nargs(1, 1),
			Action: func(c *cli.Context) error {
				return ce.show(c.Args().First())
			},
		},
		{
			Name:      "log",
			Usage:     "Show message log of channel",
			ArgsUsage: "channel",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "limit",
					Usage: "show only the last n messages (default: all)",
				},
			},
			Before: nargs(1, 1),
			Action: func(c *cli.Context) error {
				return ce.showLog(c.Args().First(), c.Int("limit"))
			},
		},
		{
			Name:  "serve",
			Usage: "Run the store service",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "listen",
					Usage: "listen address (default from config)",
				},
				cli.StringFlag{
					Name:  "backend",
					Value: "memory",
					Usage: "storage backend {memory, sqlite, mysql:<DSN>}",
				},
				cli.IntFlag{
					Name:  "iterations",
					Value: def.KDFIterations,
					Usage: "number of KDF iterations used for sqlite backend creation",
				},
			},
			Before: nargs(0, 0),
			Action: func(c *cli.Context) error {
				addr := c.String("listen")
				if addr == "" {
					addr = ce.cfg.ListenAddr
				}
				return ce.serve(addr, c.String("backend"), c.Int("iterations"))
			},
		},
	}
}

// Start the engine with the given command line arguments. Blocking
// operations are canceled on SIGINT or SIGTERM.
func (ce *ChanEngine) Start(args []string) error {
	ce.ctx = interrupt.Context()
	return ce.app.Run(args)
}

// Close the engine.
func (ce *ChanEngine) Close() {
	if ce.closeStore != nil {
		if err := ce.closeStore(); err != nil {
			log.Warn(err)
		}
		ce.closeStore = nil
	}
	ce.st = nil
	if ce.chanDB != nil {
		if err := ce.chanDB.Close(); err != nil {
			log.Warn(err)
		}
		ce.chanDB = nil
	}
}
