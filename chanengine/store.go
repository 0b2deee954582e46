// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanengine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/frankbraun/codechain/util/file"
	"github.com/mutecomm/mutechan/def"
	"github.com/mutecomm/mutechan/encdb"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/store"
	"github.com/mutecomm/mutechan/store/dbstore"
	"github.com/mutecomm/mutechan/store/memstore"
	"github.com/mutecomm/mutechan/store/rpcstore"
	"github.com/mutecomm/mutechan/util/bzero"
)

const mysqlPrefix = "mysql:"

// blobDBName is the name of the encrypted sqlite store of 'serve' in the
// home directory.
const blobDBName = "blobs"

// openStore returns the store at url: a JSON-RPC store service for HTTP URLs
// or a MySQL database for mysql:<DSN>.
func openStore(url string) (store.Store, func() error, error) {
	switch {
	case strings.HasPrefix(url, mysqlPrefix):
		s, err := dbstore.NewFromURL(strings.TrimPrefix(url, mysqlPrefix))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		log.Debugf("chanengine: using store service %s", url)
		return rpcstore.NewClient(url, def.RequestTimeout), func() error { return nil }, nil
	default:
		return nil, nil, log.Errorf("chanengine: unsupported store URL '%s'", url)
	}
}

// backend returns the storage backend for the store service.
func (ce *ChanEngine) backend(name string, iterations int) (store.Store, func() error, error) {
	switch {
	case name == "memory":
		return memstore.New(), func() error { return nil }, nil
	case name == "sqlite":
		dbname := filepath.Join(ce.homedir, blobDBName)
		exists, err := file.Exists(dbname + encdb.DBSuffix)
		if err != nil {
			return nil, nil, log.Error(err)
		}
		pps, err := ce.readPassphrases("store passphrase: ")
		if err != nil {
			return nil, nil, err
		}
		defer bzero.Slices(pps...)
		if !exists {
			log.Infof("create store database '%s'", dbname)
			err := encdb.Create(dbname, pps[0], iterations, []string{dbstore.CreateQuery})
			if err != nil {
				return nil, nil, err
			}
		}
		db, err := encdb.Open(dbname, pps[0])
		if err != nil {
			return nil, nil, err
		}
		s, err := dbstore.NewFromDB(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() error {
			s.Close()
			return db.Close()
		}, nil
	case strings.HasPrefix(name, mysqlPrefix):
		return openStore(name)
	default:
		return nil, nil, log.Errorf("chanengine: unknown backend '%s'", name)
	}
}

// serve runs the store service on addr until the engine context is canceled.
func (ce *ChanEngine) serve(addr, backendName string, iterations int) error {
	backend, closer, err := ce.backend(backendName, iterations)
	if err != nil {
		return err
	}
	defer closer()
	handler, err := rpcstore.NewHandler(backend)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/rpc", handler)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return log.Error(err)
	}
	srv := &http.Server{Handler: mux}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	log.Infof("chanengine: serving %s store on %s", backendName, ln.Addr())
	fmt.Fprintf(ce.out, "listening on http://%s/rpc\n", ln.Addr())
	select {
	case err := <-errc:
		return log.Error(err)
	case <-ce.ctx.Done():
	}
	log.Info("chanengine: shutting down store service")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return log.Error(err)
	}
	return nil
}
