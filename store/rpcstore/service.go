// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcstore

import (
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/mutecomm/mutechan/log"
	"github.com/mutecomm/mutechan/store"
)

// Service exposes a store.Store as JSON-RPC service "Store".
type Service struct {
	backend store.Store
}

// NewHandler returns an HTTP handler serving the JSON-RPC service for
// backend.
func NewHandler(backend store.Store) (http.Handler, error) {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&Service{backend: backend}, "Store"); err != nil {
		return nil, log.Error(err)
	}
	return s, nil
}

func toRPCError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &json2.Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, store.ErrRejected):
		return &json2.Error{Code: CodeRejected, Message: err.Error()}
	default:
		log.Errorf("rpcstore: backend: %s", err)
		return &json2.Error{Code: CodeBackend, Message: "backend failure"}
	}
}

// Put stores args.Data at args.Address.
func (s *Service) Put(r *http.Request, args *PutArgs, reply *PutReply) error {
	addr, err := store.ParseAddress(args.Address)
	if err != nil || len(addr) == 0 {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "invalid address"}
	}
	if len(args.Data) > MaxPayload {
		return &json2.Error{Code: CodeRejected, Message: "payload too large"}
	}
	if err := s.backend.Put(r.Context(), addr, args.Data); err != nil {
		return toRPCError(err)
	}
	log.Tracef("rpcstore: put %s (%d bytes)", addr, len(args.Data))
	return nil
}

// Get returns the data stored at args.Address.
func (s *Service) Get(r *http.Request, args *GetArgs, reply *GetReply) error {
	addr, err := store.ParseAddress(args.Address)
	if err != nil || len(addr) == 0 {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "invalid address"}
	}
	data, err := s.backend.Get(r.Context(), addr)
	if err != nil {
		return toRPCError(err)
	}
	reply.Data = data
	return nil
}
