// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpcstore implements a JSON-RPC store service and a client for it
// which satisfies store.Store.
package rpcstore

import (
	"github.com/gorilla/rpc/v2/json2"
)

// Error codes returned by the service in addition to the JSON-RPC 2.0 ones.
const (
	CodeNotFound json2.ErrorCode = -32001
	CodeRejected json2.ErrorCode = -32002
	CodeBackend  json2.ErrorCode = -32003
)

// MaxPayload limits the size of a single stored payload.
const MaxPayload = 1 << 20

// PutArgs are the arguments of Store.Put.
type PutArgs struct {
	Address string // base64url
	Data    []byte
}

// PutReply is the reply of Store.Put.
type PutReply struct{}

// GetArgs are the arguments of Store.Get.
type GetArgs struct {
	Address string // base64url
}

// GetReply is the reply of Store.Get.
type GetReply struct {
	Data []byte
}
