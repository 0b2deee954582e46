// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/mutecomm/mutechan/store"
)

// Client is a store.Store talking to a JSON-RPC store service.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a client for the store service at url. Each request is
// limited by timeout, in addition to the caller's context.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) call(ctx context.Context, op, method string, args, reply interface{}) error {
	buf, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return &store.TransportError{Op: op, Err: err}
	}
	request, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(buf))
	if err != nil {
		return &store.TransportError{Op: op, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(request)
	if err != nil {
		return &store.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return &store.TransportError{Op: op, Err: fmt.Errorf("HTTP status %s", resp.Status)}
	}
	err = json2.DecodeClientResponse(resp.Body, reply)
	if err == nil {
		return nil
	}
	var rpcErr *json2.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case CodeNotFound:
			return store.ErrNotFound
		case CodeRejected:
			return store.ErrRejected
		}
	}
	return &store.TransportError{Op: op, Err: err}
}

// Put implements store.Store.
func (c *Client) Put(ctx context.Context, addr store.Address, payload []byte) error {
	args := &PutArgs{Address: addr.String(), Data: payload}
	return c.call(ctx, "put", "Store.Put", args, &PutReply{})
}

// Get implements store.Store.
func (c *Client) Get(ctx context.Context, addr store.Address) ([]byte, error) {
	var reply GetReply
	if err := c.call(ctx, "get", "Store.Get", &GetArgs{Address: addr.String()}, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}
