// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// PollConfig configures Poll.
type PollConfig struct {
	Min    time.Duration // first delay
	Max    time.Duration // maximum delay between two attempts
	Factor float64
	Total  time.Duration // give up after this long, 0 means never
}

// Poll calls fn until it reports done, returns an error, ctx is canceled or
// the total duration is exceeded. The delay between two calls grows from Min
// to Max and is reset every time fn reports progress.
func Poll(ctx context.Context, cfg PollConfig, fn func() (progress, done bool, err error)) error {
	b := &backoff.Backoff{
		Min:    cfg.Min,
		Max:    cfg.Max,
		Factor: cfg.Factor,
		Jitter: false,
	}
	var total time.Duration
	for {
		progress, done, err := fn()
		if err != nil || done {
			return err
		}
		if progress {
			b.Reset()
			total = 0
			continue
		}
		d := b.Duration()
		if cfg.Total > 0 && total+d > cfg.Total {
			return nil
		}
		total += d
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}
