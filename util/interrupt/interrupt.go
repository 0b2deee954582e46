// Copyright (c) 2013 Conformal Systems LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package interrupt allows to handle interrupts.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mutecomm/mutechan/log"
)

var (
	mutex              sync.Mutex
	interruptChannel   chan os.Signal
	interruptCallbacks []func()
)

// mainInterruptHandler listens for SIGINT (Ctrl+C) and SIGTERM signals on the
// interruptChannel and invokes the registered callbacks in reverse order of
// registration. Afterwards signals are no longer caught, so a second one
// terminates the process. It must be run as a goroutine.
func mainInterruptHandler() {
	sig := <-interruptChannel
	log.Infof("received %s. Shutting down...", sig)
	mutex.Lock()
	callbacks := interruptCallbacks
	mutex.Unlock()
	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}
	signal.Stop(interruptChannel)
}

// AddInterruptHandler adds a handler to call when a SIGINT (Ctrl+C) or
// SIGTERM is received.
func AddInterruptHandler(handler func()) {
	mutex.Lock()
	defer mutex.Unlock()
	// Create the channel and start the main interrupt handler which invokes
	// all other callbacks and exits if not already done.
	if interruptChannel == nil {
		interruptChannel = make(chan os.Signal, 1)
		signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)
		go mainInterruptHandler()
	}
	interruptCallbacks = append(interruptCallbacks, handler)
}

// Context returns a context that is canceled on SIGINT (Ctrl+C) or SIGTERM.
func Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	AddInterruptHandler(cancel)
	return ctx
}
