// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"fmt"

	"github.com/gogama/hopper/request"
)

// A HandlerGroup holds one handler chain per Event. Install a group in
// a Client through its Handlers field. The zero value is an empty group
// ready to use.
//
// Build the group before the Client starts executing plans. Adding
// handlers is not synchronized with running them.
type HandlerGroup struct {
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. Handlers in a chain run in
// the order they were appended, on the goroutine executing the plan.
//
// PushBack panics if h is nil or evt is not one of the values returned
// by Events.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("hopper: nil handler")
	}
	if evt < 0 || int(evt) >= numEvents {
		panic(fmt.Sprintf("hopper: unknown event %d", int(evt)))
	}
	g.chains[evt] = append(g.chains[evt], h)
}

// On appends h to the chain of every event in evts. With no events, h
// is appended to all chains, so h sees the whole life of each
// execution.
func (g *HandlerGroup) On(h Handler, evts ...Event) {
	if len(evts) == 0 {
		evts = Events()
	}
	for _, evt := range evts {
		g.PushBack(evt, h)
	}
}

// Len returns the number of handlers in the chain for evt.
func (g *HandlerGroup) Len(evt Event) int {
	if g == nil || evt < 0 || int(evt) >= numEvents {
		return 0
	}
	return len(g.chains[evt])
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	for _, h := range g.chains[evt] {
		h.Handle(evt, e)
	}
}

// A Handler is called by Client each time an event it is installed for
// occurs. Handlers may inspect the execution and, where the event
// documents it, change it.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f.
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
