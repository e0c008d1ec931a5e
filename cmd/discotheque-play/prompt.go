package main

import (
	"fmt"
	"strings"

	"discotheque/internal/player"
)

// promptFor shows the position in the playlist and the active modes
func promptFor(s player.State) string {
	if s.CurrentIndex < 0 {
		return "♪ "
	}
	var b strings.Builder
	fmt.Fprintf(&b, "♪ %d/%d", s.CurrentIndex+1, s.PlaylistLength)
	if s.Shuffle {
		b.WriteString(" 🔀")
	}
	if s.Loop {
		b.WriteString(" 🔁")
	}
	if !s.AutoPlay {
		b.WriteString(" ⏹")
	}
	b.WriteString(" ")
	return b.String()
}

// followState subscribes to ctrl and calls apply with every change until
// done is closed or the controller is closed. A subscription dropped for
// falling behind is renewed, starting from the current state. The returned
// channel is closed once apply will not be called again.
func followState(ctrl *player.Controller, done <-chan struct{}, apply func(player.State)) <-chan struct{} {
	finished := make(chan struct{})
	ch := ctrl.Subscribe()

	go func() {
		defer close(finished)
		for {
			if stopped := forwardStates(ch, done, apply); stopped {
				ctrl.Unsubscribe(ch)
				return
			}
			if ctrl.Closed() {
				return
			}
			ch = ctrl.Subscribe()
			apply(ctrl.State())
		}
	}()
	return finished
}

// forwardStates reports true when done was closed, false when ch was
func forwardStates(ch <-chan player.State, done <-chan struct{}, apply func(player.State)) bool {
	for {
		select {
		case <-done:
			return true
		case s, ok := <-ch:
			if !ok {
				return false
			}
			apply(s)
		}
	}
}
