package player

import (
	"time"

	"discotheque/pkg/models"
)

const listenerBuffer = 10

// State is a snapshot of a controller
type State struct {
	CurrentIndex   int           `json:"currentIndex"` // -1 when no track is selected
	Track          *models.Track `json:"track,omitempty"`
	AutoPlay       bool          `json:"autoPlay"`
	Shuffle        bool          `json:"shuffle"`
	Loop           bool          `json:"loop"`
	Volume         float64       `json:"volume"` // 0.0 to 1.0
	Theme          Theme         `json:"theme"`
	PlaylistLength int           `json:"playlistLength"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// snapshotLocked builds a State (must be called with lock held)
func (c *Controller) snapshotLocked() State {
	s := State{
		CurrentIndex:   c.currentIndex,
		AutoPlay:       c.autoPlay,
		Shuffle:        c.shuffle,
		Loop:           c.playback.Loop(),
		Volume:         c.volume,
		Theme:          c.theme,
		PlaylistLength: c.playlist.Len(),
		UpdatedAt:      c.updatedAt,
	}
	if c.current != nil {
		t := *c.current
		s.Track = &t
	}
	return s
}

// State returns the current state (thread-safe)
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe adds a listener for state changes. The channel is closed when
// the listener falls behind, on Unsubscribe, or when the controller closes;
// a closed controller returns an already closed channel.
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, listenerBuffer)
	if c.closed {
		close(ch)
		return ch
	}
	c.listeners = append(c.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (c *Controller) Unsubscribe(ch <-chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, listener := range c.listeners {
		if listener == ch {
			close(listener)
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
}

// changedLocked stamps the state and notifies listeners (must be called with lock held).
// Listeners that cannot keep up are dropped.
func (c *Controller) changedLocked() {
	c.updatedAt = time.Now()
	snapshot := c.snapshotLocked()

	kept := c.listeners[:0]
	for _, listener := range c.listeners {
		select {
		case listener <- snapshot:
			kept = append(kept, listener)
		default:
			close(listener)
		}
	}
	c.listeners = kept
}

func (c *Controller) closeListenersLocked() {
	for _, listener := range c.listeners {
		close(listener)
	}
	c.listeners = nil
}
