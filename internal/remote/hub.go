// Package remote drives browser audio players over websockets. Each
// connected page gets its own player controller; the server owns the
// playback logic and the page only renders commands.
package remote

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub keeps track of live sessions
type Hub struct {
	sessions map[string]*Session

	registerCh   chan *Session
	unregisterCh chan *Session
	quit         chan struct{}
	stopped      chan struct{}

	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewHub creates a hub. Run must be started before sessions connect.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Hub{
		sessions:     make(map[string]*Session),
		registerCh:   make(chan *Session),
		unregisterCh: make(chan *Session),
		quit:         make(chan struct{}),
		stopped:      make(chan struct{}),
		logger:       logger,
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// remaining session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case s := <-h.registerCh:
			h.mu.Lock()
			h.sessions[s.id] = s
			count := len(h.sessions)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"session": s.id,
				"path":    s.path,
				"active":  count,
			}).Info("Player session connected")

		case s := <-h.unregisterCh:
			h.mu.Lock()
			_, ok := h.sessions[s.id]
			delete(h.sessions, s.id)
			count := len(h.sessions)
			h.mu.Unlock()
			if ok {
				h.logger.WithFields(logrus.Fields{
					"session": s.id,
					"active":  count,
				}).Info("Player session disconnected")
			}

		case <-ctx.Done():
			close(h.quit)
			h.closeAll()
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		h.logger.WithField("count", len(sessions)).Info("Closed player sessions")
	}
}

// Stopped is closed once Run has returned
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

func (h *Hub) register(s *Session) {
	select {
	case h.registerCh <- s:
	case <-h.quit:
		s.Close()
	}
}

func (h *Hub) unregister(s *Session) {
	select {
	case h.unregisterCh <- s:
	case <-h.quit:
	}
}

// Count returns the number of live sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions lists live sessions of a profile, oldest first. An empty profile
// lists every session.
func (h *Hub) Sessions(profile string) []SessionInfo {
	h.mu.RLock()
	matched := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if profile == "" || s.profile == profile {
			matched = append(matched, s)
		}
	}
	h.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(matched))
	for _, s := range matched {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}
