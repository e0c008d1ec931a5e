package remote

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"discotheque/internal/player"
	"discotheque/pkg/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// sameOriginUpgrader keeps gorilla's default origin check: a browser Origin
// header must match the request Host.
var sameOriginUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var anyOriginUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade switches an HTTP request to a websocket connection. Cross-origin
// pages are refused with 403 unless allowAnyOrigin is set.
func Upgrade(w http.ResponseWriter, r *http.Request, allowAnyOrigin bool) (*websocket.Conn, error) {
	if allowAnyOrigin {
		return anyOriginUpgrader.Upgrade(w, r, nil)
	}
	return sameOriginUpgrader.Upgrade(w, r, nil)
}

// Session is one connected browser. It is the playback handle and the view
// of its controller: every port call becomes a Command, and Events read from
// the socket drive the controller.
type Session struct {
	id          string
	profile     string
	path        string
	connectedAt time.Time

	hub    *Hub
	conn   *websocket.Conn
	logger *logrus.Logger
	ctrl   *player.Controller

	send chan Command
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	src    string
	loop   bool
	volume float64
}

// NewSession wraps conn. Attach a controller before calling Start.
func NewSession(hub *Hub, conn *websocket.Conn, profile, path string, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = hub.logger
	}
	return &Session{
		id:          uuid.NewString(),
		profile:     profile,
		path:        path,
		connectedAt: time.Now(),
		hub:         hub,
		conn:        conn,
		logger:      logger,
		send:        make(chan Command, sendBuffer),
		done:        make(chan struct{}),
		volume:      player.DefaultVolume,
	}
}

// Attach binds the controller driven by this session
func (s *Session) Attach(ctrl *player.Controller) {
	s.ctrl = ctrl
}

// Start registers the session and runs its pumps
func (s *Session) Start() {
	s.hub.register(s)
	go s.writePump()
	go s.readPump()
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.ctrl != nil {
			s.ctrl.Close()
		}
		s.conn.Close()
	})
}

// Info describes the session for listings
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:          s.id,
		Path:        s.path,
		ConnectedAt: s.connectedAt,
	}
	if s.ctrl != nil {
		state := s.ctrl.State()
		info.State = &state
	}
	return info
}

// SessionInfo is the public view of a session
type SessionInfo struct {
	ID          string        `json:"id"`
	Path        string        `json:"path"`
	ConnectedAt time.Time     `json:"connectedAt"`
	State       *player.State `json:"state,omitempty"`
}

func (s *Session) enqueue(cmd Command) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- cmd:
	default:
		s.logger.WithFields(logrus.Fields{
			"session": s.id,
			"type":    cmd.Type,
		}).Warn("Send buffer full, dropping command")
	}
}

// SetSource loads src in the browser's audio element
func (s *Session) SetSource(src string) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	s.enqueue(Command{Type: TypeLoad, Src: src})
}

// SetLoop sets the audio element's loop flag
func (s *Session) SetLoop(loop bool) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
	s.enqueue(Command{Type: TypeLoop, Loop: &loop})
}

// Loop returns the last loop flag sent
func (s *Session) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// SetVolume sets the audio element's volume
func (s *Session) SetVolume(volume float64) {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	s.enqueue(Command{Type: TypeVolume, Volume: &volume})
}

// Volume returns the volume last reported by the browser or sent to it
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Play asks the browser to start playback. A refusal arrives later as a
// play_rejected event.
func (s *Session) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return websocket.ErrCloseSent
	default:
	}
	s.enqueue(Command{Type: TypePlay})
	return nil
}

// ShowTrack updates the now-playing block
func (s *Session) ShowTrack(track models.Track) {
	s.enqueue(Command{Type: TypeTrack, Track: &track})
}

// SetLabel updates a toggle button
func (s *Session) SetLabel(control player.Control, label string, active bool) {
	s.enqueue(Command{Type: TypeLabel, Control: string(control), Label: label, Active: &active})
}

// SetTheme switches the page theme
func (s *Session) SetTheme(theme player.Theme) {
	s.enqueue(Command{Type: TypeTheme, Theme: string(theme)})
}

// handle applies one browser event. Events are handled one at a time in
// arrival order.
func (s *Session) handle(ev Event) {
	log := s.logger.WithFields(logrus.Fields{
		"session": s.id,
		"event":   ev.Type,
	})

	switch ev.Type {
	case TypeSelect:
		if ev.Src == "" {
			log.Warn("Select without source")
			return
		}
		s.ctrl.PlayAudio(ev.Src, ev.Cover, ev.Name, ev.Album)
	case TypeNext:
		s.ctrl.NextTrack()
	case TypePrev:
		s.ctrl.PrevTrack()
	case TypeToggle:
		control, ok := player.ParseControl(ev.Control)
		if !ok {
			log.WithField("control", ev.Control).Warn("Unknown control")
			return
		}
		s.ctrl.Toggle(control)
	case TypeEnded:
		s.ctrl.PlayNext()
	case TypeVolumeChange:
		if ev.Volume == nil || math.IsNaN(*ev.Volume) {
			log.Warn("Volume change without a valid volume")
			return
		}
		v := math.Min(math.Max(*ev.Volume, 0), 1)
		s.mu.Lock()
		s.volume = v
		s.mu.Unlock()
		s.ctrl.OnVolumeChange()
	case TypePlayRejected:
		log.WithField("error", ev.Error).Debug("Browser refused playback")
	default:
		log.Warn("Unknown event type")
	}
}

// readPump decodes events until the connection fails
func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).WithField("session", s.id).Warn("WebSocket read error")
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.WithError(err).WithField("session", s.id).Warn("Malformed event")
			continue
		}
		s.handle(ev)
	}
}

// writePump serializes commands and keeps the connection alive with pings
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case cmd := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(cmd); err != nil {
				s.logger.WithError(err).WithField("session", s.id).Warn("WebSocket write error")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
