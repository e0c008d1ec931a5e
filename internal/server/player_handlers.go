package server

import (
	"net/http"

	"discotheque/internal/library"
	"discotheque/internal/player"
	"discotheque/internal/remote"
	"discotheque/pkg/models"

	"github.com/sirupsen/logrus"
)

// handlePlayerSocket attaches a browser page to a new player controller whose
// playlist is the playable content of ?path=
func (ms *MusicServer) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	rel := library.Normalize(r.URL.Query().Get("path"))
	playlist, err := ms.browser.Playlist(rel)
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}
	profile := profileFromRequest(r)

	conn, err := remote.Upgrade(w, r, ms.config.Server.EnableCORS)
	if err != nil {
		// the upgrader already answered
		ms.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	session := remote.NewSession(ms.hub, conn, profile, rel, ms.logger)
	ctrl := player.New(playlist, session, ms.db.Preferences(profile), session,
		player.WithLogger(ms.logger),
		player.WithAutoPlay(ms.config.Player.AutoPlay),
		player.WithDefaults(ms.config.Player.DefaultVolume, player.Theme(ms.config.Player.DefaultTheme)),
		player.WithTrackHook(ms.recordPlay(profile)),
	)
	session.Attach(ctrl)
	session.Start()
}

// recordPlay appends every started track to the profile's history
func (ms *MusicServer) recordPlay(profile string) func(models.Track) {
	return func(track models.Track) {
		if _, err := ms.db.RecordPlay(profile, track); err != nil {
			ms.logger.WithError(err).WithFields(logrus.Fields{
				"profile": profile,
				"src":     track.Src,
			}).Warn("Failed to record play")
		}
	}
}

// handleGetSessions lists the caller's live player sessions
func (ms *MusicServer) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ms.respondJSON(w, map[string]interface{}{
		"sessions": ms.hub.Sessions(profileFromRequest(r)),
		"active":   ms.hub.Count(),
	})
}

// handleGetHistory returns the caller's most recent plays
func (ms *MusicServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, verr := ms.validateLimit(r.URL.Query().Get("limit"), ms.config.Player.HistoryLimit)
	if verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	entries, err := ms.db.RecentPlays(profileFromRequest(r), limit)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving history", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	ms.respondJSON(w, entries)
}
