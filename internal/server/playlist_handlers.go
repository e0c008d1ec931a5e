package server

import (
	"net/http"

	"discotheque/internal/library"
	"discotheque/pkg/models"
)

// PlaylistResponse is the ordered playable content of a directory
type PlaylistResponse struct {
	Path   string         `json:"path"`
	Tracks []models.Track `json:"tracks"`
	Count  int            `json:"count"`
}

// handleGetPlaylist returns the tracks a player opened on this directory would use
func (ms *MusicServer) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	rel := library.Normalize(r.PathValue("path"))
	playlist, err := ms.browser.Playlist(rel)
	if err != nil {
		ms.respondWithLibraryError(w, r, err)
		return
	}

	tracks := playlist.Tracks()
	if tracks == nil {
		tracks = []models.Track{}
	}

	w.Header().Set("Content-Type", "application/json")
	ms.respondJSON(w, PlaylistResponse{
		Path:   rel,
		Tracks: tracks,
		Count:  len(tracks),
	})
}
