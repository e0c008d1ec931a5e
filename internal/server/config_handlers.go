package server

import (
	"net/http"
)

// ConfigResponse represents the public configuration sent to the frontend
type ConfigResponse struct {
	Player  PlayerConfigResponse  `json:"player"`
	Library LibraryConfigResponse `json:"library"`
	Auth    bool                  `json:"auth"`
}

// PlayerConfigResponse carries the defaults a fresh profile starts with
type PlayerConfigResponse struct {
	DefaultVolume float64 `json:"defaultVolume"`
	DefaultTheme  string  `json:"defaultTheme"`
	AutoPlay      bool    `json:"autoPlay"`
}

// LibraryConfigResponse describes what the library serves
type LibraryConfigResponse struct {
	PlayableFormats []string `json:"playableFormats"`
	CoverSize       int      `json:"coverSize"`
}

// handleGetConfig returns public configuration settings for the frontend
func (ms *MusicServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	config := ConfigResponse{
		Player: PlayerConfigResponse{
			DefaultVolume: ms.config.Player.DefaultVolume,
			DefaultTheme:  ms.config.Player.DefaultTheme,
			AutoPlay:      ms.config.Player.AutoPlay,
		},
		Library: LibraryConfigResponse{
			PlayableFormats: ms.config.Library.PlayableFormats,
			CoverSize:       ms.config.Library.CoverSize,
		},
		Auth: ms.config.Server.AuthUser != "",
	}

	w.Header().Set("Content-Type", "application/json")
	ms.respondJSON(w, config)
}
