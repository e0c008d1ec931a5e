package remote

import "discotheque/pkg/models"

// Server to browser message types
const (
	TypeLoad   = "load"
	TypePlay   = "play"
	TypeLoop   = "loop"
	TypeVolume = "volume"
	TypeTrack  = "track"
	TypeLabel  = "label"
	TypeTheme  = "theme"
)

// Browser to server message types
const (
	TypeSelect       = "select"
	TypeNext         = "next"
	TypePrev         = "prev"
	TypeToggle       = "toggle"
	TypeEnded        = "ended"
	TypeVolumeChange = "volumechange"
	TypePlayRejected = "play_rejected"
)

// Command is sent to the browser. Only the fields relevant to Type are set.
type Command struct {
	Type    string        `json:"type"`
	Src     string        `json:"src,omitempty"`
	Loop    *bool         `json:"loop,omitempty"`
	Volume  *float64      `json:"volume,omitempty"`
	Track   *models.Track `json:"track,omitempty"`
	Control string        `json:"control,omitempty"`
	Label   string        `json:"label,omitempty"`
	Active  *bool         `json:"active,omitempty"`
	Theme   string        `json:"theme,omitempty"`
}

// Event is received from the browser
type Event struct {
	Type    string   `json:"type"`
	Src     string   `json:"src,omitempty"`
	Cover   string   `json:"cover,omitempty"`
	Name    string   `json:"name,omitempty"`
	Album   string   `json:"album,omitempty"`
	Control string   `json:"control,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Error   string   `json:"error,omitempty"`
}
